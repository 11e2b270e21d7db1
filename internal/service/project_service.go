package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/emergency-backend/internal/domain"
	"github.com/spec-kit/emergency-backend/internal/events"
	"github.com/spec-kit/emergency-backend/internal/repository"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

// DefaultPreviewChars is the preview length used when none is requested.
const DefaultPreviewChars = 500

// ProjectService manages the HTML projects of authenticated users.
type ProjectService struct {
	projects   repository.ProjectRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ProjectDependencies bundles repositories for project service.
type ProjectDependencies struct {
	ProjectRepo repository.ProjectRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// SaveProjectInput creates a project, or updates one when ProjectID is set.
type SaveProjectInput struct {
	Title     string `json:"titulo"`
	HTML      string `json:"conteudo_html"`
	ProjectID *int64 `json:"projeto_id"`
}

// Validate checks the required fields.
func (in SaveProjectInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, 255)),
		validation.Field(&in.HTML, validation.Required),
	)
}

// ProjectPreview is a truncated view of a project's HTML.
type ProjectPreview struct {
	ID        int64     `json:"id"`
	Title     string    `json:"titulo"`
	Preview   string    `json:"preview_html"`
	TotalSize int       `json:"tamanho_total"`
	UpdatedAt time.Time `json:"data_modificacao"`
}

// UserStats summarises an account and its projects.
type UserStats struct {
	User     *domain.User  `json:"usuario"`
	Projects ProjectTotals `json:"projetos"`
}

// ProjectTotals is the project part of UserStats.
type ProjectTotals struct {
	Total          int64                  `json:"total"`
	TotalHTMLBytes int64                  `json:"tamanho_total_html_bytes"`
	TotalHTMLKB    float64                `json:"tamanho_total_html_kb"`
	Latest         *domain.ProjectSummary `json:"projeto_mais_recente"`
}

// NewProjectService builds the service.
func NewProjectService(deps ProjectDependencies) *ProjectService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects:   deps.ProjectRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Save creates or updates a project owned by userID. Updating a project
// that is missing or owned by someone else is reported as not found.
func (s *ProjectService) Save(ctx context.Context, userID int64, in SaveProjectInput) (*domain.Project, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	project := &domain.Project{
		UserID: userID,
		Title:  in.Title,
		HTML:   in.HTML,
	}
	created := in.ProjectID == nil
	if created {
		if err := s.projects.Create(ctx, project); err != nil {
			return nil, err
		}
	} else {
		project.ID = *in.ProjectID
		if err := s.projects.Update(ctx, project); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("project", map[string]any{"projeto_id": project.ID})
			}
			return nil, err
		}
	}

	s.publish(ctx, events.New(events.EventProjectSaved, userID, events.ProjectSavedPayload{
		ProjectID: project.ID,
		Title:     project.Title,
		Created:   created,
		HTMLSize:  len(project.HTML),
	}))
	s.logger.Info("project saved",
		zap.Int64("user_id", userID),
		zap.Int64("project_id", project.ID),
		zap.Bool("created", created))
	return project, nil
}

// Load returns a project owned by userID.
func (s *ProjectService) Load(ctx context.Context, userID, projectID int64) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"projeto_id": projectID})
		}
		return nil, err
	}
	return project, nil
}

// List returns the user's project summaries, most recently modified first.
func (s *ProjectService) List(ctx context.Context, userID int64) ([]domain.ProjectSummary, error) {
	return s.projects.ListByUser(ctx, userID)
}

// Delete removes a project owned by userID.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID int64) error {
	if err := s.projects.Delete(ctx, userID, projectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("project", map[string]any{"projeto_id": projectID})
		}
		return err
	}
	s.publish(ctx, events.New(events.EventProjectDeleted, userID, events.ProjectDeletedPayload{ProjectID: projectID}))
	return nil
}

// Preview returns the first maxChars characters of the project's HTML,
// followed by "..." when truncated. maxChars <= 0 selects DefaultPreviewChars.
func (s *ProjectService) Preview(ctx context.Context, userID, projectID int64, maxChars int) (*ProjectPreview, error) {
	if maxChars <= 0 {
		maxChars = DefaultPreviewChars
	}
	project, err := s.Load(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	total := utf8.RuneCountInString(project.HTML)
	return &ProjectPreview{
		ID:        project.ID,
		Title:     project.Title,
		Preview:   truncate(project.HTML, maxChars),
		TotalSize: total,
		UpdatedAt: project.UpdatedAt,
	}, nil
}

// Stats summarises the user's account and stored projects.
func (s *ProjectService) Stats(ctx context.Context, userID int64) (*UserStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	stats, err := s.projects.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		User: user,
		Projects: ProjectTotals{
			Total:          stats.Total,
			TotalHTMLBytes: stats.TotalHTMLBytes,
			TotalHTMLKB:    math.Round(float64(stats.TotalHTMLBytes)/1024*100) / 100,
			Latest:         stats.Latest,
		},
	}, nil
}

func (s *ProjectService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + "..."
}
