package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/emergency-backend/internal/repository"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

// Command action names accepted by CommandService.Execute.
const (
	ActionSaveProject  = "salvar_projeto"
	ActionLoadProject  = "carregar_projeto"
	ActionListProjects = "listar_projetos"
	ActionDelete       = "deletar_projeto"
	ActionStats        = "estatisticas"
	ActionUserStatus   = "status_usuario"
)

// CommandResult is the outcome of a dispatched command.
type CommandResult struct {
	Action  string `json:"acao"`
	Message string `json:"mensagem"`
	Data    any    `json:"dados,omitempty"`
}

type commandHandler func(ctx context.Context, userID int64, payload map[string]any) (*CommandResult, error)

// CommandService dispatches JSON commands to the project operations.
type CommandService struct {
	projects *ProjectService
	users    repository.UserRepository
	logger   *zap.Logger
	handlers map[string]commandHandler
	actions  []string
}

// NewCommandService builds the dispatcher.
func NewCommandService(projects *ProjectService, users repository.UserRepository, logger *zap.Logger) *CommandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CommandService{projects: projects, users: users, logger: logger}
	s.actions = []string{
		ActionSaveProject,
		ActionLoadProject,
		ActionListProjects,
		ActionDelete,
		ActionStats,
		ActionUserStatus,
	}
	s.handlers = map[string]commandHandler{
		ActionSaveProject:  s.saveProject,
		ActionLoadProject:  s.loadProject,
		ActionListProjects: s.listProjects,
		ActionDelete:       s.deleteProject,
		ActionStats:        s.stats,
		ActionUserStatus:   s.userStatus,
	}
	return s
}

// Actions lists the supported action names in a stable order.
func (s *CommandService) Actions() []string {
	return append([]string(nil), s.actions...)
}

// Execute runs action for userID. Unknown actions are a validation error
// that lists the available ones.
func (s *CommandService) Execute(ctx context.Context, userID int64, action string, payload map[string]any) (*CommandResult, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, apperrors.NewValidationError("action is required", map[string]any{"acao": "cannot be blank"})
	}
	handler, ok := s.handlers[action]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown action %q", action), map[string]any{
			"acoes_disponiveis": s.Actions(),
		})
	}
	if payload == nil {
		payload = map[string]any{}
	}

	s.logger.Info("executing command", zap.String("action", action), zap.Int64("user_id", userID))
	result, err := handler(ctx, userID, payload)
	if err != nil {
		return nil, err
	}
	result.Action = action
	return result, nil
}

func (s *CommandService) saveProject(ctx context.Context, userID int64, payload map[string]any) (*CommandResult, error) {
	in := SaveProjectInput{
		Title: stringField(payload, "titulo"),
		HTML:  stringField(payload, "conteudo_html"),
	}
	if raw, ok := payload["projeto_id"]; ok && raw != nil {
		id, err := projectIDField(payload)
		if err != nil {
			return nil, err
		}
		in.ProjectID = &id
	}
	project, err := s.projects.Save(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Message: "project saved", Data: project}, nil
}

func (s *CommandService) loadProject(ctx context.Context, userID int64, payload map[string]any) (*CommandResult, error) {
	id, err := projectIDField(payload)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.Load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Message: "project loaded", Data: project}, nil
}

func (s *CommandService) listProjects(ctx context.Context, userID int64, _ map[string]any) (*CommandResult, error) {
	projects, err := s.projects.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Message: fmt.Sprintf("found %d projects", len(projects)), Data: projects}, nil
}

func (s *CommandService) deleteProject(ctx context.Context, userID int64, payload map[string]any) (*CommandResult, error) {
	id, err := projectIDField(payload)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Delete(ctx, userID, id); err != nil {
		return nil, err
	}
	return &CommandResult{Message: "project deleted"}, nil
}

func (s *CommandService) stats(ctx context.Context, userID int64, _ map[string]any) (*CommandResult, error) {
	stats, err := s.projects.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Message: "statistics loaded", Data: stats}, nil
}

func (s *CommandService) userStatus(ctx context.Context, userID int64, _ map[string]any) (*CommandResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return &CommandResult{Message: "user status loaded", Data: user}, nil
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// projectIDField reads "projeto_id" as a positive integer. JSON numbers,
// json.Number and numeric strings are accepted.
func projectIDField(payload map[string]any) (int64, error) {
	raw, ok := payload["projeto_id"]
	if !ok || raw == nil || raw == "" {
		return 0, apperrors.NewValidationError("projeto_id is required", map[string]any{"projeto_id": "cannot be blank"})
	}

	var id int64
	var err error
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			err = errors.New("not an integer")
		}
		id = int64(v)
	case int:
		id = int64(v)
	case int64:
		id = v
	case json.Number:
		id, err = v.Int64()
	case string:
		id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		err = errors.New("unsupported type")
	}
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("projeto_id must be a number", map[string]any{"projeto_id": "must be a positive integer"})
	}
	return id, nil
}
