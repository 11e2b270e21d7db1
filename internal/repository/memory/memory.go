// Package memory provides process-local repositories used when no Postgres
// DSN is configured and in tests. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/emergency-backend/internal/domain"
	"github.com/spec-kit/emergency-backend/internal/repository"
)

// Store holds users and projects behind one lock so that deleting a user
// cascades to its projects like the SQL schema does.
type Store struct {
	mu        sync.Mutex
	lastStamp time.Time
	nextUser  int64
	nextProj  int64
	users     map[int64]domain.User
	projects  map[int64]domain.Project
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]domain.User),
		projects: make(map[int64]domain.Project),
	}
}

// Users returns the store's UserRepository.
func (s *Store) Users() repository.UserRepository { return (*userRepository)(s) }

// Projects returns the store's ProjectRepository.
func (s *Store) Projects() repository.ProjectRepository { return (*projectRepository)(s) }

// stamp returns a strictly increasing UTC timestamp. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = now
	return now
}

type userRepository Store

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	s.nextUser++
	user.ID = s.nextUser
	user.CreatedAt = s.stamp()
	user.LastActivity = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepository) TouchLastActivity(_ context.Context, id int64, at time.Time) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastActivity = at
	s.users[id] = user
	return nil
}

func (r *userRepository) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.users, id)
	for pid, project := range s.projects {
		if project.UserID == id {
			delete(s.projects, pid)
		}
	}
	return nil
}

func (r *userRepository) Count(context.Context) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

type projectRepository Store

func (r *projectRepository) Create(_ context.Context, project *domain.Project) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[project.UserID]; !ok {
		return pgx.ErrNoRows
	}
	s.nextProj++
	project.ID = s.nextProj
	project.CreatedAt = s.stamp()
	project.UpdatedAt = project.CreatedAt
	s.projects[project.ID] = *project
	return nil
}

func (r *projectRepository) Update(_ context.Context, project *domain.Project) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.projects[project.ID]
	if !ok || existing.UserID != project.UserID {
		return pgx.ErrNoRows
	}
	existing.Title = project.Title
	existing.HTML = project.HTML
	existing.UpdatedAt = s.stamp()
	s.projects[project.ID] = existing
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *projectRepository) GetByID(_ context.Context, userID, id int64) (*domain.Project, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok || project.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return &project, nil
}

func (r *projectRepository) ListByUser(_ context.Context, userID int64) ([]domain.ProjectSummary, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries(userID), nil
}

func (r *projectRepository) Delete(_ context.Context, userID, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok || project.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(s.projects, id)
	return nil
}

func (r *projectRepository) StatsByUser(_ context.Context, userID int64) (*domain.ProjectStats, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := s.summaries(userID)
	stats := &domain.ProjectStats{Total: int64(len(summaries))}
	for _, summary := range summaries {
		stats.TotalHTMLBytes += summary.HTMLSize
	}
	if len(summaries) > 0 {
		latest := summaries[0]
		stats.Latest = &latest
	}
	return stats, nil
}

func (r *projectRepository) Count(context.Context) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.projects)), nil
}

// summaries lists userID's projects, most recently modified first. Callers hold s.mu.
func (s *Store) summaries(userID int64) []domain.ProjectSummary {
	out := make([]domain.ProjectSummary, 0)
	for _, p := range s.projects {
		if p.UserID != userID {
			continue
		}
		out = append(out, domain.ProjectSummary{
			ID:        p.ID,
			Title:     p.Title,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
			HTMLSize:  int64(len(p.HTML)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
