package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/emergency-backend/internal/domain"
)

// ProjectRepository encapsulates project persistence. Every read and write
// except Count is scoped to the owning user.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, userID, id int64) (*domain.Project, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.ProjectSummary, error)
	Delete(ctx context.Context, userID, id int64) error
	StatsByUser(ctx context.Context, userID int64) (*domain.ProjectStats, error)
	Count(ctx context.Context) (int64, error)
}

type projectRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewProjectRepository instantiates repository.
func NewProjectRepository(pool *pgxpool.Pool, queryTimeout time.Duration) ProjectRepository {
	return &projectRepository{pool: pool, timeout: queryTimeout}
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (user_id, title, html_content)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.pool.QueryRow(ctx, query,
		project.UserID,
		project.Title,
		project.HTML,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	const query = `
        UPDATE projects SET title=$1, html_content=$2, updated_at=NOW()
        WHERE id=$3 AND user_id=$4
        RETURNING created_at, updated_at`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return r.pool.QueryRow(ctx, query,
		project.Title,
		project.HTML,
		project.ID,
		project.UserID,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

func (r *projectRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Project, error) {
	const query = `
        SELECT id, user_id, title, html_content, created_at, updated_at
        FROM projects WHERE id=$1 AND user_id=$2`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var project domain.Project
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&project.ID,
		&project.UserID,
		&project.Title,
		&project.HTML,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) ListByUser(ctx context.Context, userID int64) ([]domain.ProjectSummary, error) {
	const query = `
        SELECT id, title, created_at, updated_at, octet_length(html_content)
        FROM projects WHERE user_id=$1
        ORDER BY updated_at DESC, id DESC`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.ProjectSummary, 0)
	for rows.Next() {
		var s domain.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.HTMLSize); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *projectRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM projects WHERE id=$1 AND user_id=$2`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *projectRepository) StatsByUser(ctx context.Context, userID int64) (*domain.ProjectStats, error) {
	const totals = `
        SELECT COUNT(*), COALESCE(SUM(octet_length(html_content)), 0)
        FROM projects WHERE user_id=$1`
	const latest = `
        SELECT id, title, created_at, updated_at, octet_length(html_content)
        FROM projects WHERE user_id=$1
        ORDER BY updated_at DESC, id DESC
        LIMIT 1`

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var stats domain.ProjectStats
	if err := r.pool.QueryRow(ctx, totals, userID).Scan(&stats.Total, &stats.TotalHTMLBytes); err != nil {
		return nil, err
	}

	var s domain.ProjectSummary
	err := r.pool.QueryRow(ctx, latest, userID).Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.HTMLSize)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		stats.Latest = &s
	}
	return &stats, nil
}

func (r *projectRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&total)
	return total, err
}
