// basecampy | 2026
// repository.go

package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Raghav000001/basecampy/internal/core"
)

type Repository interface {
	// CreateWithOwner inserts the project and its creator's admin
	// membership in a single transaction.
	CreateWithOwner(ctx context.Context, project *Project) error

	GetByID(ctx context.Context, id string) (*Project, error)
	ListByMember(ctx context.Context, userID string) ([]Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error

	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

const projectColumns = `
	id, name, description, created_by, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateWithOwner(ctx context.Context, project *Project) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		insertProject := `
			INSERT INTO projects (id, name, description, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at`

		err := tx.GetContext(ctx, project, insertProject,
			project.ID,
			project.Name,
			project.Description,
			project.CreatedBy,
		)
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		insertMember := `
			INSERT INTO project_members (id, project_id, user_id, role)
			VALUES (gen_random_uuid(), $1, $2, $3)`

		_, err = tx.ExecContext(ctx, insertMember,
			project.ID,
			project.CreatedBy,
			RoleAdmin,
		)
		if err != nil {
			return fmt.Errorf("create project member: %w", err)
		}

		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*Project, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM projects
		WHERE id = $1`, projectColumns)

	var project Project
	err := r.db.GetContext(ctx, &project, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &project, nil
}

func (r *repository) ListByMember(
	ctx context.Context,
	userID string,
) ([]Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.created_by,
		       p.created_at, p.updated_at
		FROM projects p
		WHERE EXISTS (
			SELECT 1 FROM project_members m
			WHERE m.project_id = p.id AND m.user_id = $1
		)
		ORDER BY p.created_at DESC`

	var projects []Project
	if err := r.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

func (r *repository) Update(ctx context.Context, project *Project) error {
	query := `
		UPDATE projects
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, project, query,
		project.ID,
		project.Name,
		project.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update project: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete project: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) IsMember(
	ctx context.Context,
	projectID, userID string,
) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM project_members
		WHERE project_id = $1 AND user_id = $2
	)`

	var isMember bool
	err := r.db.GetContext(ctx, &isMember, query, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("check project member: %w", err)
	}

	return isMember, nil
}
