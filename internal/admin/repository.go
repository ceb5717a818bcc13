// basecampy | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/Raghav000001/basecampy/internal/core"
)

// Repository holds the bulk mutations that deliberately bypass the
// soft-delete visibility filter and the record lifecycle. Nothing else
// in the codebase writes to users without going through that filter.
type Repository interface {
	HardDeleteAllUsers(ctx context.Context) (int64, error)
	BulkUpdateStatus(ctx context.Context, usernamePattern, status string) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) HardDeleteAllUsers(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users")
	if err != nil {
		return 0, fmt.Errorf("hard delete users: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("hard delete users: %w", err)
	}

	return rows, nil
}

// BulkUpdateStatus matches usernames against a POSIX regular expression
// and updates every matching row, deleted records included.
func (r *repository) BulkUpdateStatus(
	ctx context.Context,
	usernamePattern, status string,
) (int64, error) {
	query := `
		UPDATE users
		SET status = $2, updated_at = NOW()
		WHERE username ~ $1`

	result, err := r.db.ExecContext(ctx, query, usernamePattern, status)
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	return rows, nil
}
