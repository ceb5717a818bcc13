// basecampy | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Raghav000001/basecampy/internal/core"
)

// Repository is the only way the rest of the codebase touches the users
// table. Reads carry an explicit includeDeleted flag so the soft-delete
// visibility rule is part of every call site's signature instead of a
// hidden query hook.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*User, error)
	GetByEmail(ctx context.Context, email string, includeDeleted bool) (*User, error)
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)

	// ExistsByUsernameOrEmail deliberately ignores the visibility filter:
	// uniqueness is store-wide, deleted records included.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateStatus(ctx context.Context, id, status string) error

	SetRefreshTokenHash(ctx context.Context, id string, hash *string) error
	RotateRefreshTokenHash(ctx context.Context, id, newHash, previousHash string) (bool, error)

	SetVerificationToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	FindByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	MarkEmailVerified(ctx context.Context, id string) error

	SetResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	ResetPassword(ctx context.Context, id, passwordHash string) error

	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

const userColumns = `
	id, username, email, password_hash, full_name, avatar_url,
	avatar_local_path, is_email_verified, status, refresh_token_hash,
	email_verification_token_hash, email_verification_token_expiry,
	forgot_password_token_hash, forgot_password_token_expiry,
	is_deleted, deleted_at, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// visibility is the single interception point for the soft-delete
// invariant: every read and count predicate is built through it.
func visibility(includeDeleted bool) string {
	if includeDeleted {
		return "TRUE"
	}
	return "is_deleted = FALSE"
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, username, email, password_hash, full_name,
			avatar_url, avatar_local_path, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.AvatarURL,
		user.AvatarLocalPath,
		user.Status,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
	includeDeleted bool,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE id = $1 AND %s`,
		userColumns, visibility(includeDeleted))

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
	includeDeleted bool,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE email = $1 AND %s`,
		userColumns, visibility(includeDeleted))

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		visibility(params.IncludeDeleted),
	)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		userColumns, visibility(params.IncludeDeleted))

	var users []User
	err := r.db.SelectContext(ctx, &users, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ExistsByUsernameOrEmail(
	ctx context.Context,
	username, email string,
) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM users WHERE username = $1 OR email = $2
	)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username, email); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return exists, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "update password", query, id, passwordHash)
}

func (r *repository) UpdateStatus(ctx context.Context, id, status string) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "update status", query, id, status)
}

func (r *repository) SetRefreshTokenHash(
	ctx context.Context,
	id string,
	hash *string,
) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET refresh_token_hash = $2, updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "set refresh token", query, id, hash)
}

// RotateRefreshTokenHash swaps the stored digest only if it still equals
// previousHash. A false return means a concurrent rotation or a logout won
// the race and the presented token is stale.
func (r *repository) RotateRefreshTokenHash(
	ctx context.Context,
	id, newHash, previousHash string,
) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET refresh_token_hash = $2, updated_at = NOW()
		WHERE id = $1 AND refresh_token_hash = $3 AND %s`, visibility(false))

	result, err := r.db.ExecContext(ctx, query, id, newHash, previousHash)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) SetVerificationToken(
	ctx context.Context,
	id, tokenHash string,
	expiry time.Time,
) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET email_verification_token_hash = $2,
		    email_verification_token_expiry = $3,
		    updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(
		ctx, "set verification token", query, id, tokenHash, expiry,
	)
}

func (r *repository) FindByVerificationToken(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (*User, error) {
	// An expired pair and a cleared pair are indistinguishable to the
	// caller: both come back as not found.
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE email_verification_token_hash = $1
		  AND email_verification_token_expiry > $2
		  AND %s`,
		userColumns, visibility(false))

	var user User
	err := r.db.GetContext(ctx, &user, query, tokenHash, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find by verification token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find by verification token: %w", err)
	}

	return &user, nil
}

func (r *repository) MarkEmailVerified(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET is_email_verified = TRUE,
		    email_verification_token_hash = NULL,
		    email_verification_token_expiry = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "mark email verified", query, id)
}

func (r *repository) SetResetToken(
	ctx context.Context,
	id, tokenHash string,
	expiry time.Time,
) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET forgot_password_token_hash = $2,
		    forgot_password_token_expiry = $3,
		    updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "set reset token", query, id, tokenHash, expiry)
}

func (r *repository) FindByResetToken(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE forgot_password_token_hash = $1
		  AND forgot_password_token_expiry > $2
		  AND %s`,
		userColumns, visibility(false))

	var user User
	err := r.db.GetContext(ctx, &user, query, tokenHash, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find by reset token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find by reset token: %w", err)
	}

	return &user, nil
}

// ResetPassword replaces the hash, clears the reset pair and drops the
// stored refresh digest so existing sessions cannot outlive the reset.
func (r *repository) ResetPassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET password_hash = $2,
		    forgot_password_token_hash = NULL,
		    forgot_password_token_expiry = NULL,
		    refresh_token_hash = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "reset password", query, id, passwordHash)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE users
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND %s`, visibility(false))

	return r.execExpectingRow(ctx, "soft delete user", query, id)
}

func (r *repository) Restore(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted = TRUE`

	return r.execExpectingRow(ctx, "restore user", query, id)
}

func (r *repository) execExpectingRow(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
