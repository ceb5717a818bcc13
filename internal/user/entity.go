// basecampy | 2026
// entity.go

package user

import (
	"time"
)

const (
	// DefaultAvatarURL is applied at creation when no avatar is supplied.
	DefaultAvatarURL = "https://placehold.co/200x200.png"

	StatusInactive = "inactive"
	StatusActive   = "active"
)

type User struct {
	ID               string  `db:"id"`
	Username         string  `db:"username"`
	Email            string  `db:"email"`
	PasswordHash     string  `db:"password_hash"`
	FullName         string  `db:"full_name"`
	AvatarURL        string  `db:"avatar_url"`
	AvatarLocalPath  string  `db:"avatar_local_path"`
	IsEmailVerified  bool    `db:"is_email_verified"`
	Status           string  `db:"status"`
	RefreshTokenHash *string `db:"refresh_token_hash"`

	// Token-hash/expiry pairs exist only while a verification or a
	// password reset is outstanding.
	EmailVerificationTokenHash   *string    `db:"email_verification_token_hash"`
	EmailVerificationTokenExpiry *time.Time `db:"email_verification_token_expiry"`
	ForgotPasswordTokenHash      *string    `db:"forgot_password_token_hash"`
	ForgotPasswordTokenExpiry    *time.Time `db:"forgot_password_token_expiry"`

	IsDeleted bool       `db:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (u *User) HasPendingVerification() bool {
	return u.EmailVerificationTokenHash != nil
}
