// basecampy | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Raghav000001/basecampy/internal/core"
	"github.com/Raghav000001/basecampy/internal/mail"
	"github.com/Raghav000001/basecampy/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already exists")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrTokenRotated       = errors.New("refresh token expired or rotated")
)

// Service orchestrates the credential and session lifecycle: it composes
// the password hasher, the two token issuers and the user repository, and
// is the only place that writes credential or session state.
type Service struct {
	users    user.Repository
	jwt      *JWTManager
	mailer   mail.Mailer
	denylist *Denylist
	baseURL  string
	logger   *slog.Logger
}

func NewService(
	users user.Repository,
	jwtManager *JWTManager,
	mailer mail.Mailer,
	denylist *Denylist,
	baseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		jwt:      jwtManager,
		mailer:   mailer,
		denylist: denylist,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
	}
}

// Register creates an unverified account and dispatches the verification
// email. The uniqueness probe intentionally sees soft-deleted records:
// a deleted account still owns its username and email.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*user.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     strings.TrimSpace(req.FullName),
		AvatarURL:    user.DefaultAvatarURL,
		Status:       user.StatusInactive,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Delivery failure must not fail registration; the user can ask for
	// a resend once logged in.
	if err := s.sendVerification(ctx, u); err != nil {
		s.logger.Warn("verification email failed",
			"user_id", u.ID,
			"error", err,
		)
	}

	return u, nil
}

func (s *Service) sendVerification(ctx context.Context, u *user.User) error {
	token, err := IssueTemporaryToken()
	if err != nil {
		return err
	}

	err = s.users.SetVerificationToken(ctx, u.ID, token.Hash, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("persist verification token: %w", err)
	}

	link := s.baseURL + "/api/v1/users/verify-email/" + token.Plaintext

	if err := s.mailer.SendVerificationEmail(ctx, u.Email, u.Username, link); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	return nil
}

// Login verifies credentials and issues a fresh access/refresh pair. An
// unknown email and a wrong password produce the same error so callers
// cannot probe for accounts.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*user.User, *TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.users.GetByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // burn the same hashing cost as a real account
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(req.Password, &u.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	return u, tokens, nil
}

// issuePair mints both tokens and persists the refresh digest
// unconditionally; a concurrent login simply supersedes the previous
// session (last write wins).
func (s *Service) issuePair(
	ctx context.Context,
	u *user.User,
) (*TokenResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshToken, err := s.jwt.CreateRefreshToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	refreshHash := core.HashToken(refreshToken)
	if err := s.users.SetRefreshTokenHash(ctx, u.ID, &refreshHash); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwt.AccessTokenTTL() / time.Second),
	}, nil
}

// Refresh implements single-use rotation: signature check, stored-digest
// comparison, then a compare-and-swap that replaces the digest only if it
// is still the one the presented token hashes to. Losing the swap means a
// concurrent rotation or logout already invalidated this token.
func (s *Service) Refresh(
	ctx context.Context,
	presented string,
) (*user.User, *TokenResponse, error) {
	userID, err := s.jwt.VerifyRefreshToken(presented)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	presentedHash := core.HashToken(presented)
	if u.RefreshTokenHash == nil ||
		!core.CompareTokenHash(presented, *u.RefreshTokenHash) {
		return nil, nil, ErrTokenRotated
	}

	accessToken, err := s.jwt.CreateAccessToken(u)
	if err != nil {
		return nil, nil, fmt.Errorf("create access token: %w", err)
	}

	refreshToken, err := s.jwt.CreateRefreshToken(u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create refresh token: %w", err)
	}

	rotated, err := s.users.RotateRefreshTokenHash(
		ctx,
		u.ID,
		core.HashToken(refreshToken),
		presentedHash,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		return nil, nil, ErrTokenRotated
	}

	return u, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.jwt.AccessTokenTTL() / time.Second),
	}, nil
}

// Logout clears the stored refresh digest and denylists the presented
// access token for its remaining lifetime. Repeating it is harmless.
func (s *Service) Logout(
	ctx context.Context,
	userID, accessTokenID string,
	accessExpiry time.Time,
) error {
	if err := s.users.SetRefreshTokenHash(ctx, userID, nil); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	if s.denylist != nil && accessTokenID != "" {
		if err := s.denylist.RevokeAccessToken(ctx, accessTokenID, accessExpiry); err != nil {
			// Session state is already cleared; losing the denylist write
			// only shortens the revocation to the token's natural expiry.
			s.logger.Warn("access token denylist failed",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, oldPassword, newPassword string,
) error {
	u, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(oldPassword, u.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

// VerifyEmail redeems a verification token. Expired, already-redeemed and
// unknown tokens are indistinguishable: all come back as not found.
func (s *Service) VerifyEmail(
	ctx context.Context,
	presented string,
) (*user.User, error) {
	u, err := s.users.FindByVerificationToken(
		ctx,
		core.HashToken(presented),
		time.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	return s.users.GetByID(ctx, u.ID, false)
}

func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if u.IsEmailVerified {
		return ErrAlreadyVerified
	}

	if err := s.sendVerification(ctx, u); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}

	return nil
}

// ForgotPassword always reports success to the caller; whether the email
// exists is never revealed.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)), false)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	token, err := IssueTemporaryToken()
	if err != nil {
		return err
	}

	if err := s.users.SetResetToken(ctx, u.ID, token.Hash, token.ExpiresAt); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	link := s.baseURL + "/api/v1/auth/reset-password/" + token.Plaintext

	if err := s.mailer.SendPasswordResetEmail(ctx, u.Email, u.Username, link); err != nil {
		s.logger.Warn("password reset email failed",
			"user_id", u.ID,
			"error", err,
		)
	}

	return nil
}

// ResetPassword redeems a reset token, replaces the hash and drops the
// stored refresh digest so every existing session must log in again.
func (s *Service) ResetPassword(
	ctx context.Context,
	presented, newPassword string,
) error {
	u, err := s.users.FindByResetToken(
		ctx,
		core.HashToken(presented),
		time.Now(),
	)
	if err != nil {
		return err
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.ResetPassword(ctx, u.ID, newHash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	return nil
}
