// basecampy | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Raghav000001/basecampy/internal/core"
	"github.com/Raghav000001/basecampy/internal/user"
)

// memoryUserRepo is an in-memory user.Repository that mirrors the SQL
// implementation's semantics: default reads skip soft-deleted rows, the
// uniqueness probe does not, and rotation is compare-and-swap.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*user.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}

	clone := *u
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	r.users[u.ID] = &clone
	return nil
}

func (r *memoryUserRepo) GetByID(
	_ context.Context,
	id string,
	includeDeleted bool,
) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || (!includeDeleted && u.IsDeleted) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}

	clone := *u
	return &clone, nil
}

func (r *memoryUserRepo) GetByEmail(
	_ context.Context,
	email string,
	includeDeleted bool,
) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email && (includeDeleted || !u.IsDeleted) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (r *memoryUserRepo) List(
	_ context.Context,
	params user.ListUsersParams,
) ([]user.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []user.User
	for _, u := range r.users {
		if params.IncludeDeleted || !u.IsDeleted {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (r *memoryUserRepo) ExistsByUsernameOrEmail(
	_ context.Context,
	username, email string,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deleted rows still count.
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) update(
	id string,
	fn func(u *user.User),
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.IsDeleted {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memoryUserRepo) UpdatePassword(
	_ context.Context,
	id, passwordHash string,
) error {
	return r.update(id, func(u *user.User) { u.PasswordHash = passwordHash })
}

func (r *memoryUserRepo) UpdateStatus(_ context.Context, id, status string) error {
	return r.update(id, func(u *user.User) { u.Status = status })
}

func (r *memoryUserRepo) SetRefreshTokenHash(
	_ context.Context,
	id string,
	hash *string,
) error {
	return r.update(id, func(u *user.User) { u.RefreshTokenHash = hash })
}

func (r *memoryUserRepo) RotateRefreshTokenHash(
	_ context.Context,
	id, newHash, previousHash string,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.IsDeleted {
		return false, nil
	}
	if u.RefreshTokenHash == nil || *u.RefreshTokenHash != previousHash {
		return false, nil
	}

	u.RefreshTokenHash = &newHash
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryUserRepo) SetVerificationToken(
	_ context.Context,
	id, tokenHash string,
	expiry time.Time,
) error {
	return r.update(id, func(u *user.User) {
		u.EmailVerificationTokenHash = &tokenHash
		u.EmailVerificationTokenExpiry = &expiry
	})
}

func (r *memoryUserRepo) FindByVerificationToken(
	_ context.Context,
	tokenHash string,
	now time.Time,
) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.IsDeleted || u.EmailVerificationTokenHash == nil {
			continue
		}
		if *u.EmailVerificationTokenHash == tokenHash &&
			u.EmailVerificationTokenExpiry.After(now) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("find by verification token: %w", core.ErrNotFound)
}

func (r *memoryUserRepo) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *user.User) {
		u.IsEmailVerified = true
		u.EmailVerificationTokenHash = nil
		u.EmailVerificationTokenExpiry = nil
	})
}

func (r *memoryUserRepo) SetResetToken(
	_ context.Context,
	id, tokenHash string,
	expiry time.Time,
) error {
	return r.update(id, func(u *user.User) {
		u.ForgotPasswordTokenHash = &tokenHash
		u.ForgotPasswordTokenExpiry = &expiry
	})
}

func (r *memoryUserRepo) FindByResetToken(
	_ context.Context,
	tokenHash string,
	now time.Time,
) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.IsDeleted || u.ForgotPasswordTokenHash == nil {
			continue
		}
		if *u.ForgotPasswordTokenHash == tokenHash &&
			u.ForgotPasswordTokenExpiry.After(now) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("find by reset token: %w", core.ErrNotFound)
}

func (r *memoryUserRepo) ResetPassword(
	_ context.Context,
	id, passwordHash string,
) error {
	return r.update(id, func(u *user.User) {
		u.PasswordHash = passwordHash
		u.ForgotPasswordTokenHash = nil
		u.ForgotPasswordTokenExpiry = nil
		u.RefreshTokenHash = nil
	})
}

func (r *memoryUserRepo) SoftDelete(_ context.Context, id string) error {
	return r.update(id, func(u *user.User) {
		u.IsDeleted = true
		now := time.Now()
		u.DeletedAt = &now
	})
}

func (r *memoryUserRepo) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || !u.IsDeleted {
		return fmt.Errorf("restore user: %w", core.ErrNotFound)
	}

	u.IsDeleted = false
	u.DeletedAt = nil
	u.UpdatedAt = time.Now()
	return nil
}

// captureMailer records outbound links instead of sending anything.
type captureMailer struct {
	mu                sync.Mutex
	verificationLinks []string
	resetLinks        []string
}

func (m *captureMailer) SendVerificationEmail(
	_ context.Context,
	_, _, link string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationLinks = append(m.verificationLinks, link)
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(
	_ context.Context,
	_, _, link string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks = append(m.resetLinks, link)
	return nil
}

func (m *captureMailer) lastVerificationToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.verificationLinks) == 0 {
		t.Fatal("no verification email captured")
	}
	link := m.verificationLinks[len(m.verificationLinks)-1]
	return link[strings.LastIndex(link, "/")+1:]
}

func (m *captureMailer) lastResetToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.resetLinks) == 0 {
		t.Fatal("no reset email captured")
	}
	link := m.resetLinks[len(m.resetLinks)-1]
	return link[strings.LastIndex(link, "/")+1:]
}

type serviceFixture struct {
	service  *Service
	repo     *memoryUserRepo
	mailer   *captureMailer
	jwt      *JWTManager
	denylist *Denylist
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtManager := newTestJWTManager(t, testJWTConfig())
	repo := newMemoryUserRepo()
	mailer := &captureMailer{}
	denylist := NewDenylist(client)

	svc := NewService(
		repo,
		jwtManager,
		mailer,
		denylist,
		"http://localhost:8080",
		slog.New(slog.DiscardHandler),
	)

	return &serviceFixture{
		service:  svc,
		repo:     repo,
		mailer:   mailer,
		jwt:      jwtManager,
		denylist: denylist,
	}
}

func registerTestUser(t *testing.T, f *serviceFixture) *user.User {
	t.Helper()

	u, err := f.service.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "Secret123",
		FullName: "Alice Example",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	f := newServiceFixture(t)

	u := registerTestUser(t, f)

	if u.PasswordHash == "Secret123" {
		t.Fatal("plaintext password persisted")
	}
	if u.IsEmailVerified {
		t.Fatal("new account must start unverified")
	}
	if u.Status != user.StatusInactive {
		t.Fatalf("status: got %q want %q", u.Status, user.StatusInactive)
	}
	if u.AvatarURL != user.DefaultAvatarURL {
		t.Fatalf("avatar: got %q want default", u.AvatarURL)
	}

	// A verification email with a working link went out.
	token := f.mailer.lastVerificationToken(t)
	stored, err := f.repo.GetByID(context.Background(), u.ID, false)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored.EmailVerificationTokenHash == nil {
		t.Fatal("verification token hash not persisted")
	}
	if *stored.EmailVerificationTokenHash == token {
		t.Fatal("plaintext token persisted instead of its digest")
	}
	if !core.CompareTokenHash(token, *stored.EmailVerificationTokenHash) {
		t.Fatal("mailed token does not match stored digest")
	}
}

func TestRegister_DuplicateIncludesDeleted(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)

	// A soft-deleted account still owns its username and email.
	if err := f.repo.SoftDelete(ctx, u.ID); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}

	_, err := f.service.Register(ctx, RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "Secret123",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate username: want ErrUserExists, got %v", err)
	}

	_, err = f.service.Register(ctx, RegisterRequest{
		Username: "other",
		Email:    "alice@example.com",
		Password: "Secret123",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate email: want ErrUserExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	registerTestUser(t, f)

	u, tokens, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", tokens)
	}
	if tokens.TokenType != "Bearer" {
		t.Fatalf("token type: got %q", tokens.TokenType)
	}

	// The stored digest matches the issued refresh token.
	stored, err := f.repo.GetByID(ctx, u.ID, false)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored.RefreshTokenHash == nil ||
		!core.CompareTokenHash(tokens.RefreshToken, *stored.RefreshTokenHash) {
		t.Fatal("stored refresh digest does not match issued token")
	}
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	registerTestUser(t, f)

	_, _, errUnknown := f.service.Login(ctx, LoginRequest{
		Email:    "ghost@example.com",
		Password: "Secret123",
	})
	_, _, errWrong := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "WrongPassword",
	})

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", errWrong)
	}
}

func TestLogin_SoftDeletedAccountIsInvisible(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)
	if err := f.repo.SoftDelete(ctx, u.ID); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}

	_, _, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_RotatesSingleUse(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	registerTestUser(t, f)
	_, first, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	_, second, err := f.service.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("rotation returned the same refresh token")
	}

	// The spent token lost the race against its own rotation.
	_, _, err = f.service.Refresh(ctx, first.RefreshToken)
	if !errors.Is(err, ErrTokenRotated) {
		t.Fatalf("reused token: want ErrTokenRotated, got %v", err)
	}

	// The fresh one still works.
	_, third, err := f.service.Refresh(ctx, second.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh with rotated token error: %v", err)
	}
	if third.RefreshToken == second.RefreshToken {
		t.Fatal("second rotation returned the same refresh token")
	}
}

func TestRefresh_Garbage(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.Refresh(context.Background(), "not.a.jwt")
	if !errors.Is(err, core.ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid, got %v", err)
	}
}

func TestRefresh_AfterLogout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)
	_, tokens, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	err = f.service.Logout(ctx, u.ID, "jti-1", time.Now().Add(15*time.Minute))
	if err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	_, _, err = f.service.Refresh(ctx, tokens.RefreshToken)
	if !errors.Is(err, ErrTokenRotated) {
		t.Fatalf("refresh after logout: want ErrTokenRotated, got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)

	expiry := time.Now().Add(15 * time.Minute)
	if err := f.service.Logout(ctx, u.ID, "jti-1", expiry); err != nil {
		t.Fatalf("first Logout error: %v", err)
	}
	if err := f.service.Logout(ctx, u.ID, "jti-1", expiry); err != nil {
		t.Fatalf("repeated Logout error: %v", err)
	}

	revoked, err := f.service.denylist.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked error: %v", err)
	}
	if !revoked {
		t.Fatal("access token not denylisted after logout")
	}
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)

	err := f.service.ChangePassword(ctx, u.ID, "WrongPassword", "Secret456")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong old password: want ErrInvalidCredentials, got %v", err)
	}

	// The hash must be untouched after the failed attempt.
	if _, _, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	}); err != nil {
		t.Fatalf("old password no longer works: %v", err)
	}

	if err := f.service.ChangePassword(ctx, u.ID, "Secret123", "Secret456"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}

	if _, _, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret456",
	}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	registerTestUser(t, f)
	token := f.mailer.lastVerificationToken(t)

	verified, err := f.service.VerifyEmail(ctx, token)
	if err != nil {
		t.Fatalf("VerifyEmail error: %v", err)
	}
	if !verified.IsEmailVerified {
		t.Fatal("account not marked verified")
	}
	if verified.EmailVerificationTokenHash != nil ||
		verified.EmailVerificationTokenExpiry != nil {
		t.Fatal("token pair not cleared after redemption")
	}

	// Single use: the second redemption finds nothing.
	_, err = f.service.VerifyEmail(ctx, token)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second redemption: want ErrNotFound, got %v", err)
	}
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.VerifyEmail(context.Background(), "feedfacecafebeef0123")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)
	token := f.mailer.lastVerificationToken(t)

	// Age the stored expiry past the redemption window.
	err := f.repo.SetVerificationToken(
		ctx,
		u.ID,
		core.HashToken(token),
		time.Now().Add(-time.Minute),
	)
	if err != nil {
		t.Fatalf("SetVerificationToken error: %v", err)
	}

	_, err = f.service.VerifyEmail(ctx, token)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expired token: want ErrNotFound, got %v", err)
	}
}

func TestResendVerification(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)

	if err := f.service.ResendVerification(ctx, u.ID); err != nil {
		t.Fatalf("ResendVerification error: %v", err)
	}

	// The resend replaced the token: only the newest link redeems.
	token := f.mailer.lastVerificationToken(t)
	if _, err := f.service.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("VerifyEmail with resent token error: %v", err)
	}

	err := f.service.ResendVerification(ctx, u.ID)
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("verified account: want ErrAlreadyVerified, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u := registerTestUser(t, f)
	if _, _, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	}); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// Unknown emails are not revealed.
	if err := f.service.ForgotPassword(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword unknown email error: %v", err)
	}

	if err := f.service.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}

	token := f.mailer.lastResetToken(t)
	if err := f.service.ResetPassword(ctx, token, "Secret456"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	// Reset invalidates the open session.
	stored, err := f.repo.GetByID(ctx, u.ID, false)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored.RefreshTokenHash != nil {
		t.Fatal("refresh digest survived the password reset")
	}
	if stored.ForgotPasswordTokenHash != nil {
		t.Fatal("reset token pair not cleared")
	}

	// Single use.
	err = f.service.ResetPassword(ctx, token, "Secret789")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second redemption: want ErrNotFound, got %v", err)
	}

	if _, _, err := f.service.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret456",
	}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}
