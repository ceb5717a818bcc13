// basecampy | 2026
// jwt.go

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/Raghav000001/basecampy/internal/config"
	"github.com/Raghav000001/basecampy/internal/core"
	"github.com/Raghav000001/basecampy/internal/middleware"
	"github.com/Raghav000001/basecampy/internal/user"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTManager signs and verifies both session token kinds. The access and
// refresh secrets are independent, so possession of one kind of token
// never helps forge the other.
type JWTManager struct {
	accessKey  jwk.Key
	refreshKey jwk.Key
	config     config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	accessKey, err := jwk.Import([]byte(cfg.AccessSecret))
	if err != nil {
		return nil, fmt.Errorf("import access secret: %w", err)
	}

	refreshKey, err := jwk.Import([]byte(cfg.RefreshSecret))
	if err != nil {
		return nil, fmt.Errorf("import refresh secret: %w", err)
	}

	return &JWTManager{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		config:     cfg,
	}, nil
}

func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.config.AccessTokenExpire
}

// CreateAccessToken mints a short-lived, self-contained token. It is
// verifiable without a store lookup, which keeps per-request auth cheap.
func (m *JWTManager) CreateAccessToken(u *user.User) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(u.ID).
		IssuedAt(now).
		Expiration(now.Add(m.config.AccessTokenExpire)).
		NotBefore(now).
		Claim("email", u.Email).
		Claim("username", u.Username).
		Claim("type", tokenTypeAccess).
		Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.accessKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return string(signed), nil
}

// CreateRefreshToken mints a long-lived token carrying only the user id.
// Its validity is stateful: the digest stored on the user row must still
// match when it is presented.
func (m *JWTManager) CreateRefreshToken(userID string) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(m.config.RefreshTokenExpire)).
		NotBefore(now).
		Claim("type", tokenTypeRefresh).
		Build()
	if err != nil {
		return "", fmt.Errorf("build refresh token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.refreshKey))
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return string(signed), nil
}

func (m *JWTManager) VerifyAccessToken(
	ctx context.Context,
	tokenString string,
) (*middleware.AccessTokenClaims, error) {
	token, err := m.parse(tokenString, m.accessKey, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify access token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	if err := token.Get("email", &email); err != nil {
		return nil, fmt.Errorf(
			"verify access token: missing email claim: %w",
			core.ErrTokenInvalid,
		)
	}

	var username string
	if err := token.Get("username", &username); err != nil {
		return nil, fmt.Errorf(
			"verify access token: missing username claim: %w",
			core.ErrTokenInvalid,
		)
	}

	jti, _ := token.JwtID()

	var expiresAt int64
	if exp, ok := token.Expiration(); ok {
		expiresAt = exp.Unix()
	}

	return &middleware.AccessTokenClaims{
		UserID:    subject,
		Email:     email,
		Username:  username,
		TokenID:   jti,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyRefreshToken checks signature and expiry only; the stored-digest
// comparison happens in the service, which owns the rotation protocol.
func (m *JWTManager) VerifyRefreshToken(tokenString string) (string, error) {
	token, err := m.parse(tokenString, m.refreshKey, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf(
			"verify refresh token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	return subject, nil
}

func (m *JWTManager) parse(
	tokenString string,
	key jwk.Key,
	wantType string,
) (jwt.Token, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil ||
		tokenType != wantType {
		return nil, fmt.Errorf(
			"verify token: wrong token type: %w",
			core.ErrTokenInvalid,
		)
	}

	return token, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
