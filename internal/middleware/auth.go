// basecampy | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Raghav000001/basecampy/internal/core"
)

const (
	// AccessTokenCookie and RefreshTokenCookie are the cookie names the
	// browser client relies on.
	AccessTokenCookie  = "AccessToken"
	RefreshTokenCookie = "RefreshToken"
)

const (
	UserIDKey    contextKey = "user_id"
	UsernameKey  contextKey = "username"
	UserEmailKey contextKey = "user_email"
	TokenIDKey   contextKey = "token_jti"
	ClaimsKey    contextKey = "jwt_claims"
)

type AccessTokenClaims struct {
	UserID    string
	Email     string
	Username  string
	TokenID   string
	ExpiresAt int64
}

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

// DenylistChecker reports whether an access token id was revoked by a
// logout before its natural expiry.
type DenylistChecker interface {
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

func Authenticator(
	verifier TokenVerifier,
	denylist DenylistChecker,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractAccessToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			if denylist != nil {
				revoked, checkErr := denylist.IsAccessTokenRevoked(
					r.Context(),
					claims.TokenID,
				)
				if checkErr != nil {
					core.InternalServerError(w, checkErr)
					return
				}
				if revoked {
					core.JSONError(w, core.TokenRevokedError())
					return
				}
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractAccessToken prefers the AccessToken cookie and falls back to an
// Authorization: Bearer header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUsername(ctx context.Context) string {
	if name, ok := ctx.Value(UsernameKey).(string); ok {
		return name
	}
	return ""
}

func GetTokenID(ctx context.Context) string {
	if jti, ok := ctx.Value(TokenIDKey).(string); ok {
		return jti
	}
	return ""
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}
