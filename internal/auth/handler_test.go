// basecampy | 2026
// handler_test.go

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Raghav000001/basecampy/internal/middleware"
)

func newTestRouter(t *testing.T) (*chi.Mux, *serviceFixture) {
	t.Helper()

	f := newServiceFixture(t)
	handler := NewHandler(f.service)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r, middleware.Authenticator(f.jwt, f.denylist))
	})

	return router, f
}

func doJSON(
	t *testing.T,
	router http.Handler,
	method, path string,
	body any,
	cookies ...*http.Cookie,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookies(
	t *testing.T,
	rec *httptest.ResponseRecorder,
) (access, refresh *http.Cookie) {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case middleware.AccessTokenCookie:
			access = c
		case middleware.RefreshTokenCookie:
			refresh = c
		}
	}
	require.NotNil(t, access, "access cookie missing")
	require.NotNil(t, refresh, "refresh cookie missing")
	return access, refresh
}

func TestHandler_RegisterLoginRefreshLogout(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	access, refresh := sessionCookies(t, rec)
	require.True(t, access.HttpOnly)
	require.True(t, access.Secure)
	require.True(t, refresh.HttpOnly)
	require.True(t, refresh.Secure)

	// Refresh using the cookie alone.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", nil, refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, rotated := sessionCookies(t, rec)
	require.NotEqual(t, refresh.Value, rotated.Value)

	// The spent cookie is rejected.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	// Logout with the still-valid access token.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		require.Equal(t, -1, c.MaxAge, "cookie %s not cleared", c.Name)
	}

	// The denylisted access token no longer authenticates.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", nil, access)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestHandler_RegisterConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	body := map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Secret123",
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", body)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestHandler_RegisterValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestHandler_LoginBadCredentials(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestHandler_RefreshWithoutToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestHandler_RefreshFromBody(t *testing.T) {
	router, f := newTestRouter(t)

	registerTestUser(t, f)
	_, tokens, err := f.service.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "Secret123",
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token",
		map[string]string{"refresh_token": tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandler_VerifyEmail(t *testing.T) {
	router, f := newTestRouter(t)

	registerTestUser(t, f)
	token := f.mailer.lastVerificationToken(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/users/verify-email/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"is_email_verified":true`)

	// Second redemption of the same link.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/verify-email/"+token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestHandler_ChangePasswordWrongOld(t *testing.T) {
	router, f := newTestRouter(t)

	registerTestUser(t, f)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := sessionCookies(t, rec)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/change-password",
		map[string]string{
			"old_password": "WrongPassword",
			"new_password": "Secret456",
		}, access)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestHandler_ForgotPasswordAlwaysSucceeds(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
		map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandler_ResetPassword(t *testing.T) {
	router, f := newTestRouter(t)

	registerTestUser(t, f)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
		map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	token := f.mailer.lastResetToken(t)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password/"+token,
		map[string]string{"password": "Secret456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Unknown token.
	rec = doJSON(t, router, http.MethodPost,
		"/api/v1/auth/reset-password/feedfacecafebeef0123",
		map[string]string{"password": "Secret456"})
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}
