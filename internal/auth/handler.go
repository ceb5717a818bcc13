// basecampy | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Raghav000001/basecampy/internal/core"
	"github.com/Raghav000001/basecampy/internal/middleware"
	"github.com/Raghav000001/basecampy/internal/user"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.Refresh)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password/{resetToken}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/logout", h.Logout)
			r.Post("/change-password", h.ChangePassword)
			r.Post("/resend-email-verification", h.ResendVerification)
		})
	})

	// The path the mailed verification link points at.
	r.Get("/users/verify-email/{verificationToken}", h.VerifyEmail)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	created, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			core.JSONError(w, core.DuplicateError("username or email"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, RegisterResponse{
		User:    user.ToUserResponse(created),
		Message: "user registered, a verification email has been sent",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	u, tokens, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.BadRequest(w, "invalid email or password")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	setSessionCookies(w, tokens)

	core.OK(w, AuthResponse{
		User:   user.ToUserResponse(u),
		Tokens: *tokens,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := extractRefreshToken(r)
	if presented == "" {
		core.Unauthorized(w, "missing refresh token")
		return
	}

	u, tokens, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenRotated):
			core.JSONError(w, core.TokenExpiredError())
		case errors.Is(err, core.ErrTokenExpired):
			core.JSONError(w, core.TokenExpiredError())
		case errors.Is(err, core.ErrTokenInvalid):
			core.JSONError(w, core.TokenInvalidError())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	setSessionCookies(w, tokens)

	core.OK(w, AuthResponse{
		User:   user.ToUserResponse(u),
		Tokens: *tokens,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		core.Unauthorized(w, "")
		return
	}

	err := h.service.Logout(
		r.Context(),
		claims.UserID,
		claims.TokenID,
		time.Unix(claims.ExpiresAt, 0),
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	clearSessionCookies(w)

	core.OK(w, MessageResponse{Message: "logged out"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	err := h.service.ChangePassword(
		r.Context(),
		userID,
		req.OldPassword,
		req.NewPassword,
	)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.Unauthorized(w, "current password is incorrect")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "password changed"})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "verificationToken")
	if token == "" {
		core.BadRequest(w, "verification token required")
		return
	}

	verified, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "verification token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, RegisterResponse{
		User:    user.ToUserResponse(verified),
		Message: "email verified",
	})
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		core.Unauthorized(w, "")
		return
	}

	if err := h.service.ResendVerification(r.Context(), userID); err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			core.BadRequest(w, "email is already verified")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "verification email sent"})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		core.InternalServerError(w, err)
		return
	}

	// Same response whether or not the account exists.
	core.OK(w, MessageResponse{
		Message: "if that account exists, a reset email has been sent",
	})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "resetToken")
	if token == "" {
		core.BadRequest(w, "reset token required")
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.UnprocessableEntity(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, req.Password); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "reset token")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "password has been reset"})
}

func extractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil &&
		cookie.Value != "" {
		return cookie.Value
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken
	}

	return ""
}

func setSessionCookies(w http.ResponseWriter, tokens *TokenResponse) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{
		middleware.AccessTokenCookie,
		middleware.RefreshTokenCookie,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
