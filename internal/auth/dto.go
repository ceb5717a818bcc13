// basecampy | 2026
// dto.go

package auth

import (
	"github.com/Raghav000001/basecampy/internal/user"
)

type RegisterRequest struct {
	Username string `json:"username"  validate:"required,min=3,max=30"`
	Email    string `json:"email"     validate:"required,email,max=255"`
	Password string `json:"password"  validate:"required,min=8,max=128"`
	FullName string `json:"full_name" validate:"omitempty,min=3,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type AuthResponse struct {
	User   user.UserResponse `json:"user"`
	Tokens TokenResponse     `json:"tokens"`
}

type RegisterResponse struct {
	User    user.UserResponse `json:"user"`
	Message string            `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
