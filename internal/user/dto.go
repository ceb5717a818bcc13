// basecampy | 2026
// dto.go

package user

import (
	"time"
)

// UserResponse is the sanitized view of a user: no password hash, no
// refresh token, no verification or reset token material.
type UserResponse struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	AvatarURL       string    `json:"avatar_url"`
	IsEmailVerified bool      `json:"is_email_verified"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
}

type SoftDeleteRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

type RestoreRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

type ListUsersParams struct {
	Page           int
	PageSize       int
	IncludeDeleted bool
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		IsEmailVerified: u.IsEmailVerified,
		Status:          u.Status,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
