package dto

import (
	"github.com/google/uuid"

	"github.com/kanbantask/accounts-backend/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest is the simplified email-only confirmation path used by
// clients that already completed the Google flow on their side.
type GoogleLoginRequest struct {
	Email string `json:"email"`
}

// UpdateProfileRequest is a partial update; empty fields are left untouched.
type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminUpdateUserRequest may additionally toggle the admin flag.
type AdminUpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  *bool  `json:"isAdmin"`
}

type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Image    *string   `json:"image,omitempty"`
	IsAdmin  bool      `json:"isAdmin"`
}

// AuthResponse is returned by the OAuth callback so non-cookie clients can
// relay the token themselves.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

// NewUserResponse projects a user record, excluding the password hash.
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Image:    u.Image,
		IsAdmin:  u.IsAdmin,
	}
}
