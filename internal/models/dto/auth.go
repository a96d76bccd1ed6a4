package dto

import "github.com/artevasinkaizen-cmd/partesapp/internal/models"

// RegisterOptions mirrors the hosted SDK's signUp options object.
type RegisterOptions struct {
	Data map[string]any `json:"data"`
}

type RegisterRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Options  RegisterOptions `json:"options"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateRequest struct {
	Email string         `json:"email"`
	Data  map[string]any `json:"data"`
}

type SendCodeRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionResponse is the register/login/refresh success payload.
type SessionResponse struct {
	User    models.User    `json:"user"`
	Session models.Session `json:"session"`
}

type SendCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	DevCode string `json:"devCode,omitempty"`
}

type VerifyCodeResponse struct {
	Success bool `json:"success"`
}

type UserResponse struct {
	User models.User `json:"user"`
}

// UploadAvatarRequest carries a data-URL image for the given user.
type UploadAvatarRequest struct {
	Image  string `json:"image"`
	UserID any    `json:"userId"`
}

type UploadAvatarResponse struct {
	Success   bool   `json:"success"`
	AvatarURL string `json:"avatarUrl"`
}
