package dto

import (
	"time"

	"github.com/spec-kit/emergency-backend/internal/domain"
	"github.com/spec-kit/emergency-backend/internal/service"
)

// RegisterRequest payload for new users.
type RegisterRequest struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// EphemeralTokenRequest asks for a short-lived token. Zero means the default.
type EphemeralTokenRequest struct {
	DurationMinutes int `json:"duracao_minutos"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID           int64      `json:"id"`
	Name         string     `json:"nome"`
	Email        string     `json:"email"`
	CreatedAt    *time.Time `json:"data_criacao,omitempty"`
	LastActivity *time.Time `json:"ultima_atividade,omitempty"`
}

// AuthResponse standard response for endpoints that mint tokens.
type AuthResponse struct {
	User      *UserResponse `json:"usuario,omitempty"`
	Token     string        `json:"token"`
	ExpiresAt int64         `json:"expiracao"`
	Ephemeral bool          `json:"temporario,omitempty"`
}

// NewUserResponse maps a domain user, dropping zero timestamps.
func NewUserResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	resp := &UserResponse{ID: user.ID, Name: user.Name, Email: user.Email}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		resp.CreatedAt = &createdAt
	}
	if !user.LastActivity.IsZero() {
		lastActivity := user.LastActivity
		resp.LastActivity = &lastActivity
	}
	return resp
}

// NewAuthResponse maps a service result.
func NewAuthResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:      NewUserResponse(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Ephemeral: result.Ephemeral,
	}
}
