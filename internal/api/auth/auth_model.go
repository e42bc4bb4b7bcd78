package auth

import (
	"time"

	"github.com/FACorreiaa/tournament-auth/internal/types"
)

// RegisterParams describes a new account.
type RegisterParams struct {
	Username      string
	Email         string
	Password      string
	Role          types.Role
	ExternalID    string
	Confederation string
	Team          string
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"Str0ng!Pass12"`
}

// LoginResponse represents the login response body
type LoginResponse struct {
	Success   bool           `json:"success"`
	Token     string         `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	TokenType string         `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      types.UserView `json:"user"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username      string `json:"username" example:"alice"`
	Email         string `json:"email" example:"alice@example.com"`
	Password      string `json:"password" example:"Str0ng!Pass12"`
	Role          string `json:"role,omitempty" example:"PLAYER"` // defaults to PLAYER
	ExternalID    string `json:"external_id,omitempty" example:"P000123"`
	Confederation string `json:"confederation,omitempty" example:"UEFA"`
	Team          string `json:"team,omitempty" example:"Portugal"`
}

// ChangePasswordRequest represents the change password request body. The account is taken
// from the bearer token.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" example:"Str0nger!Pass99"`
}

// PasswordExpiredResponse reports whether an account must rotate its password.
type PasswordExpiredResponse struct {
	Username string `json:"username"`
	Expired  bool   `json:"expired"`
}

// MeResponse echoes the verified claims of the caller's token.
type MeResponse struct {
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	Issuer    string    `json:"issuer"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Response is a generic success/error body.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterResponse carries the created account.
type RegisterResponse struct {
	Success bool           `json:"success"`
	User    types.UserView `json:"user"`
}
