package dto

import (
	"time"

	"github.com/corvid-labs/auth-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     *string `json:"role,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken          string            `json:"accessToken"`
	AccessTokenExpiresAt time.Time         `json:"accessTokenExpiresAt"`
	RefreshToken         string            `json:"refreshToken"`
	User                 domain.PublicUser `json:"user"`
}

// MeResponse echoes the verified access token claims.
type MeResponse struct {
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Envelope wraps every successful response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
