package domain

import "time"

// RefreshToken is an opaque bearer secret persisted per login.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
	RefreshExpiresAt     time.Time
}
