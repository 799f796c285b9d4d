package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/corvid-labs/auth-service/internal/config"
	"github.com/corvid-labs/auth-service/internal/domain"
)

// AccessTokenType discriminates access tokens from any other JWT signed with the same secret.
const AccessTokenType = "access"

// RefreshTokenBytes is the amount of entropy in a refresh token.
const RefreshTokenBytes = 64

// ErrInvalidToken is returned for every access token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims describes the access token payload.
type AccessClaims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Type   string      `json:"type"`
	jwt.RegisteredClaims
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// TokenManager handles issuing and validating access and refresh tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager. A missing secret or non-positive
// access lifetime is a configuration error.
func NewTokenManager(cfg config.AuthConfig, opts ...TokenOption) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, &config.ConfigError{Key: "JWT_ACCESS_SECRET", Err: config.ErrMissingSecret}
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, &config.ConfigError{Key: "JWT_ACCESS_EXPIRES_IN", Err: errors.New("must be positive")}
	}

	tm := &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
	if tm.refreshTTL <= 0 {
		tm.refreshTTL = 7 * 24 * time.Hour
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// IssueAccessToken builds and signs a JWT for the user.
func (tm *TokenManager) IssueAccessToken(userID, email string, role domain.Role) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.accessTTL)
	claims := &AccessClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   AccessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// VerifyAccessToken validates signature, expiry and the access discriminator.
// Every failure is reported as ErrInvalidToken.
func (tm *TokenManager) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Type != AccessTokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueRefreshToken returns a hex-encoded random bearer secret.
func (tm *TokenManager) IssueRefreshToken() (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RefreshTokenExpiration returns when a refresh token issued at now expires.
func (tm *TokenManager) RefreshTokenExpiration(now time.Time) time.Time {
	return now.Add(tm.refreshTTL)
}

// Now exposes the manager clock so callers stamp records consistently.
func (tm *TokenManager) Now() time.Time {
	return tm.now()
}
