package repository

import (
	"context"
	"fmt"

	"github.com/corvid-labs/auth-service/internal/domain"
)

// RefreshTokenRepository manages refresh token persistence.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
}

type refreshTokenRepository struct {
	db DBTX
}

// NewRefreshTokenRepository constructs repository.
func NewRefreshTokenRepository(db DBTX) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (token, user_id, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	if err := r.db.QueryRow(ctx, query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}
