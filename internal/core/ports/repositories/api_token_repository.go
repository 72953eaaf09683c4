package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
)

// APITokenRepository stores integration keys used by rating engines and partner systems.
type APITokenRepository interface {
	// Create persists a new API token
	Create(ctx context.Context, token *domain.APIToken) error

	// FindByUserID retrieves all API tokens for a specific user
	FindByUserID(ctx context.Context, userID string) ([]domain.APIToken, error)

	// FindByTokenHash finds a live token by its hash
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.APIToken, error)

	// TouchLastUsed records when the token was last presented
	TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error

	// Delete removes an API token owned by the user
	Delete(ctx context.Context, userID, id string) error

	// DeleteExpired removes all tokens that expired before the given time
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
