package services

import (
	"context"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
)

// APITokenSvc manages integration keys
type APITokenSvc interface {
	// CreateToken generates a new API token for the user, optionally restricted to one tenant.
	// Returns the plaintext token (only shown once) and the token details
	CreateToken(ctx context.Context, userID, name string, tenantID *string, expiresIn *time.Duration) (string, *domain.APIToken, error)

	// ListTokens returns all API tokens for a user
	ListTokens(ctx context.Context, userID string) ([]domain.APIToken, error)

	// RevokeToken deletes a specific API token for a user
	RevokeToken(ctx context.Context, userID, tokenID string) error

	// PurgeExpiredTokens deletes every token that has expired
	PurgeExpiredTokens(ctx context.Context) (int64, error)

	// ValidateToken checks a presented token and returns its owner.
	// Updates the last_used_at timestamp if the token is valid
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, *domain.APIToken, error)
}
