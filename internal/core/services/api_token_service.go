package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/google/uuid"
)

// apiTokenKeyPrefix marks integration keys so they are recognisable in logs and secret scanners.
const apiTokenKeyPrefix = "ipk_"

// apiTokenService implements the APITokenSvc interface
type apiTokenService struct {
	BaseService
	tokenRepo repositories.APITokenRepository
	userSvc   portssvc.UserSvcFacade
}

// NewAPITokenService creates a new instance of apiTokenService
func NewAPITokenService(tokenRepo repositories.APITokenRepository, userSvc portssvc.UserSvcFacade, tenantAuthorizer portssvc.TenantAuthorizerSvc) portssvc.APITokenSvc {
	return &apiTokenService{
		BaseService: BaseService{TenantAuthorizer: tenantAuthorizer},
		tokenRepo:   tokenRepo,
		userSvc:     userSvc,
	}
}

var _ portssvc.APITokenSvc = (*apiTokenService)(nil)

// CreateToken generates a new API token for the user
func (s *apiTokenService) CreateToken(ctx context.Context, userID, name string, tenantID *string, expiresIn *time.Duration) (string, *domain.APIToken, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("%w: user ID is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return "", nil, fmt.Errorf("%w: token name is required", apperrors.ErrValidation)
	}
	if tenantID != nil {
		// Only agents may mint keys that act inside a tenant.
		if err := s.AuthorizeUser(ctx, userID, *tenantID, domain.RoleAgent); err != nil {
			return "", nil, err
		}
	}

	token, err := utils.GenerateAPIKey(apiTokenKeyPrefix, 32)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.CurrentTime()
	apiToken := &domain.APIToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TenantID:  tenantID,
		Name:      name,
		TokenHash: utils.HashToken(token),
		CreatedAt: now,
	}
	if expiresIn != nil {
		expiry := now.Add(*expiresIn)
		apiToken.ExpiresAt = &expiry
	}

	if err := s.tokenRepo.Create(ctx, apiToken); err != nil {
		s.LogError(ctx, err, "Failed to save API token", slog.String("user_id", userID))
		return "", nil, fmt.Errorf("failed to save token: %w", err)
	}
	s.LogInfo(ctx, "API token created", slog.String("user_id", userID), slog.String("token_id", apiToken.ID))

	// The plaintext token is only available here
	return token, apiToken, nil
}

// ListTokens returns all API tokens for a user
func (s *apiTokenService) ListTokens(ctx context.Context, userID string) ([]domain.APIToken, error) {
	tokens, err := s.tokenRepo.FindByUserID(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list API tokens", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	if tokens == nil {
		return []domain.APIToken{}, nil
	}
	return tokens, nil
}

// RevokeToken deletes a specific API token for a user
func (s *apiTokenService) RevokeToken(ctx context.Context, userID, tokenID string) error {
	if err := s.tokenRepo.Delete(ctx, userID, tokenID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to revoke API token", slog.String("token_id", tokenID))
		}
		return err
	}
	s.LogInfo(ctx, "API token revoked", slog.String("user_id", userID), slog.String("token_id", tokenID))
	return nil
}

// PurgeExpiredTokens deletes every token that has expired
func (s *apiTokenService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx, s.CurrentTime())
	if err != nil {
		s.LogError(ctx, err, "Failed to purge expired API tokens")
		return 0, err
	}
	if n > 0 {
		s.LogInfo(ctx, "Purged expired API tokens", slog.Int64("count", n))
	}
	return n, nil
}

// ValidateToken checks if a token is valid and returns the associated user
func (s *apiTokenService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, *domain.APIToken, error) {
	if !strings.HasPrefix(tokenString, apiTokenKeyPrefix) {
		return nil, nil, apperrors.ErrUnauthorized
	}
	token, err := s.tokenRepo.FindByTokenHash(ctx, utils.HashToken(tokenString))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrUnauthorized
		}
		return nil, nil, err
	}

	now := s.CurrentTime()
	if token.IsExpired(now) {
		s.LogDebug(ctx, "Expired API token presented", slog.String("token_id", token.ID))
		return nil, nil, apperrors.ErrUnauthorized
	}

	if err := s.tokenRepo.TouchLastUsed(ctx, token.ID, now); err != nil {
		s.LogError(ctx, err, "Failed to record API token use", slog.String("token_id", token.ID))
	}

	user, err := s.userSvc.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.DeletedAt != nil {
		return nil, nil, apperrors.ErrUnauthorized
	}
	return user, token, nil
}
