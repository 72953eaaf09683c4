package services_test

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/core/services"
	"github.com/SscSPs/insurance_platform/internal/platform/config"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testTokenConfig() *config.Config {
	return &config.Config{
		JWTSecret:                  "test-secret",
		JWTExpiryDuration:          time.Hour,
		JWTIssuer:                  "insurance-platform-test",
		RefreshTokenExpiryDuration: 24 * time.Hour,
	}
}

func TestTokenService_GenerateRefreshToken(t *testing.T) {
	svc := services.NewTokenService(testTokenConfig(), services.NewUserService(new(MockUserRepository)))

	raw, expiresAt, err := svc.GenerateRefreshToken(context.Background(), &domain.User{UserID: "u-1"})

	require.NoError(t, err)
	assert.Len(t, raw, 64)
	_, err = hex.DecodeString(raw)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)
}

func TestTokenService_ValidateAndParseRefreshToken(t *testing.T) {
	const raw = "raw-refresh-token"
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name    string
		user    *domain.User
		findErr error
		token   string
		wantErr error
	}{
		{"matching hash", &domain.User{UserID: "u-1", RefreshTokenHash: utils.HashToken(raw), RefreshTokenExpiryTime: &future}, nil, raw, nil},
		{"hash mismatch", &domain.User{UserID: "u-1", RefreshTokenHash: utils.HashToken(raw), RefreshTokenExpiryTime: &future}, nil, "other", apperrors.ErrUnauthorized},
		{"expired", &domain.User{UserID: "u-1", RefreshTokenHash: utils.HashToken(raw), RefreshTokenExpiryTime: &past}, nil, raw, apperrors.ErrRefreshTokenExpired},
		{"no stored token", &domain.User{UserID: "u-1"}, nil, raw, apperrors.ErrUnauthorized},
		{"unknown user", nil, apperrors.ErrNotFound, raw, apperrors.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			repo.On("FindUserByID", mock.Anything, "u-1").Return(tt.user, tt.findErr)
			svc := services.NewTokenService(testTokenConfig(), services.NewUserService(repo))

			user, err := svc.ValidateAndParseRefreshToken(context.Background(), "u-1", tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u-1", user.UserID)
		})
	}
}
