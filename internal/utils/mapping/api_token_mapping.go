package mapping

import (
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/models"
)

// ToModelAPIToken converts a domain APIToken to a model APIToken
func ToModelAPIToken(d domain.APIToken) models.APIToken {
	return models.APIToken{
		ID:         d.ID,
		UserID:     d.UserID,
		TenantID:   d.TenantID,
		Name:       d.Name,
		TokenHash:  d.TokenHash,
		LastUsedAt: d.LastUsedAt,
		ExpiresAt:  d.ExpiresAt,
		CreatedAt:  d.CreatedAt,
	}
}

// ToDomainAPIToken converts a model APIToken to a domain APIToken
func ToDomainAPIToken(m models.APIToken) domain.APIToken {
	return domain.APIToken{
		ID:         m.ID,
		UserID:     m.UserID,
		TenantID:   m.TenantID,
		Name:       m.Name,
		TokenHash:  m.TokenHash,
		LastUsedAt: m.LastUsedAt,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}
