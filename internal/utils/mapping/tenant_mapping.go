package mapping

import (
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/models"
)

// ToModelTenant converts a domain Tenant to a model Tenant
func ToModelTenant(d domain.Tenant) models.Tenant {
	return models.Tenant{
		TenantID:     d.TenantID,
		Alias:        d.Alias,
		Name:         d.Name,
		CurrencyCode: d.CurrencyCode,
		IsActive:     d.IsActive,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTenant converts a model Tenant to a domain Tenant
func ToDomainTenant(m models.Tenant) domain.Tenant {
	return domain.Tenant{
		TenantID:     m.TenantID,
		Alias:        m.Alias,
		Name:         m.Name,
		CurrencyCode: m.CurrencyCode,
		IsActive:     m.IsActive,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTenantMembership converts a model TenantMembership to a domain TenantMembership
func ToDomainTenantMembership(m models.TenantMembership) domain.TenantMembership {
	return domain.TenantMembership{
		UserID:   m.UserID,
		UserName: m.UserName,
		TenantID: m.TenantID,
		Role:     domain.TenantRole(m.Role),
		JoinedAt: m.JoinedAt,
	}
}
