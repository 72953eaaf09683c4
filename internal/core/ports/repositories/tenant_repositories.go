package repositories

import (
	"context"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
)

// TenantReader defines read operations for tenant data
type TenantReader interface {
	// FindTenantByID retrieves a specific tenant by its ID.
	FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error)

	// ListTenantsByUserID retrieves the tenants a user belongs to.
	ListTenantsByUserID(ctx context.Context, userID string, includeInactive bool) ([]domain.Tenant, error)
}

// TenantWriter defines write operations for tenant data
type TenantWriter interface {
	// SaveTenant persists a new tenant and its first admin in one transaction.
	SaveTenant(ctx context.Context, tenant domain.Tenant, admin domain.TenantMembership) error

	// UpdateTenantStatus activates or deactivates a tenant.
	UpdateTenantStatus(ctx context.Context, tenantID string, isActive bool, updatedBy string) error
}

// TenantMembershipManager defines operations for managing tenant memberships
type TenantMembershipManager interface {
	// UpsertMembership adds a user to a tenant or changes their role.
	UpsertMembership(ctx context.Context, membership domain.TenantMembership) error

	// FindMembership retrieves the role of a user in a tenant.
	FindMembership(ctx context.Context, userID, tenantID string) (*domain.TenantMembership, error)

	// ListMemberships retrieves all members of a tenant.
	ListMemberships(ctx context.Context, tenantID string) ([]domain.TenantMembership, error)
}

// TenantRepositoryFacade combines all tenant-related repository interfaces
type TenantRepositoryFacade interface {
	TenantReader
	TenantWriter
	TenantMembershipManager
}
