package services

import (
	"context"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/dto"
)

// TenantReaderSvc defines read operations for tenant data
type TenantReaderSvc interface {
	// FindTenantByID retrieves a tenant the requesting user belongs to.
	FindTenantByID(ctx context.Context, tenantID, requestingUserID string) (*domain.Tenant, error)

	// ListUserTenants retrieves the tenants a user belongs to.
	ListUserTenants(ctx context.Context, userID string, includeInactive bool) ([]domain.Tenant, error)

	// ListTenantUsers retrieves the members of a tenant.
	ListTenantUsers(ctx context.Context, tenantID, requestingUserID string) ([]domain.TenantMembership, error)
}

// TenantWriterSvc defines write operations for tenant data
type TenantWriterSvc interface {
	// CreateTenant persists a new tenant with its creator as admin.
	CreateTenant(ctx context.Context, req dto.CreateTenantRequest, creatorUserID string) (*domain.Tenant, error)

	// DeactivateTenant marks a tenant as inactive.
	DeactivateTenant(ctx context.Context, tenantID, requestingUserID string) error

	// ActivateTenant marks a tenant as active.
	ActivateTenant(ctx context.Context, tenantID, requestingUserID string) error
}

// TenantMembershipSvc defines operations for managing tenant membership
type TenantMembershipSvc interface {
	// AddUserToTenant adds a user to a tenant with a role. Only tenant admins may do so.
	AddUserToTenant(ctx context.Context, addingUserID, targetUserID, tenantID string, role domain.TenantRole) error

	// RemoveUserFromTenant revokes a user's access to a tenant.
	RemoveUserFromTenant(ctx context.Context, requestingUserID, targetUserID, tenantID string) error

	// UpdateUserTenantRole changes a member's role.
	UpdateUserTenantRole(ctx context.Context, requestingUserID, targetUserID, tenantID string, newRole domain.TenantRole) error
}

// TenantAuthorizerSvc defines operations for tenant authorization
type TenantAuthorizerSvc interface {
	// AuthorizeUserAction checks the user holds at least requiredRole in an active tenant.
	AuthorizeUserAction(ctx context.Context, userID, tenantID string, requiredRole domain.TenantRole) error
}

// TenantSvcFacade combines all tenant-related service interfaces
type TenantSvcFacade interface {
	TenantReaderSvc
	TenantWriterSvc
	TenantMembershipSvc
	TenantAuthorizerSvc
}
