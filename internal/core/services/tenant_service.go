package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/google/uuid"
)

// tenantService implements the TenantSvcFacade interface
type tenantService struct {
	BaseService
	tenantRepo portsrepo.TenantRepositoryFacade
}

// NewTenantService creates a new tenant service with the provided dependencies
func NewTenantService(tenantRepo portsrepo.TenantRepositoryFacade) portssvc.TenantSvcFacade {
	return &tenantService{tenantRepo: tenantRepo}
}

// Ensure tenantService implements the TenantSvcFacade interface
var _ portssvc.TenantSvcFacade = (*tenantService)(nil)

// FindTenantByID retrieves a tenant the requesting user belongs to
func (s *tenantService) FindTenantByID(ctx context.Context, tenantID, requestingUserID string) (*domain.Tenant, error) {
	if err := s.requireRole(ctx, requestingUserID, tenantID, domain.RoleReadOnly, false); err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find tenant by ID", slog.String("tenant_id", tenantID))
		}
		return nil, err
	}
	return tenant, nil
}

// ListUserTenants retrieves all tenants a user belongs to
func (s *tenantService) ListUserTenants(ctx context.Context, userID string, includeInactive bool) ([]domain.Tenant, error) {
	tenants, err := s.tenantRepo.ListTenantsByUserID(ctx, userID, includeInactive)
	if err != nil {
		s.LogError(ctx, err, "Failed to list tenants for user", slog.String("user_id", userID))
		return nil, err
	}
	if tenants == nil {
		return []domain.Tenant{}, nil
	}
	s.LogDebug(ctx, "Tenants listed successfully", slog.Int("count", len(tenants)), slog.String("user_id", userID))
	return tenants, nil
}

// ListTenantUsers retrieves the members of a tenant
func (s *tenantService) ListTenantUsers(ctx context.Context, tenantID, requestingUserID string) ([]domain.TenantMembership, error) {
	if err := s.requireRole(ctx, requestingUserID, tenantID, domain.RoleReadOnly, false); err != nil {
		return nil, err
	}
	members, err := s.tenantRepo.ListMemberships(ctx, tenantID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list tenant members", slog.String("tenant_id", tenantID))
		return nil, err
	}
	if members == nil {
		return []domain.TenantMembership{}, nil
	}
	return members, nil
}

// CreateTenant creates a new tenant with the creator as its first admin
func (s *tenantService) CreateTenant(ctx context.Context, req dto.CreateTenantRequest, creatorUserID string) (*domain.Tenant, error) {
	now := s.CurrentTime()
	tenant := domain.Tenant{
		TenantID:     uuid.NewString(),
		Alias:        req.Alias,
		Name:         req.Name,
		CurrencyCode: req.CurrencyCode,
		IsActive:     true,
		AuditFields:  domain.NewAuditFields(creatorUserID, now),
	}
	admin := domain.TenantMembership{
		UserID:   creatorUserID,
		TenantID: tenant.TenantID,
		Role:     domain.RoleAdmin,
		JoinedAt: now,
	}
	if err := s.tenantRepo.SaveTenant(ctx, tenant, admin); err != nil {
		s.LogError(ctx, err, "Failed to save tenant", slog.String("tenant_alias", tenant.Alias))
		return nil, err
	}
	s.LogInfo(ctx, "Tenant created successfully",
		slog.String("tenant_id", tenant.TenantID),
		slog.String("creator_id", creatorUserID))
	return &tenant, nil
}

// DeactivateTenant marks a tenant as inactive
func (s *tenantService) DeactivateTenant(ctx context.Context, tenantID, requestingUserID string) error {
	return s.setStatus(ctx, tenantID, requestingUserID, false)
}

// ActivateTenant marks a tenant as active
func (s *tenantService) ActivateTenant(ctx context.Context, tenantID, requestingUserID string) error {
	return s.setStatus(ctx, tenantID, requestingUserID, true)
}

func (s *tenantService) setStatus(ctx context.Context, tenantID, requestingUserID string, active bool) error {
	if err := s.requireRole(ctx, requestingUserID, tenantID, domain.RoleAdmin, false); err != nil {
		return err
	}
	if err := s.tenantRepo.UpdateTenantStatus(ctx, tenantID, active, requestingUserID); err != nil {
		s.LogError(ctx, err, "Failed to update tenant status",
			slog.String("tenant_id", tenantID), slog.Bool("active", active))
		return err
	}
	s.LogInfo(ctx, "Tenant status updated", slog.String("tenant_id", tenantID), slog.Bool("active", active))
	return nil
}

// AddUserToTenant adds a user to a tenant with a specific role
func (s *tenantService) AddUserToTenant(ctx context.Context, addingUserID, targetUserID, tenantID string, role domain.TenantRole) error {
	if role == domain.RoleRemoved || !role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", apperrors.ErrValidation, role)
	}
	if err := s.requireRole(ctx, addingUserID, tenantID, domain.RoleAdmin, true); err != nil {
		return err
	}
	return s.upsert(ctx, targetUserID, tenantID, role)
}

// RemoveUserFromTenant revokes a user's access to a tenant
func (s *tenantService) RemoveUserFromTenant(ctx context.Context, requestingUserID, targetUserID, tenantID string) error {
	if requestingUserID == targetUserID {
		return fmt.Errorf("%w: admins cannot remove themselves", apperrors.ErrValidation)
	}
	if err := s.requireRole(ctx, requestingUserID, tenantID, domain.RoleAdmin, true); err != nil {
		return err
	}
	if _, err := s.tenantRepo.FindMembership(ctx, targetUserID, tenantID); err != nil {
		return err
	}
	return s.upsert(ctx, targetUserID, tenantID, domain.RoleRemoved)
}

// UpdateUserTenantRole changes a member's role
func (s *tenantService) UpdateUserTenantRole(ctx context.Context, requestingUserID, targetUserID, tenantID string, newRole domain.TenantRole) error {
	if newRole == domain.RoleRemoved || !newRole.IsValid() {
		return fmt.Errorf("%w: invalid role %q", apperrors.ErrValidation, newRole)
	}
	if requestingUserID == targetUserID && newRole != domain.RoleAdmin {
		return fmt.Errorf("%w: admins cannot demote themselves", apperrors.ErrValidation)
	}
	if err := s.requireRole(ctx, requestingUserID, tenantID, domain.RoleAdmin, true); err != nil {
		return err
	}
	if _, err := s.tenantRepo.FindMembership(ctx, targetUserID, tenantID); err != nil {
		return err
	}
	return s.upsert(ctx, targetUserID, tenantID, newRole)
}

func (s *tenantService) upsert(ctx context.Context, userID, tenantID string, role domain.TenantRole) error {
	membership := domain.TenantMembership{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		JoinedAt: s.CurrentTime(),
	}
	if err := s.tenantRepo.UpsertMembership(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to update tenant membership",
			slog.String("target_user_id", userID),
			slog.String("tenant_id", tenantID))
		return err
	}
	s.LogInfo(ctx, "Tenant membership updated",
		slog.String("target_user_id", userID),
		slog.String("tenant_id", tenantID),
		slog.String("role", string(role)))
	return nil
}

// AuthorizeUserAction checks the user holds at least requiredRole in an active tenant
func (s *tenantService) AuthorizeUserAction(ctx context.Context, userID, tenantID string, requiredRole domain.TenantRole) error {
	return s.requireRole(ctx, userID, tenantID, requiredRole, true)
}

func (s *tenantService) requireRole(ctx context.Context, userID, tenantID string, requiredRole domain.TenantRole, requireActive bool) error {
	membership, err := s.tenantRepo.FindMembership(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "User not a member of tenant",
				slog.String("user_id", userID),
				slog.String("tenant_id", tenantID))
			return apperrors.ErrForbidden
		}
		s.LogError(ctx, err, "Failed to find tenant membership",
			slog.String("user_id", userID),
			slog.String("tenant_id", tenantID))
		return err
	}
	if !membership.Role.Satisfies(requiredRole) {
		s.LogDebug(ctx, "User does not have required role",
			slog.String("user_id", userID),
			slog.String("tenant_id", tenantID),
			slog.String("user_role", string(membership.Role)),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}
	if requireActive {
		tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
		if err != nil {
			return err
		}
		if !tenant.IsActive {
			return fmt.Errorf("%w: tenant %s is inactive", apperrors.ErrForbidden, tenantID)
		}
	}
	return nil
}
