package dto

import (
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
)

// --- Tenant DTOs ---

// CreateTenantRequest defines data for creating a new tenant.
type CreateTenantRequest struct {
	Alias        string `json:"alias" binding:"required,min=2,max=64,alphanum"`
	Name         string `json:"name" binding:"required"`
	CurrencyCode string `json:"currencyCode" binding:"required,iso4217"`
}

// TenantResponse defines data returned for a tenant.
type TenantResponse struct {
	TenantID      string    `json:"tenantID"`
	Alias         string    `json:"alias"`
	Name          string    `json:"name"`
	CurrencyCode  string    `json:"currencyCode"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"`
}

// ToTenantResponse converts domain.Tenant to DTO.
func ToTenantResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		TenantID:      t.TenantID,
		Alias:         t.Alias,
		Name:          t.Name,
		CurrencyCode:  t.CurrencyCode,
		IsActive:      t.IsActive,
		CreatedAt:     t.CreatedAt,
		CreatedBy:     t.CreatedBy,
		LastUpdatedAt: t.LastUpdatedAt,
		LastUpdatedBy: t.LastUpdatedBy,
	}
}

// ListTenantsResponse wraps a list of tenants.
type ListTenantsResponse struct {
	Tenants []TenantResponse `json:"tenants"`
}

// ToListTenantsResponse converts a slice of domain.Tenant to DTO.
func ToListTenantsResponse(ts []domain.Tenant) ListTenantsResponse {
	list := make([]TenantResponse, len(ts))
	for i := range ts {
		list[i] = ToTenantResponse(&ts[i])
	}
	return ListTenantsResponse{Tenants: list}
}

// --- Tenant Membership DTOs ---

// AddTenantUserRequest defines data for adding a user to a tenant.
type AddTenantUserRequest struct {
	UserID string            `json:"userID" binding:"required"`
	Role   domain.TenantRole `json:"role" binding:"required,oneof=ADMIN UNDERWRITER AGENT READONLY"`
}

// UpdateTenantUserRoleRequest defines data for changing a member's role.
type UpdateTenantUserRoleRequest struct {
	Role domain.TenantRole `json:"role" binding:"required,oneof=ADMIN UNDERWRITER AGENT READONLY"`
}

// TenantMemberResponse defines data returned about a user's membership.
type TenantMemberResponse struct {
	UserID   string            `json:"userID"`
	UserName string            `json:"userName,omitempty"`
	TenantID string            `json:"tenantID"`
	Role     domain.TenantRole `json:"role"`
	JoinedAt time.Time         `json:"joinedAt"`
}

// ToTenantMemberResponse converts domain.TenantMembership to DTO.
func ToTenantMemberResponse(m *domain.TenantMembership) TenantMemberResponse {
	return TenantMemberResponse{
		UserID:   m.UserID,
		UserName: m.UserName,
		TenantID: m.TenantID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
}

// ListTenantMembersResponse wraps the members of a tenant.
type ListTenantMembersResponse struct {
	Members []TenantMemberResponse `json:"members"`
}

// ToListTenantMembersResponse converts memberships to DTO.
func ToListTenantMembersResponse(ms []domain.TenantMembership) ListTenantMembersResponse {
	list := make([]TenantMemberResponse, len(ms))
	for i := range ms {
		list[i] = ToTenantMemberResponse(&ms[i])
	}
	return ListTenantMembersResponse{Members: list}
}
