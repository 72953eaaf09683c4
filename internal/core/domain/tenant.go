package domain

import "time"

// Tenant is an insurer or broker organisation. Quotes and policies never cross tenants.
type Tenant struct {
	TenantID     string `json:"tenantID"`
	Alias        string `json:"alias"` // URL friendly unique name
	Name         string `json:"name"`
	CurrencyCode string `json:"currencyCode"`
	IsActive     bool   `json:"isActive"`
	AuditFields
}

// TenantRole is the role a user holds within a tenant.
type TenantRole string

const (
	RoleAdmin       TenantRole = "ADMIN"
	RoleUnderwriter TenantRole = "UNDERWRITER" // may approve referrals and endorsements
	RoleAgent       TenantRole = "AGENT"       // may quote and bind
	RoleReadOnly    TenantRole = "READONLY"
	RoleRemoved     TenantRole = "REMOVED"
)

var roleRank = map[TenantRole]int{
	RoleReadOnly:    1,
	RoleAgent:       2,
	RoleUnderwriter: 3,
	RoleAdmin:       4,
}

// IsValid reports whether r is an assignable role.
func (r TenantRole) IsValid() bool {
	_, ok := roleRank[r]
	return ok || r == RoleRemoved
}

// Satisfies reports whether r grants at least the access of required.
func (r TenantRole) Satisfies(required TenantRole) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[required]
}

// TenantMembership links a user to a tenant.
type TenantMembership struct {
	UserID   string     `json:"userID"`
	UserName string     `json:"userName"`
	TenantID string     `json:"tenantID"`
	Role     TenantRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

// RequiredRoleForAction is the minimum role needed to perform a workflow action.
func RequiredRoleForAction(action QuoteAction) TenantRole {
	switch action {
	case ActionReviewApproval, ActionEndorsementApproval, ActionDecline:
		return RoleUnderwriter
	default:
		return RoleAgent
	}
}
