package models

import "time"

// Tenant is a row of the tenants table.
type Tenant struct {
	TenantID     string `db:"tenant_id"`
	Alias        string `db:"alias"`
	Name         string `db:"name"`
	CurrencyCode string `db:"currency_code"`
	IsActive     bool   `db:"is_active"`
	AuditFields
}

// TenantMembership is a row of tenant_memberships joined with the user's name.
type TenantMembership struct {
	UserID   string    `db:"user_id"`
	UserName string    `db:"user_name"`
	TenantID string    `db:"tenant_id"`
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
}
