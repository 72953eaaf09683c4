package domain

import "time"

// APIToken authenticates machine clients, such as an external rating engine posting
// calculation results, as the user that created it.
type APIToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userID"`
	TenantID   *string    `json:"tenantID,omitempty"` // restricts the token to one tenant when set
	Name       string     `json:"name"`
	TokenHash  string     `json:"-"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IsExpired reports whether the token has expired at the given instant.
func (t *APIToken) IsExpired(at time.Time) bool {
	return t.ExpiresAt != nil && !at.Before(*t.ExpiresAt)
}

// AllowsTenant reports whether the token may act within the tenant.
func (t *APIToken) AllowsTenant(tenantID string) bool {
	return t.TenantID == nil || *t.TenantID == tenantID
}
