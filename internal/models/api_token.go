package models

import "time"

// APIToken is a row of the api_tokens table.
type APIToken struct {
	ID         string     `db:"api_token_id"`
	UserID     string     `db:"user_id"`
	TenantID   *string    `db:"tenant_id"`
	Name       string     `db:"name"`
	TokenHash  string     `db:"token_hash"`
	LastUsedAt *time.Time `db:"last_used_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
}
