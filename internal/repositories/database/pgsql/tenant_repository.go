package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/SscSPs/insurance_platform/internal/models"
	"github.com/SscSPs/insurance_platform/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxTenantRepository implements the tenant repository facade using pgx.
type PgxTenantRepository struct {
	BaseRepository
}

// newPgxTenantRepository creates a new repository for tenant data.
func newPgxTenantRepository(pool *pgxpool.Pool) portsrepo.TenantRepositoryFacade {
	return &PgxTenantRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TenantRepositoryFacade = (*PgxTenantRepository)(nil)

const (
	selectTenantFields = `
		t.tenant_id, t.alias, t.name, t.currency_code, t.is_active,
		t.created_at, t.created_by, t.last_updated_at, t.last_updated_by
	`

	selectMembershipFields = `
		m.user_id, u.name AS user_name, m.tenant_id, m.role, m.joined_at
	`

	upsertMembershipQuery = `
		INSERT INTO tenant_memberships (user_id, tenant_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, tenant_id) DO UPDATE SET role = EXCLUDED.role;
	`
)

func (r *PgxTenantRepository) getTenants(ctx context.Context, query string, args ...any) ([]domain.Tenant, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	modelTenants, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Tenant])
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenants: %w", err)
	}

	tenants := make([]domain.Tenant, len(modelTenants))
	for i, m := range modelTenants {
		tenants[i] = mapping.ToDomainTenant(m)
	}
	return tenants, nil
}

// SaveTenant inserts the tenant and its first admin membership in one transaction.
func (r *PgxTenantRepository) SaveTenant(ctx context.Context, tenant domain.Tenant, admin domain.TenantMembership) error {
	m := mapping.ToModelTenant(tenant)
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tenants (tenant_id, alias, name, currency_code, is_active, created_at, created_by, last_updated_at, last_updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
			m.TenantID, m.Alias, m.Name, m.CurrencyCode, m.IsActive,
			m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
		)
		if err != nil {
			if pgErrorCode(err) == pgUniqueViolation {
				return fmt.Errorf("tenant alias %q is taken: %w", tenant.Alias, apperrors.ErrDuplicate)
			}
			return fmt.Errorf("failed to insert tenant: %w", err)
		}

		if _, err := tx.Exec(ctx, upsertMembershipQuery, admin.UserID, admin.TenantID, string(admin.Role), admin.JoinedAt); err != nil {
			return fmt.Errorf("failed to add tenant admin: %w", err)
		}
		return nil
	})
}

// FindTenantByID retrieves a tenant by its ID.
func (r *PgxTenantRepository) FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	tenants, err := r.getTenants(ctx, `SELECT `+selectTenantFields+` FROM tenants t WHERE t.tenant_id = $1;`, tenantID)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &tenants[0], nil
}

// ListTenantsByUserID retrieves the tenants where the user holds any role except REMOVED.
func (r *PgxTenantRepository) ListTenantsByUserID(ctx context.Context, userID string, includeInactive bool) ([]domain.Tenant, error) {
	query := `
		SELECT ` + selectTenantFields + `
		FROM tenants t
		JOIN tenant_memberships m ON m.tenant_id = t.tenant_id
		WHERE m.user_id = $1 AND m.role <> $2 AND ($3 OR t.is_active)
		ORDER BY t.name;
	`
	return r.getTenants(ctx, query, userID, string(domain.RoleRemoved), includeInactive)
}

// UpdateTenantStatus activates or deactivates a tenant.
func (r *PgxTenantRepository) UpdateTenantStatus(ctx context.Context, tenantID string, isActive bool, updatedBy string) error {
	cmdTag, err := r.Pool.Exec(ctx, `
		UPDATE tenants
		SET is_active = $1, last_updated_at = NOW(), last_updated_by = $2
		WHERE tenant_id = $3;`,
		isActive, updatedBy, tenantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpsertMembership adds a user to a tenant or changes their role.
func (r *PgxTenantRepository) UpsertMembership(ctx context.Context, membership domain.TenantMembership) error {
	_, err := r.Pool.Exec(ctx, upsertMembershipQuery,
		membership.UserID, membership.TenantID, string(membership.Role), membership.JoinedAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("unknown user or tenant: %w", apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to upsert tenant membership: %w", err)
	}
	return nil
}

// FindMembership retrieves the role of a user in a tenant.
func (r *PgxTenantRepository) FindMembership(ctx context.Context, userID, tenantID string) (*domain.TenantMembership, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectMembershipFields+`
		FROM tenant_memberships m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.user_id = $1 AND m.tenant_id = $2;`,
		userID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant membership: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.TenantMembership])
	if err != nil {
		return nil, notFoundOr(err, "failed to scan tenant membership")
	}
	membership := mapping.ToDomainTenantMembership(m)
	return &membership, nil
}

// ListMemberships retrieves all members of a tenant.
func (r *PgxTenantRepository) ListMemberships(ctx context.Context, tenantID string) ([]domain.TenantMembership, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectMembershipFields+`
		FROM tenant_memberships m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.tenant_id = $1
		ORDER BY m.joined_at;`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant memberships: %w", err)
	}
	modelMemberships, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.TenantMembership])
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant memberships: %w", err)
	}

	memberships := make([]domain.TenantMembership, len(modelMemberships))
	for i, m := range modelMemberships {
		memberships[i] = mapping.ToDomainTenantMembership(m)
	}
	return memberships, nil
}
