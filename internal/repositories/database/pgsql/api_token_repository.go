package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/SscSPs/insurance_platform/internal/models"
	"github.com/SscSPs/insurance_platform/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAPITokenRepository struct {
	BaseRepository
}

// newPgxAPITokenRepository creates a new instance of PgxAPITokenRepository
func newPgxAPITokenRepository(db *pgxpool.Pool) portsrepo.APITokenRepository {
	return &PgxAPITokenRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.APITokenRepository = (*PgxAPITokenRepository)(nil)

const (
	apiTokensTable = "api_tokens"

	selectAPITokenFields = `
		api_token_id, user_id, tenant_id, name, token_hash,
		last_used_at, expires_at, created_at
	`

	insertAPITokenQuery = `
		INSERT INTO ` + apiTokensTable + ` (
			api_token_id, user_id, tenant_id, name, token_hash, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	findAPITokenByUserIDQuery = `
		SELECT ` + selectAPITokenFields + `
		FROM ` + apiTokensTable + `
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	findAPITokenByHashQuery = `
		SELECT ` + selectAPITokenFields + `
		FROM ` + apiTokensTable + `
		WHERE token_hash = $1
	`

	touchAPITokenQuery = `
		UPDATE ` + apiTokensTable + `
		SET last_used_at = $2
		WHERE api_token_id = $1
	`

	deleteAPITokenQuery = `
		DELETE FROM ` + apiTokensTable + `
		WHERE api_token_id = $1 AND user_id = $2
	`

	deleteExpiredAPITokensQuery = `
		DELETE FROM ` + apiTokensTable + `
		WHERE expires_at < $1
	`
)

// Create persists a new API token
func (r *PgxAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	m := mapping.ToModelAPIToken(*token)
	_, err := r.Pool.Exec(ctx, insertAPITokenQuery,
		m.ID, m.UserID, m.TenantID, m.Name, m.TokenHash, m.ExpiresAt, m.CreatedAt,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return fmt.Errorf("api token already exists: %w", apperrors.ErrDuplicate)
		case pgForeignKeyViolation:
			return fmt.Errorf("unknown user or tenant for api token: %w", apperrors.ErrValidation)
		}
		return fmt.Errorf("failed to create api token: %w", err)
	}
	return nil
}

// FindByUserID retrieves all API tokens for a specific user
func (r *PgxAPITokenRepository) FindByUserID(ctx context.Context, userID string) ([]domain.APIToken, error) {
	rows, err := r.Pool.Query(ctx, findAPITokenByUserIDQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query api tokens: %w", err)
	}
	modelTokens, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.APIToken])
	if err != nil {
		return nil, fmt.Errorf("failed to scan api tokens: %w", err)
	}

	tokens := make([]domain.APIToken, len(modelTokens))
	for i, m := range modelTokens {
		tokens[i] = mapping.ToDomainAPIToken(m)
	}
	return tokens, nil
}

// FindByTokenHash finds a token by its hash
func (r *PgxAPITokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.APIToken, error) {
	rows, err := r.Pool.Query(ctx, findAPITokenByHashQuery, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query api token: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.APIToken])
	if err != nil {
		return nil, notFoundOr(err, "failed to scan api token")
	}
	token := mapping.ToDomainAPIToken(m)
	return &token, nil
}

// TouchLastUsed records when the token was last presented
func (r *PgxAPITokenRepository) TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	if _, err := r.Pool.Exec(ctx, touchAPITokenQuery, id, usedAt); err != nil {
		return fmt.Errorf("failed to touch api token: %w", err)
	}
	return nil
}

// Delete removes an API token owned by the user
func (r *PgxAPITokenRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.Pool.Exec(ctx, deleteAPITokenQuery, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete api token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteExpired removes all tokens that expired before the given time
func (r *PgxAPITokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if before.IsZero() {
		return 0, fmt.Errorf("%w: cutoff time is required", apperrors.ErrValidation)
	}
	result, err := r.Pool.Exec(ctx, deleteExpiredAPITokensQuery, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired api tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
