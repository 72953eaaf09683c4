package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/SscSPs/insurance_platform/internal/models"
	"github.com/SscSPs/insurance_platform/internal/utils/mapping"
	"github.com/SscSPs/insurance_platform/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxQuoteRepository stores quote aggregates as append only event streams with
// read models maintained in the same transaction.
type PgxQuoteRepository struct {
	BaseRepository
}

func newPgxQuoteRepository(pool *pgxpool.Pool) portsrepo.QuoteRepositoryFacade {
	return &PgxQuoteRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.QuoteRepositoryFacade = (*PgxQuoteRepository)(nil)

const (
	selectQuoteEventFields = `
		tenant_id, aggregate_id, sequence_number, event_type, payload, performing_user_id, created_at
	`

	insertQuoteEventQuery = `
		INSERT INTO quote_events (tenant_id, aggregate_id, sequence_number, event_type, payload, performing_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	selectQuoteReadModelFields = `
		tenant_id, aggregate_id, quote_id, product_id, quote_type, workflow_state,
		quote_number, policy_number, total_payable, currency_code, bindable, created_at, last_updated_at
	`

	upsertQuoteReadModelQuery = `
		INSERT INTO quote_read_models (` + selectQuoteReadModelFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, quote_id) DO UPDATE SET
			workflow_state = EXCLUDED.workflow_state,
			quote_number = EXCLUDED.quote_number,
			policy_number = EXCLUDED.policy_number,
			total_payable = EXCLUDED.total_payable,
			currency_code = EXCLUDED.currency_code,
			bindable = EXCLUDED.bindable,
			last_updated_at = EXCLUDED.last_updated_at;
	`

	selectPolicyReadModelFields = `
		tenant_id, aggregate_id, policy_id, policy_number, product_id, inception_date, expiry_date,
		cancellation_effective_date, transaction_count, total_charged, issued_at, last_updated_at
	`

	upsertPolicyReadModelQuery = `
		INSERT INTO policy_read_models (` + selectPolicyReadModelFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id, policy_number) DO UPDATE SET
			expiry_date = EXCLUDED.expiry_date,
			cancellation_effective_date = EXCLUDED.cancellation_effective_date,
			transaction_count = EXCLUDED.transaction_count,
			total_charged = EXCLUDED.total_charged,
			last_updated_at = EXCLUDED.last_updated_at;
	`
)

// LoadEvents returns the stored events of an aggregate in sequence order.
func (r *PgxQuoteRepository) LoadEvents(ctx context.Context, tenantID, aggregateID string) ([]domain.EventEnvelope, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectQuoteEventFields+`
		FROM quote_events
		WHERE tenant_id = $1 AND aggregate_id = $2
		ORDER BY sequence_number;`,
		tenantID, aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote events: %w", err)
	}
	modelEvents, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.QuoteEvent])
	if err != nil {
		return nil, fmt.Errorf("failed to scan quote events: %w", err)
	}

	events := make([]domain.EventEnvelope, 0, len(modelEvents))
	for _, m := range modelEvents {
		env, err := mapping.ToDomainEventEnvelope(m)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %d of aggregate %s: %w", m.SequenceNumber, aggregateID, err)
		}
		events = append(events, env)
	}
	return events, nil
}

// LoadAggregate replays the aggregate's events.
func (r *PgxQuoteRepository) LoadAggregate(ctx context.Context, tenantID, aggregateID string) (*domain.QuoteAggregate, error) {
	events, err := r.LoadEvents(ctx, tenantID, aggregateID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return domain.ReplayQuoteAggregate(tenantID, aggregateID, events)
}

// SaveAggregate appends the unsaved events and refreshes the read models.
// The (aggregate_id, sequence_number) key rejects a competing writer.
func (r *PgxQuoteRepository) SaveAggregate(ctx context.Context, agg *domain.QuoteAggregate) error {
	pending := agg.UnsavedEvents()
	if len(pending) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, env := range pending {
		m, err := mapping.ToModelQuoteEvent(env)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", env.EventType(), err)
		}
		batch.Queue(insertQuoteEventQuery,
			m.TenantID, m.AggregateID, m.SequenceNumber, m.EventType, m.Payload, m.PerformingUserID, m.CreatedAt)
	}
	for _, q := range agg.QuoteReadModels() {
		batch.Queue(upsertQuoteReadModelQuery,
			q.TenantID, q.AggregateID, q.QuoteID, q.ProductID, string(q.QuoteType), string(q.WorkflowState),
			q.QuoteNumber, q.PolicyNumber, q.TotalPayable, q.CurrencyCode, q.Bindable, q.CreatedAt, q.LastUpdatedAt)
	}
	if p := agg.PolicyReadModel(); p != nil {
		batch.Queue(upsertPolicyReadModelQuery,
			p.TenantID, p.AggregateID, p.PolicyID, p.PolicyNumber, p.ProductID, p.InceptionDate, p.ExpiryDate,
			p.CancellationEffectiveDate, p.TransactionCount, p.TotalCharged, p.IssuedAt, p.LastUpdatedAt)
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("aggregate %s was modified concurrently: %w", agg.AggregateID, apperrors.ErrConcurrencyConflict)
		}
		return fmt.Errorf("failed to save quote aggregate: %w", err)
	}

	agg.MarkEventsPersisted()
	return nil
}

// FindQuote retrieves the projection of a quote.
func (r *PgxQuoteRepository) FindQuote(ctx context.Context, tenantID, quoteID string) (*domain.QuoteReadModel, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectQuoteReadModelFields+`
		FROM quote_read_models
		WHERE tenant_id = $1 AND quote_id = $2;`,
		tenantID, quoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.QuoteReadModel])
	if err != nil {
		return nil, notFoundOr(err, "failed to scan quote %s", quoteID)
	}
	q := mapping.ToDomainQuoteReadModel(m)
	return &q, nil
}

// ListQuotes lists quotes ordered by last update, newest first.
func (r *PgxQuoteRepository) ListQuotes(ctx context.Context, tenantID string, filter portsrepo.QuoteFilter, limit int, nextToken *string) ([]domain.QuoteReadModel, *string, error) {
	query := `
		SELECT ` + selectQuoteReadModelFields + `
		FROM quote_read_models
		WHERE tenant_id = $1
		  AND ($2 = '' OR product_id = $2)
		  AND ($3 = '' OR quote_type = $3)
		  AND ($4 = '' OR workflow_state = $4)`
	args := []any{tenantID, filter.ProductID, string(filter.QuoteType), string(filter.WorkflowState)}

	if nextToken != nil && *nextToken != "" {
		sortTime, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		query += ` AND (last_updated_at, quote_id) < ($5, $6)`
		args = append(args, sortTime, id)
	}
	query += fmt.Sprintf(` ORDER BY last_updated_at DESC, quote_id DESC LIMIT %d;`, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	modelQuotes, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.QuoteReadModel])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan quotes: %w", err)
	}

	page, next := pagination.NextToken(modelQuotes, limit, func(m models.QuoteReadModel) (time.Time, string) {
		return m.LastUpdatedAt, m.QuoteID
	})
	quotes := make([]domain.QuoteReadModel, len(page))
	for i, m := range page {
		quotes[i] = mapping.ToDomainQuoteReadModel(m)
	}
	return quotes, next, nil
}

// FindPolicyByNumber retrieves the projection of a policy.
func (r *PgxQuoteRepository) FindPolicyByNumber(ctx context.Context, tenantID, policyNumber string) (*domain.PolicyReadModel, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectPolicyReadModelFields+`
		FROM policy_read_models
		WHERE tenant_id = $1 AND policy_number = $2;`,
		tenantID, policyNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy: %w", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.PolicyReadModel])
	if err != nil {
		return nil, notFoundOr(err, "failed to scan policy %s", policyNumber)
	}
	p := mapping.ToDomainPolicyReadModel(m)
	return &p, nil
}

// ListPolicies lists policies ordered by issue time, newest first.
func (r *PgxQuoteRepository) ListPolicies(ctx context.Context, tenantID string, limit int, nextToken *string) ([]domain.PolicyReadModel, *string, error) {
	query := `
		SELECT ` + selectPolicyReadModelFields + `
		FROM policy_read_models
		WHERE tenant_id = $1`
	args := []any{tenantID}

	if nextToken != nil && *nextToken != "" {
		sortTime, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		query += ` AND (issued_at, policy_number) < ($2, $3)`
		args = append(args, sortTime, id)
	}
	query += fmt.Sprintf(` ORDER BY issued_at DESC, policy_number DESC LIMIT %d;`, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query policies: %w", err)
	}
	modelPolicies, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PolicyReadModel])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan policies: %w", err)
	}

	page, next := pagination.NextToken(modelPolicies, limit, func(m models.PolicyReadModel) (time.Time, string) {
		return m.IssuedAt, m.PolicyNumber
	})
	policies := make([]domain.PolicyReadModel, len(page))
	for i, m := range page {
		policies[i] = mapping.ToDomainPolicyReadModel(m)
	}
	return policies, next, nil
}
