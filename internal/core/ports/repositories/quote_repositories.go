package repositories

import (
	"context"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
)

// QuoteAggregateStore persists quote aggregates as event streams.
type QuoteAggregateStore interface {
	// LoadAggregate replays the aggregate's events. Returns apperrors.ErrNotFound for an empty stream.
	LoadAggregate(ctx context.Context, tenantID, aggregateID string) (*domain.QuoteAggregate, error)

	// SaveAggregate appends the unsaved events and refreshes the read models in one transaction.
	// A competing append returns apperrors.ErrConcurrencyConflict.
	SaveAggregate(ctx context.Context, aggregate *domain.QuoteAggregate) error

	// LoadEvents returns the stored events of an aggregate in sequence order.
	LoadEvents(ctx context.Context, tenantID, aggregateID string) ([]domain.EventEnvelope, error)
}

// QuoteFilter narrows quote listings.
type QuoteFilter struct {
	ProductID     string
	QuoteType     domain.QuoteType
	WorkflowState domain.QuoteState
}

// QuoteReadModelReader queries the quote projections.
type QuoteReadModelReader interface {
	// FindQuote retrieves the projection of a quote.
	FindQuote(ctx context.Context, tenantID, quoteID string) (*domain.QuoteReadModel, error)

	// ListQuotes lists quotes, most recently updated first, using token based pagination.
	ListQuotes(ctx context.Context, tenantID string, filter QuoteFilter, limit int, nextToken *string) ([]domain.QuoteReadModel, *string, error)
}

// PolicyReadModelReader queries the policy projections.
type PolicyReadModelReader interface {
	// FindPolicyByNumber retrieves the projection of a policy.
	FindPolicyByNumber(ctx context.Context, tenantID, policyNumber string) (*domain.PolicyReadModel, error)

	// ListPolicies lists policies, most recently issued first, using token based pagination.
	ListPolicies(ctx context.Context, tenantID string, limit int, nextToken *string) ([]domain.PolicyReadModel, *string, error)
}

// QuoteRepositoryFacade combines the write and read sides.
type QuoteRepositoryFacade interface {
	QuoteAggregateStore
	QuoteReadModelReader
	PolicyReadModelReader
}

// ReadModelMirror copies quote projections to a secondary store.
type ReadModelMirror interface {
	MirrorQuotes(ctx context.Context, quotes []domain.QuoteReadModel) error
}
