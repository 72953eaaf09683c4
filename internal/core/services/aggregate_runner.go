package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
)

// aggregateRunner loads, mutates and saves quote aggregates one writer at a time.
type aggregateRunner struct {
	BaseService
	repo   portsrepo.QuoteRepositoryFacade
	locker portsrepo.AggregateLocker
	mirror portsrepo.ReadModelMirror
}

// AggregateOption is a functional option for the services that change quote aggregates
type AggregateOption func(*aggregateRunner)

// WithTenantAuthorizer adds tenant authorizer dependency
func WithTenantAuthorizer(authorizer portssvc.TenantAuthorizerSvc) AggregateOption {
	return func(r *aggregateRunner) {
		r.TenantAuthorizer = authorizer
	}
}

// WithAggregateLocker serializes writers of an aggregate through the locker
func WithAggregateLocker(locker portsrepo.AggregateLocker) AggregateOption {
	return func(r *aggregateRunner) {
		r.locker = locker
	}
}

// WithReadModelMirror copies quote projections to a secondary store after every save
func WithReadModelMirror(mirror portsrepo.ReadModelMirror) AggregateOption {
	return func(r *aggregateRunner) {
		r.mirror = mirror
	}
}

// WithClock replaces the service clock
func WithClock(now func() time.Time) AggregateOption {
	return func(r *aggregateRunner) {
		r.Now = now
	}
}

func newAggregateRunner(repo portsrepo.QuoteRepositoryFacade, options ...AggregateOption) aggregateRunner {
	r := aggregateRunner{repo: repo}
	for _, option := range options {
		option(&r)
	}
	return r
}

func aggregateLockKey(tenantID, aggregateID string) string {
	return fmt.Sprintf("quote-aggregate:%s:%s", tenantID, aggregateID)
}

// mutate runs fn against the latest state of the aggregate while holding its lock and
// persists whatever events fn recorded.
func (r *aggregateRunner) mutate(ctx context.Context, tenantID, aggregateID string, fn func(*domain.QuoteAggregate) error) (*domain.QuoteAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, aggregateLockKey(tenantID, aggregateID))
		if err != nil {
			r.LogError(ctx, err, "Failed to lock quote aggregate", slog.String("aggregate_id", aggregateID))
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				r.LogError(ctx, err, "Failed to release quote aggregate lock", slog.String("aggregate_id", aggregateID))
			}
		}()
	}

	agg, err := r.repo.LoadAggregate(ctx, tenantID, aggregateID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			r.LogError(ctx, err, "Failed to load quote aggregate", slog.String("aggregate_id", aggregateID))
		}
		return nil, err
	}
	if err := fn(agg); err != nil {
		return nil, err
	}
	if err := r.save(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// save persists the unsaved events of agg and mirrors its projections.
func (r *aggregateRunner) save(ctx context.Context, agg *domain.QuoteAggregate) error {
	pending := len(agg.UnsavedEvents())
	if pending == 0 {
		return nil
	}
	if err := r.repo.SaveAggregate(ctx, agg); err != nil {
		r.LogError(ctx, err, "Failed to save quote aggregate",
			slog.String("aggregate_id", agg.AggregateID),
			slog.Int("pending_events", pending))
		return err
	}
	r.LogDebug(ctx, "Quote aggregate saved",
		slog.String("aggregate_id", agg.AggregateID),
		slog.Int("events", pending),
		slog.Int("stream_length", agg.PersistedEventCount))
	if r.mirror != nil {
		if err := r.mirror.MirrorQuotes(ctx, agg.QuoteReadModels()); err != nil {
			// Mirror failures never fail the command.
			r.LogError(ctx, err, "Failed to mirror quote read models", slog.String("aggregate_id", agg.AggregateID))
		}
	}
	return nil
}

// locateQuote authorizes the user and finds the aggregate owning a quote.
func (r *aggregateRunner) locateQuote(ctx context.Context, tenantID, quoteID, userID string, role domain.TenantRole) (string, error) {
	if err := r.AuthorizeUser(ctx, userID, tenantID, role); err != nil {
		return "", err
	}
	rm, err := r.repo.FindQuote(ctx, tenantID, quoteID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			r.LogError(ctx, err, "Failed to find quote", slog.String("quote_id", quoteID))
			return "", err
		}
		return "", apperrors.NewDomainError(apperrors.ErrNotFound, domain.ErrCodeQuoteNotFound,
			fmt.Sprintf("quote %s was not found", quoteID), map[string]any{"quoteID": quoteID})
	}
	return rm.AggregateID, nil
}
