package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	"github.com/stretchr/testify/mock"
)

// memoryQuoteRepo is an in-memory event store with read models, good enough for service tests.
type memoryQuoteRepo struct {
	mu       sync.Mutex
	events   map[string][]domain.EventEnvelope
	quotes   map[string]domain.QuoteReadModel
	policies map[string]domain.PolicyReadModel
	saveErr  error
	saves    int
}

func newMemoryQuoteRepo() *memoryQuoteRepo {
	return &memoryQuoteRepo{
		events:   map[string][]domain.EventEnvelope{},
		quotes:   map[string]domain.QuoteReadModel{},
		policies: map[string]domain.PolicyReadModel{},
	}
}

var _ portsrepo.QuoteRepositoryFacade = (*memoryQuoteRepo)(nil)

func streamKey(tenantID, aggregateID string) string {
	return tenantID + "/" + aggregateID
}

func (r *memoryQuoteRepo) LoadAggregate(_ context.Context, tenantID, aggregateID string) (*domain.QuoteAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events[streamKey(tenantID, aggregateID)]
	if len(events) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return domain.ReplayQuoteAggregate(tenantID, aggregateID, events)
}

func (r *memoryQuoteRepo) SaveAggregate(_ context.Context, agg *domain.QuoteAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	key := streamKey(agg.TenantID, agg.AggregateID)
	if len(r.events[key]) != agg.PersistedEventCount {
		return fmt.Errorf("%w: stream moved", apperrors.ErrConcurrencyConflict)
	}
	r.events[key] = append(r.events[key], agg.UnsavedEvents()...)
	agg.MarkEventsPersisted()
	for _, rm := range agg.QuoteReadModels() {
		r.quotes[rm.TenantID+"/"+rm.QuoteID] = rm
	}
	if p := agg.PolicyReadModel(); p != nil {
		r.policies[p.TenantID+"/"+p.PolicyNumber] = *p
	}
	r.saves++
	return nil
}

func (r *memoryQuoteRepo) LoadEvents(_ context.Context, tenantID, aggregateID string) ([]domain.EventEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.EventEnvelope(nil), r.events[streamKey(tenantID, aggregateID)]...), nil
}

func (r *memoryQuoteRepo) FindQuote(_ context.Context, tenantID, quoteID string) (*domain.QuoteReadModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.quotes[tenantID+"/"+quoteID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rm, nil
}

func (r *memoryQuoteRepo) ListQuotes(_ context.Context, tenantID string, filter portsrepo.QuoteFilter, limit int, _ *string) ([]domain.QuoteReadModel, *string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.QuoteReadModel
	for _, rm := range r.quotes {
		if rm.TenantID != tenantID {
			continue
		}
		if filter.WorkflowState != "" && rm.WorkflowState != filter.WorkflowState {
			continue
		}
		if filter.QuoteType != "" && rm.QuoteType != filter.QuoteType {
			continue
		}
		out = append(out, rm)
		if len(out) == limit {
			break
		}
	}
	return out, nil, nil
}

func (r *memoryQuoteRepo) FindPolicyByNumber(_ context.Context, tenantID, policyNumber string) (*domain.PolicyReadModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[tenantID+"/"+policyNumber]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *memoryQuoteRepo) ListPolicies(_ context.Context, tenantID string, limit int, _ *string) ([]domain.PolicyReadModel, *string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PolicyReadModel
	for _, p := range r.policies {
		if p.TenantID == tenantID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil, nil
}

// MockTenantAuthorizer is a testify mock of the tenant authorizer.
type MockTenantAuthorizer struct {
	mock.Mock
}

func (m *MockTenantAuthorizer) AuthorizeUserAction(ctx context.Context, userID, tenantID string, requiredRole domain.TenantRole) error {
	args := m.Called(ctx, userID, tenantID, requiredRole)
	return args.Error(0)
}

// roleAuthorizer grants access by a fixed role per user.
type roleAuthorizer map[string]domain.TenantRole

func (a roleAuthorizer) AuthorizeUserAction(_ context.Context, userID, _ string, requiredRole domain.TenantRole) error {
	role, ok := a[userID]
	if !ok || !role.Satisfies(requiredRole) {
		return apperrors.ErrForbidden
	}
	return nil
}

type sequenceNumbers struct {
	mu     sync.Mutex
	quotes int
	pols   int
}

func (n *sequenceNumbers) NextQuoteNumber() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.quotes++
	return fmt.Sprintf("Q-%04d", n.quotes)
}

func (n *sequenceNumbers) NextPolicyNumber() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pols++
	return fmt.Sprintf("P-%04d", n.pols)
}

type staticWorkflows struct{}

func (staticWorkflows) GetWorkflow(context.Context, string) (*domain.QuoteWorkflow, error) {
	return domain.DefaultQuoteWorkflow(), nil
}

// MockLocker records lock keys and can refuse them.
type MockLocker struct {
	mock.Mock
	mu       sync.Mutex
	released []string
}

func (m *MockLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.released = append(m.released, key)
		return nil
	}, nil
}

func (m *MockLocker) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

// MockMirror is a testify mock of the read model mirror.
type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) MirrorQuotes(ctx context.Context, quotes []domain.QuoteReadModel) error {
	args := m.Called(ctx, quotes)
	return args.Error(0)
}

// MockGateway is a testify mock of the payment gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req domain.PaymentRequest) (domain.PaymentOutcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.PaymentOutcome), args.Error(1)
}

// fixedClock returns a settable clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func bindingCalculation(premium string) []byte {
	return []byte(`{
		"state": "bindingQuote",
		"triggers": [],
		"payment": {"currencyCode": "AUD", "total": {"basePremium": ` + premium + `, "totalPayable": ` + premium + `}},
		"risk1": {"premium": {"basePremium": ` + premium + `}}
	}`)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
