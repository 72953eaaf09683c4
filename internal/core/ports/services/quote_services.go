package services

import (
	"context"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/dto"
)

// QuoteView is a quote together with the aggregate that owns it and the workflow governing it.
type QuoteView struct {
	Aggregate *domain.QuoteAggregate
	Quote     *domain.Quote
	Workflow  *domain.QuoteWorkflow
}

// WorkflowProvider resolves the quote workflow of a product.
type WorkflowProvider interface {
	// GetWorkflow returns the product's workflow, or the default workflow when none is configured.
	GetWorkflow(ctx context.Context, productID string) (*domain.QuoteWorkflow, error)
}

// NumberGenerator issues customer facing quote and policy numbers.
type NumberGenerator interface {
	NextQuoteNumber() string
	NextPolicyNumber() string
}

// QuoteReaderSvc defines read operations for quotes
type QuoteReaderSvc interface {
	// GetQuote loads a quote from its aggregate.
	GetQuote(ctx context.Context, tenantID, quoteID, requestingUserID string) (*QuoteView, error)

	// ListQuotes lists quote projections of a tenant.
	ListQuotes(ctx context.Context, tenantID, requestingUserID string, params dto.ListQuotesParams) ([]domain.QuoteReadModel, *string, error)

	// GetQuoteHistory returns the stored events of the quote's aggregate.
	GetQuoteHistory(ctx context.Context, tenantID, quoteID, requestingUserID string) ([]domain.EventEnvelope, error)
}

// QuoteWriterSvc defines the commands that change quotes
type QuoteWriterSvc interface {
	// CreateQuote starts a new aggregate with a new business quote.
	CreateQuote(ctx context.Context, tenantID, userID string, req dto.CreateQuoteRequest) (*QuoteView, error)

	// UpdateFormData records a new form data revision.
	UpdateFormData(ctx context.Context, tenantID, quoteID, userID string, req dto.UpdateFormDataRequest) (*QuoteView, error)

	// RecordCalculation stores a calculation result and optionally performs the suggested action.
	RecordCalculation(ctx context.Context, tenantID, quoteID, userID string, req dto.RecordCalculationRequest) (*QuoteView, error)

	// PerformWorkflowAction moves the quote through its workflow.
	PerformWorkflowAction(ctx context.Context, tenantID, quoteID, userID string, action domain.QuoteAction) (*QuoteView, error)

	// CreateQuoteVersion snapshots the quote.
	CreateQuoteVersion(ctx context.Context, tenantID, quoteID, userID string) (*domain.QuoteVersion, error)
}

// QuoteSvcFacade combines all quote-related service interfaces
type QuoteSvcFacade interface {
	QuoteReaderSvc
	QuoteWriterSvc
}
