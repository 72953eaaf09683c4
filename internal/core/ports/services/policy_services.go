package services

import (
	"context"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/dto"
)

// PolicyReaderSvc defines read operations for policies
type PolicyReaderSvc interface {
	// GetPolicy loads the aggregate owning the policy.
	GetPolicy(ctx context.Context, tenantID, policyNumber, requestingUserID string) (*domain.QuoteAggregate, error)

	// ListPolicies lists policy projections of a tenant.
	ListPolicies(ctx context.Context, tenantID, requestingUserID string, params dto.ListPoliciesParams) ([]domain.PolicyReadModel, *string, error)
}

// PolicyWriterSvc defines the commands that change policies
type PolicyWriterSvc interface {
	// StartPolicyQuote opens a renewal, adjustment or cancellation quote on an issued policy.
	StartPolicyQuote(ctx context.Context, tenantID, policyNumber, userID string, req dto.StartPolicyQuoteRequest) (*QuoteView, error)

	// CompletePolicyTransaction binds an approved quote into a policy transaction.
	CompletePolicyTransaction(ctx context.Context, tenantID, quoteID, userID string) (*domain.QuoteAggregate, *domain.PolicyTransaction, error)
}

// PolicySvcFacade combines all policy-related service interfaces
type PolicySvcFacade interface {
	PolicyReaderSvc
	PolicyWriterSvc
}

// PolicyDataPatchSvc applies scoped data corrections to an aggregate.
type PolicyDataPatchSvc interface {
	PatchPolicyData(ctx context.Context, tenantID, aggregateID, userID string, req dto.PolicyDataPatchRequest) (*domain.PolicyDataPatchedEvent, error)
}
