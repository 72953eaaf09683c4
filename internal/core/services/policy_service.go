package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/google/uuid"
)

// policyService implements the PolicySvcFacade interface
type policyService struct {
	aggregateRunner
	workflows portssvc.WorkflowProvider
	numbers   portssvc.NumberGenerator
}

// NewPolicyService creates a new policy service with the provided dependencies
func NewPolicyService(
	repo portsrepo.QuoteRepositoryFacade,
	workflows portssvc.WorkflowProvider,
	numbers portssvc.NumberGenerator,
	options ...AggregateOption,
) portssvc.PolicySvcFacade {
	return &policyService{
		aggregateRunner: newAggregateRunner(repo, options...),
		workflows:       workflows,
		numbers:         numbers,
	}
}

var _ portssvc.PolicySvcFacade = (*policyService)(nil)

func (s *policyService) GetPolicy(ctx context.Context, tenantID, policyNumber, requestingUserID string) (*domain.QuoteAggregate, error) {
	aggregateID, err := s.locatePolicy(ctx, tenantID, policyNumber, requestingUserID, domain.RoleReadOnly)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.LoadAggregate(ctx, tenantID, aggregateID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load policy aggregate", slog.String("aggregate_id", aggregateID))
		return nil, err
	}
	return agg, nil
}

func (s *policyService) ListPolicies(ctx context.Context, tenantID, requestingUserID string, params dto.ListPoliciesParams) ([]domain.PolicyReadModel, *string, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, tenantID, domain.RoleReadOnly); err != nil {
		return nil, nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	policies, next, err := s.repo.ListPolicies(ctx, tenantID, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list policies", slog.String("tenant_id", tenantID))
		return nil, nil, err
	}
	if policies == nil {
		policies = []domain.PolicyReadModel{}
	}
	return policies, next, nil
}

func (s *policyService) StartPolicyQuote(ctx context.Context, tenantID, policyNumber, userID string, req dto.StartPolicyQuoteRequest) (*portssvc.QuoteView, error) {
	aggregateID, err := s.locatePolicy(ctx, tenantID, policyNumber, userID, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	quoteID := uuid.NewString()
	var wf *domain.QuoteWorkflow
	agg, err := s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		if wf, err = s.workflows.GetWorkflow(ctx, agg.ProductID); err != nil {
			return err
		}
		now := s.CurrentTime()
		params := domain.PolicyQuoteParams{
			QuoteID:       quoteID,
			Type:          req.QuoteType,
			EffectiveDate: utcPtr(req.EffectiveDate),
			ExpiryDate:    utcPtr(req.ExpiryDate),
		}
		if len(req.FormData) > 0 {
			if !json.Valid(req.FormData) {
				return fmt.Errorf("%w: form data is not valid JSON", apperrors.ErrValidation)
			}
			params.FormData = &domain.FormData{FormDataID: uuid.NewString(), Data: req.FormData, CreatedAt: now}
		}
		if _, err := agg.StartPolicyQuote(params, userID, now); err != nil {
			return err
		}
		return agg.AssignQuoteNumber(quoteID, s.numbers.NextQuoteNumber(), userID, now)
	})
	if err != nil {
		return nil, err
	}
	q, _ := agg.FindQuote(quoteID)
	s.LogInfo(ctx, "Policy quote started",
		slog.String("policy_number", policyNumber),
		slog.String("quote_id", quoteID),
		slog.String("quote_type", string(req.QuoteType)))
	return &portssvc.QuoteView{Aggregate: agg, Quote: q, Workflow: wf}, nil
}

func (s *policyService) CompletePolicyTransaction(ctx context.Context, tenantID, quoteID, userID string) (*domain.QuoteAggregate, *domain.PolicyTransaction, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, userID, domain.RoleAgent)
	if err != nil {
		return nil, nil, err
	}
	var tx *domain.PolicyTransaction
	agg, err := s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		wf, err := s.workflows.GetWorkflow(ctx, agg.ProductID)
		if err != nil {
			return err
		}
		policyNumber := ""
		if agg.Policy == nil {
			policyNumber = s.numbers.NextPolicyNumber()
		}
		tx, err = agg.CompletePolicyTransaction(wf, quoteID, uuid.NewString(), policyNumber, userID, s.CurrentTime())
		return err
	})
	if err != nil {
		if apperrors.HasCode(err, domain.ErrCodeAdjustmentPolicyExpired) || apperrors.HasCode(err, domain.ErrCodeCancellationPolicyExpired) {
			s.LogInfo(ctx, "Rejected policy transaction for an expired policy", slog.String("quote_id", quoteID))
		}
		return nil, nil, err
	}
	s.LogInfo(ctx, "Policy transaction completed",
		slog.String("quote_id", quoteID),
		slog.String("policy_number", agg.Policy.PolicyNumber),
		slog.String("transaction_type", string(tx.Type)),
		slog.String("payable", tx.Payable.Total.String()))
	return agg, tx, nil
}

// locatePolicy authorizes the user and finds the aggregate owning a policy.
func (s *policyService) locatePolicy(ctx context.Context, tenantID, policyNumber, userID string, role domain.TenantRole) (string, error) {
	if err := s.AuthorizeUser(ctx, userID, tenantID, role); err != nil {
		return "", err
	}
	rm, err := s.repo.FindPolicyByNumber(ctx, tenantID, policyNumber)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find policy", slog.String("policy_number", policyNumber))
			return "", err
		}
		return "", apperrors.NewDomainError(apperrors.ErrNotFound, domain.ErrCodePolicyNotFound,
			fmt.Sprintf("policy %s was not found", policyNumber), map[string]any{"policyNumber": policyNumber})
	}
	return rm.AggregateID, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
