package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/google/uuid"
)

// quoteService implements the QuoteSvcFacade interface
type quoteService struct {
	aggregateRunner
	workflows portssvc.WorkflowProvider
	numbers   portssvc.NumberGenerator
}

// NewQuoteService creates a new quote service with the provided dependencies
func NewQuoteService(
	repo portsrepo.QuoteRepositoryFacade,
	workflows portssvc.WorkflowProvider,
	numbers portssvc.NumberGenerator,
	options ...AggregateOption,
) portssvc.QuoteSvcFacade {
	return &quoteService{
		aggregateRunner: newAggregateRunner(repo, options...),
		workflows:       workflows,
		numbers:         numbers,
	}
}

var _ portssvc.QuoteSvcFacade = (*quoteService)(nil)

func (s *quoteService) CreateQuote(ctx context.Context, tenantID, userID string, req dto.CreateQuoteRequest) (*portssvc.QuoteView, error) {
	if err := s.AuthorizeUser(ctx, userID, tenantID, domain.RoleAgent); err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetWorkflow(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.CurrentTime()
	params := domain.NewBusinessQuoteParams{
		TenantID:      tenantID,
		AggregateID:   uuid.NewString(),
		QuoteID:       uuid.NewString(),
		ProductID:     req.ProductID,
		InceptionDate: req.InceptionDate.UTC(),
		ExpiryDate:    req.ExpiryDate.UTC(),
	}
	if len(req.FormData) > 0 {
		if !json.Valid(req.FormData) {
			return nil, fmt.Errorf("%w: form data is not valid JSON", apperrors.ErrValidation)
		}
		params.FormData = domain.FormData{FormDataID: uuid.NewString(), Data: req.FormData, CreatedAt: now}
	}

	agg, err := domain.StartNewBusinessQuote(params, userID, now)
	if err != nil {
		return nil, err
	}
	if err := agg.AssignQuoteNumber(params.QuoteID, s.numbers.NextQuoteNumber(), userID, now); err != nil {
		return nil, err
	}
	if err := s.save(ctx, agg); err != nil {
		return nil, err
	}

	q, _ := agg.FindQuote(params.QuoteID)
	s.LogInfo(ctx, "Quote created successfully",
		slog.String("tenant_id", tenantID),
		slog.String("aggregate_id", agg.AggregateID),
		slog.String("quote_id", q.QuoteID),
		slog.String("product_id", req.ProductID))
	return &portssvc.QuoteView{Aggregate: agg, Quote: q, Workflow: wf}, nil
}

func (s *quoteService) GetQuote(ctx context.Context, tenantID, quoteID, requestingUserID string) (*portssvc.QuoteView, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, requestingUserID, domain.RoleReadOnly)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.LoadAggregate(ctx, tenantID, aggregateID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load quote aggregate", slog.String("aggregate_id", aggregateID))
		return nil, err
	}
	return s.view(ctx, agg, quoteID)
}

func (s *quoteService) ListQuotes(ctx context.Context, tenantID, requestingUserID string, params dto.ListQuotesParams) ([]domain.QuoteReadModel, *string, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, tenantID, domain.RoleReadOnly); err != nil {
		return nil, nil, err
	}
	filter := portsrepo.QuoteFilter{
		ProductID:     params.ProductID,
		QuoteType:     domain.QuoteType(params.QuoteType),
		WorkflowState: domain.QuoteState(params.WorkflowState),
	}
	if filter.WorkflowState != "" && !filter.WorkflowState.IsKnown() {
		return nil, nil, fmt.Errorf("%w: unknown workflow state %q", apperrors.ErrValidation, params.WorkflowState)
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	quotes, next, err := s.repo.ListQuotes(ctx, tenantID, filter, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list quotes", slog.String("tenant_id", tenantID))
		return nil, nil, err
	}
	if quotes == nil {
		quotes = []domain.QuoteReadModel{}
	}
	return quotes, next, nil
}

func (s *quoteService) GetQuoteHistory(ctx context.Context, tenantID, quoteID, requestingUserID string) ([]domain.EventEnvelope, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, requestingUserID, domain.RoleReadOnly)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.LoadEvents(ctx, tenantID, aggregateID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load quote events", slog.String("aggregate_id", aggregateID))
		return nil, err
	}
	return events, nil
}

func (s *quoteService) UpdateFormData(ctx context.Context, tenantID, quoteID, userID string, req dto.UpdateFormDataRequest) (*portssvc.QuoteView, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, userID, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	var wf *domain.QuoteWorkflow
	agg, err := s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		if wf, err = s.workflows.GetWorkflow(ctx, agg.ProductID); err != nil {
			return err
		}
		now := s.CurrentTime()
		fd := domain.FormData{FormDataID: uuid.NewString(), Data: req.FormData, CreatedAt: now}
		return agg.UpdateFormData(wf, quoteID, fd, userID, now)
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Quote form data updated", slog.String("quote_id", quoteID))
	return s.viewWith(agg, quoteID, wf)
}

func (s *quoteService) RecordCalculation(ctx context.Context, tenantID, quoteID, userID string, req dto.RecordCalculationRequest) (*portssvc.QuoteView, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, userID, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	var wf *domain.QuoteWorkflow
	agg, err := s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		if wf, err = s.workflows.GetWorkflow(ctx, agg.ProductID); err != nil {
			return err
		}
		now := s.CurrentTime()
		calc, err := agg.RecordCalculationResult(wf, quoteID, uuid.NewString(), req.FormDataID, req.Calculation, userID, now)
		if err != nil {
			return err
		}
		if !req.AutoProgress {
			return nil
		}
		action, ok := calc.SuggestedAction()
		if !ok {
			return nil
		}
		if err := s.AuthorizeUser(ctx, userID, tenantID, domain.RequiredRoleForAction(action)); err != nil {
			return err
		}
		q, _ := agg.FindQuote(quoteID)
		if permitted, err := wf.IsActionPermittedByState(action, q.WorkflowState); err != nil || !permitted {
			s.LogDebug(ctx, "Suggested workflow action not permitted, leaving quote in place",
				slog.String("quote_id", quoteID),
				slog.String("action", string(action)),
				slog.String("state", string(q.WorkflowState)))
			return nil
		}
		_, err = agg.PerformWorkflowAction(wf, quoteID, action, userID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Calculation result recorded", slog.String("quote_id", quoteID))
	return s.viewWith(agg, quoteID, wf)
}

func (s *quoteService) PerformWorkflowAction(ctx context.Context, tenantID, quoteID, userID string, action domain.QuoteAction) (*portssvc.QuoteView, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, userID, domain.RequiredRoleForAction(action))
	if err != nil {
		return nil, err
	}
	var (
		wf       *domain.QuoteWorkflow
		original domain.QuoteState
		result   domain.QuoteState
	)
	agg, err := s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		if wf, err = s.workflows.GetWorkflow(ctx, agg.ProductID); err != nil {
			return err
		}
		if q, err := agg.FindQuote(quoteID); err == nil {
			original = q.WorkflowState
		}
		result, err = agg.PerformWorkflowAction(wf, quoteID, action, userID, s.CurrentTime())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Quote workflow action performed",
		slog.String("quote_id", quoteID),
		slog.String("action", string(action)),
		slog.String("original_state", string(original)),
		slog.String("resulting_state", string(result)))
	return s.viewWith(agg, quoteID, wf)
}

func (s *quoteService) CreateQuoteVersion(ctx context.Context, tenantID, quoteID, userID string) (*domain.QuoteVersion, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, userID, domain.RoleAgent)
	if err != nil {
		return nil, err
	}
	var version *domain.QuoteVersion
	_, err = s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		wf, err := s.workflows.GetWorkflow(ctx, agg.ProductID)
		if err != nil {
			return err
		}
		version, err = agg.CreateQuoteVersion(wf, quoteID, uuid.NewString(), userID, s.CurrentTime())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Quote version created",
		slog.String("quote_id", quoteID),
		slog.Int("version_number", version.VersionNumber))
	return version, nil
}

func (s *quoteService) view(ctx context.Context, agg *domain.QuoteAggregate, quoteID string) (*portssvc.QuoteView, error) {
	wf, err := s.workflows.GetWorkflow(ctx, agg.ProductID)
	if err != nil {
		return nil, err
	}
	return s.viewWith(agg, quoteID, wf)
}

func (s *quoteService) viewWith(agg *domain.QuoteAggregate, quoteID string, wf *domain.QuoteWorkflow) (*portssvc.QuoteView, error) {
	q, err := agg.FindQuote(quoteID)
	if err != nil {
		return nil, err
	}
	return &portssvc.QuoteView{Aggregate: agg, Quote: q, Workflow: wf}, nil
}
