package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/google/uuid"
)

// patchService applies policy data patches
type patchService struct {
	aggregateRunner
}

// NewPolicyDataPatchService creates a new patch service with the provided dependencies
func NewPolicyDataPatchService(repo portsrepo.QuoteRepositoryFacade, options ...AggregateOption) portssvc.PolicyDataPatchSvc {
	return &patchService{aggregateRunner: newAggregateRunner(repo, options...)}
}

var _ portssvc.PolicyDataPatchSvc = (*patchService)(nil)

// PatchPolicyData rewrites issued data, so it is restricted to tenant admins.
func (s *patchService) PatchPolicyData(ctx context.Context, tenantID, aggregateID, userID string, req dto.PolicyDataPatchRequest) (*domain.PolicyDataPatchedEvent, error) {
	if err := s.AuthorizeUser(ctx, userID, tenantID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	cmd, err := req.ToCommand(uuid.NewString())
	if err != nil {
		return nil, err
	}
	var applied *domain.PolicyDataPatchedEvent
	_, err = s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		applied, err = agg.PatchPolicyData(cmd, userID, s.CurrentTime())
		return err
	})
	if err != nil {
		s.LogInfo(ctx, "Policy data patch rejected",
			slog.String("aggregate_id", aggregateID),
			slog.String("scope", string(req.Scope.Type)),
			slog.String("error", err.Error()))
		return nil, err
	}
	s.LogInfo(ctx, "Policy data patched",
		slog.String("aggregate_id", aggregateID),
		slog.String("patch_id", applied.PatchID),
		slog.String("scope", string(applied.Scope.Type)),
		slog.Int("targets", len(applied.Targets)))
	return applied, nil
}
