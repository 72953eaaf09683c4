package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/core/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPatchPolicyData(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryQuoteRepo()
	clock := &fixedClock{now: date(2025, 12, 20)}
	options := []services.AggregateOption{
		services.WithTenantAuthorizer(roleAuthorizer{testAgentID: domain.RoleAgent, testAdminID: domain.RoleAdmin}),
		services.WithClock(clock.Now),
	}
	numbers := &sequenceNumbers{}
	quotes := services.NewQuoteService(repo, staticWorkflows{}, numbers, options...)
	policies := services.NewPolicyService(repo, staticWorkflows{}, numbers, options...)
	patches := services.NewPolicyDataPatchService(repo, options...)

	view, err := quotes.CreateQuote(ctx, testTenantID, testAgentID, dto.CreateQuoteRequest{
		ProductID: testProductID, FormData: json.RawMessage(testInitialForm),
		InceptionDate: date(2026, 1, 1), ExpiryDate: date(2027, 1, 1),
	})
	require.NoError(t, err)
	_, err = quotes.RecordCalculation(ctx, testTenantID, view.Quote.QuoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID: view.Quote.LatestFormData.FormDataID, Calculation: bindingCalculation("1000"), AutoProgress: true,
	})
	require.NoError(t, err)
	agg, tx, err := policies.CompletePolicyTransaction(ctx, testTenantID, view.Quote.QuoteID, testAgentID)
	require.NoError(t, err)
	aggregateID := agg.AggregateID

	makePatch := dto.PolicyDataPatchRequest{
		Kind:               dto.PatchKindGivenValue,
		Scope:              dto.PatchScopeRequest{Type: domain.PatchScopeGlobal},
		TargetFormDataPath: "vehicle.make",
		Rules:              []string{"PropertyExists"},
		NewValue:           json.RawMessage(`"Tesla"`),
	}

	t.Run("Non admin is forbidden", func(t *testing.T) {
		_, err := patches.PatchPolicyData(ctx, testTenantID, aggregateID, testAgentID, makePatch)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("Global patch reaches quotes and transactions", func(t *testing.T) {
		evt, err := patches.PatchPolicyData(ctx, testTenantID, aggregateID, testAdminID, makePatch)
		require.NoError(t, err)
		require.Len(t, evt.Targets, 2)
		assert.Equal(t, domain.PatchTargetQuote, evt.Targets[0].Kind)
		assert.Equal(t, domain.PatchTargetPolicyTransaction, evt.Targets[1].Kind)

		reloaded, err := repo.LoadAggregate(ctx, testTenantID, aggregateID)
		require.NoError(t, err)
		patchedTx := reloaded.Policy.FindTransaction(tx.PolicyTransactionID)
		require.NotNil(t, patchedTx)
		assert.Equal(t, "Tesla", gjson.GetBytes(patchedTx.FormData.Data, "vehicle.make").String())
		assert.Equal(t, int64(2020), gjson.GetBytes(patchedTx.FormData.Data, "vehicle.year").Int())
	})

	t.Run("Copy field into a finalized calculation", func(t *testing.T) {
		evt, err := patches.PatchPolicyData(ctx, testTenantID, aggregateID, testAdminID, dto.PolicyDataPatchRequest{
			Kind:                        dto.PatchKindCopyField,
			Scope:                       dto.PatchScopeRequest{Type: domain.PatchScopePolicyTransaction, EntityID: tx.PolicyTransactionID},
			TargetCalculationResultPath: "vehicleMake",
			Rules:                       []string{"PropertyDoesNotExist"},
			SourceEntity:                domain.PatchSourceFormData,
			SourcePath:                  "vehicle.make",
		})
		require.NoError(t, err)
		require.Len(t, evt.Targets, 1)

		reloaded, err := repo.LoadAggregate(ctx, testTenantID, aggregateID)
		require.NoError(t, err)
		calc := reloaded.Policy.FindTransaction(tx.PolicyTransactionID).CalculationResult
		assert.Equal(t, "Tesla", gjson.GetBytes(calc.JSON, "vehicleMake").String())
		assert.True(t, calc.Finalized)
	})

	t.Run("Violated rule changes nothing", func(t *testing.T) {
		before, err := repo.LoadEvents(ctx, testTenantID, aggregateID)
		require.NoError(t, err)

		_, err = patches.PatchPolicyData(ctx, testTenantID, aggregateID, testAdminID, dto.PolicyDataPatchRequest{
			Kind:               dto.PatchKindGivenValue,
			Scope:              dto.PatchScopeRequest{Type: domain.PatchScopeGlobal},
			TargetFormDataPath: "driver.licence",
			Rules:              []string{"PropertyExists"},
			NewValue:           json.RawMessage(`"X123"`),
		})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.True(t, apperrors.HasCode(err, domain.ErrCodePatchRuleViolated))

		after, err := repo.LoadEvents(ctx, testTenantID, aggregateID)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("Unknown rule is a validation error", func(t *testing.T) {
		req := makePatch
		req.Rules = []string{"PropertyIsPurple"}
		_, err := patches.PatchPolicyData(ctx, testTenantID, aggregateID, testAdminID, req)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}
