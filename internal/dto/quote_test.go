package dto_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToQuoteResponse_AvailableActions(t *testing.T) {
	at := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	agg, err := domain.StartNewBusinessQuote(domain.NewBusinessQuoteParams{
		TenantID: "tenant-1", AggregateID: "agg-1", QuoteID: "q-1", ProductID: "motor",
		FormData:      domain.FormData{FormDataID: "fd-1", Data: json.RawMessage(`{}`), CreatedAt: at},
		InceptionDate: at.AddDate(0, 0, 12), ExpiryDate: at.AddDate(1, 0, 12),
	}, "agent", at)
	require.NoError(t, err)
	q, err := agg.FindQuote("q-1")
	require.NoError(t, err)
	wf := domain.DefaultQuoteWorkflow()

	resp := dto.ToQuoteResponse(agg, q, wf)

	for _, action := range resp.AvailableActions {
		permitted, err := wf.IsActionPermittedByState(action, q.WorkflowState)
		require.NoError(t, err)
		assert.True(t, permitted, string(action))
	}
	assert.Contains(t, resp.AvailableActions, domain.ActionCalculation)
	assert.NotContains(t, resp.AvailableActions, domain.ActionPolicy)

	assert.Empty(t, dto.ToQuoteResponse(agg, q, nil).AvailableActions)
}
