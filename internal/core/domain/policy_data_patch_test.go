package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDataPatchScope_Applicability(t *testing.T) {
	quote := &domain.Quote{QuoteID: "q-1"}
	other := &domain.Quote{QuoteID: "q-2"}
	v1 := &domain.QuoteVersion{VersionNumber: 1}
	v2 := &domain.QuoteVersion{VersionNumber: 2}
	tx := &domain.PolicyTransaction{PolicyTransactionID: "tx-1", QuoteID: "q-1"}

	tests := []struct {
		name        string
		scope       domain.PolicyDataPatchScope
		quote       bool
		otherQuote  bool
		version1    bool
		version2    bool
		transaction bool
	}{
		{
			name:  "global",
			scope: domain.PolicyDataPatchScope{Type: domain.PatchScopeGlobal},
			quote: true, otherQuote: true, version1: true, version2: true, transaction: true,
		},
		{
			name:  "quote full",
			scope: domain.PolicyDataPatchScope{Type: domain.PatchScopeQuoteFull, EntityID: "q-1"},
			quote: true, version1: true, version2: true, transaction: true,
		},
		{
			name:  "quote latest",
			scope: domain.PolicyDataPatchScope{Type: domain.PatchScopeQuoteLatest, EntityID: "q-1"},
			quote: true,
		},
		{
			name:     "quote version",
			scope:    domain.PolicyDataPatchScope{Type: domain.PatchScopeQuoteVersion, EntityID: "q-1", VersionNumber: 2},
			version2: true,
		},
		{
			name:        "policy transaction",
			scope:       domain.PolicyDataPatchScope{Type: domain.PatchScopePolicyTransaction, EntityID: "tx-1"},
			transaction: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.scope.Validate())
			assert.Equal(t, tt.quote, tt.scope.ApplicableToQuote(quote))
			assert.Equal(t, tt.otherQuote, tt.scope.ApplicableToQuote(other))
			assert.Equal(t, tt.version1, tt.scope.ApplicableToQuoteVersion(quote, v1))
			assert.Equal(t, tt.version2, tt.scope.ApplicableToQuoteVersion(quote, v2))
			assert.Equal(t, tt.transaction, tt.scope.ApplicableToPolicyTransaction(tx))
		})
	}
}

func TestPolicyDataPatchScope_Validate(t *testing.T) {
	invalid := []domain.PolicyDataPatchScope{
		{Type: "Everything"},
		{Type: domain.PatchScopeQuoteFull},
		{Type: domain.PatchScopeQuoteVersion, EntityID: "q-1"},
	}
	for _, s := range invalid {
		assert.True(t, apperrors.HasCode(s.Validate(), domain.ErrCodePatchInvalid), string(s.Type))
	}
}

func TestParsePatchRules(t *testing.T) {
	rules, err := domain.ParsePatchRules([]string{"PropertyIsMissingOrNullOrEmpty", "PropertyExists"})
	require.NoError(t, err)
	assert.True(t, rules.Has(domain.PatchRulePropertyExists))
	assert.False(t, rules.Has(domain.PatchRulePropertyDoesNotExist))
	assert.Equal(t, []string{"PropertyExists", "PropertyIsMissingOrNullOrEmpty"}, rules.Names())

	_, err = domain.ParsePatchRules([]string{"Sometimes"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPatchCommandBase_Validate(t *testing.T) {
	global := domain.PolicyDataPatchScope{Type: domain.PatchScopeGlobal}
	tests := []struct {
		name string
		base domain.PatchCommandBase
		ok   bool
	}{
		{"form data path", domain.PatchCommandBase{TargetFormDataPath: "vehicle.make", Scope: global}, true},
		{"calculation path", domain.PatchCommandBase{TargetCalculationResultPath: "payment.total.esl", Scope: global}, true},
		{"no target", domain.PatchCommandBase{Scope: global}, false},
		{"wildcard path", domain.PatchCommandBase{TargetFormDataPath: "drivers.#.name", Scope: global}, false},
		{"empty segment", domain.PatchCommandBase{TargetFormDataPath: "vehicle..make", Scope: global}, false},
		{
			name: "contradicting rules",
			base: domain.PatchCommandBase{
				TargetFormDataPath: "vehicle.make", Scope: global,
				Rules: domain.PatchRulePropertyExists | domain.PatchRulePropertyDoesNotExist,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.base.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestCopyFieldPolicyDataPatchCommand_ResolveValue(t *testing.T) {
	holder := domain.PatchDataHolder{
		FormData:          json.RawMessage(`{"vehicle": {"make": "Ford"}}`),
		CalculationResult: json.RawMessage(`{"payment": {"total": {"basePremium": 900}}}`),
	}

	cmd := domain.CopyFieldPolicyDataPatchCommand{SourceEntity: domain.PatchSourceCalculationResult, SourcePath: "payment.total.basePremium"}
	v, err := cmd.ResolveValue(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `900`, string(v))

	cmd = domain.CopyFieldPolicyDataPatchCommand{SourceEntity: domain.PatchSourceFormData, SourcePath: "vehicle.model"}
	_, err = cmd.ResolveValue(holder)
	assert.True(t, apperrors.HasCode(err, domain.ErrCodePatchSourceNotFound))
}
