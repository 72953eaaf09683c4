package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func calculation(t *testing.T, raw string) *domain.CalculationResult {
	t.Helper()
	c, err := domain.NewCalculationResult("calc-1", "fd-1", json.RawMessage(raw), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return c
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"v": 12.5}`, "12.5"},
		{`{"v": "$1,234.50"}`, "1234.5"},
		{`{"v": null}`, "0"},
		{`{}`, "0"},
		{`{"v": ""}`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := domain.ParseAmount(gjson.Get(tt.raw, "v"))
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	_, err := domain.ParseAmount(gjson.Get(`{"v": true}`, "v"))
	assert.Error(t, err)
}

func TestCalculationResult_Parse(t *testing.T) {
	c := calculation(t, `{
		"state": "bindingQuote",
		"triggers": [{"type": "review", "name": "highValue", "message": "vehicle value over limit"}],
		"payment": {"currencyCode": "AUD", "total": {"basePremium": "$900.00", "premiumGst": 90, "totalPayable": 990}},
		"risk2": {"premium": {"basePremium": 400}},
		"risk10": {"premium": {"basePremium": 500}},
		"riskFactors": {"premium": {"basePremium": 1}}
	}`)

	assert.Equal(t, domain.CalculationBindingQuote, c.State)
	require.Len(t, c.Triggers, 1)
	assert.Equal(t, "highValue", c.Triggers[0].Name)
	assert.Equal(t, "AUD", c.PriceBreakdown.CurrencyCode)
	assert.Equal(t, "900", c.PriceBreakdown.BasePremium.String())
	assert.Equal(t, "990", c.PriceBreakdown.TotalPayable.String())

	premiums, err := c.RiskBasePremiums()
	require.NoError(t, err)
	assert.Equal(t, []string{"risk2", "risk10"}, domain.SortedRiskNames(premiums))
}

func TestCalculationResult_Invalid(t *testing.T) {
	for _, raw := range []string{`[]`, `not json`, `{"state": "guessing"}`, `{"payment": {"total": {"basePremium": "abc"}}}`} {
		_, err := domain.NewCalculationResult("c", "f", json.RawMessage(raw), time.Now())
		assert.True(t, apperrors.HasCode(err, domain.ErrCodeCalculationInvalid), raw)
	}
}

func TestCalculationResult_SuggestedAction(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     domain.QuoteAction
		canMove  bool
		bindable bool
	}{
		{"clean binding quote", `{"state": "bindingQuote"}`, domain.ActionAutoApproval, true, true},
		{"review trigger", `{"state": "bindingQuote", "triggers": [{"type": "review"}]}`, domain.ActionReviewReferral, true, true},
		{"endorsement beats review", `{"state": "bindingQuote", "triggers": [{"type": "review"}, {"type": "endorsement"}]}`, domain.ActionEndorsementReferral, true, true},
		{"decline beats everything", `{"state": "incomplete", "triggers": [{"type": "error"}, {"type": "decline"}]}`, domain.ActionDecline, true, false},
		{"error stops progress", `{"state": "bindingQuote", "triggers": [{"type": "error"}]}`, "", false, false},
		{"premium only", `{"state": "premiumComplete"}`, "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := calculation(t, tt.raw)
			action, ok := c.SuggestedAction()
			assert.Equal(t, tt.canMove, ok)
			assert.Equal(t, tt.want, action)
			assert.Equal(t, tt.bindable, c.IsBindable())
		})
	}
}

func TestCalculationResult_WithMerchantFees(t *testing.T) {
	c := calculation(t, `{"state": "bindingQuote", "payment": {"total": {"basePremium": 1000, "merchantFees": 5, "merchantFeesGst": 0.5, "totalPayable": 1005.5}}}`)

	patched, err := c.WithMerchantFees(decimal.RequireFromString("15"), decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "1016.50", gjson.GetBytes(patched, "payment.total.totalPayable").Raw)
	assert.Equal(t, "15.00", gjson.GetBytes(patched, "payment.total.merchantFees").Raw)
	assert.Equal(t, "1.50", gjson.GetBytes(patched, "payment.total.merchantFeesGst").Raw)
	assert.Equal(t, "1005.5", gjson.GetBytes(c.JSON, "payment.total.totalPayable").Raw, "original document is untouched")

	_, err = c.WithMerchantFees(decimal.NewFromInt(-1), decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	c.Finalized = true
	_, err = c.WithMerchantFees(decimal.Zero, decimal.Zero)
	assert.True(t, apperrors.HasCode(err, domain.ErrCodeCalculationFinalized))
}

func TestMerchantFeeSchedule_Fees(t *testing.T) {
	schedule := domain.MerchantFeeSchedule{
		Percentage: decimal.RequireFromString("0.015"),
		Fixed:      decimal.RequireFromString("0.30"),
		GSTRate:    decimal.RequireFromString("0.10"),
	}
	fee, gst := schedule.Fees(decimal.RequireFromString("1000"))
	assert.Equal(t, "15.30", fee.StringFixed(2))
	assert.Equal(t, "1.53", gst.StringFixed(2))
}
