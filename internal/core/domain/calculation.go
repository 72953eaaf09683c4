package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CalculationState is the state reported by the pricing engine.
type CalculationState string

const (
	CalculationIncomplete      CalculationState = "incomplete"
	CalculationPremiumComplete CalculationState = "premiumComplete"
	CalculationBindingQuote    CalculationState = "bindingQuote"
)

// TriggerType classifies a rating trigger.
type TriggerType string

const (
	TriggerDecline     TriggerType = "decline"
	TriggerReview      TriggerType = "review"
	TriggerEndorsement TriggerType = "endorsement"
	TriggerError       TriggerType = "error"
)

// CalculationTrigger is a rating rule that fired during calculation.
type CalculationTrigger struct {
	Type    TriggerType `json:"type"`
	Name    string      `json:"name"`
	Message string      `json:"message"`
}

// PriceBreakdown holds the parsed payment totals of a calculation.
type PriceBreakdown struct {
	BasePremium     decimal.Decimal `json:"basePremium"`
	ESL             decimal.Decimal `json:"esl"`
	PremiumGST      decimal.Decimal `json:"premiumGst"`
	StampDuty       decimal.Decimal `json:"stampDuty"`
	BrokerFee       decimal.Decimal `json:"brokerFee"`
	MerchantFees    decimal.Decimal `json:"merchantFees"`
	MerchantFeesGST decimal.Decimal `json:"merchantFeesGst"`
	TotalPremium    decimal.Decimal `json:"totalPremium"`
	TotalGST        decimal.Decimal `json:"totalGst"`
	TotalPayable    decimal.Decimal `json:"totalPayable"`
	CurrencyCode    string          `json:"currencyCode"`
}

// JSON paths inside a calculation document.
const (
	calcPathState        = "state"
	calcPathTriggers     = "triggers"
	calcPathPaymentTotal = "payment.total"
	calcPathCurrency     = "payment.currencyCode"
	calcRiskPrefix       = "risk"
	calcRiskBasePremium  = "premium.basePremium"
)

// CalculationResult is an immutable snapshot of a pricing computation.
// The only permitted change is merchant fee patching before it is finalized.
type CalculationResult struct {
	CalculationResultID string               `json:"calculationResultID"`
	FormDataID          string               `json:"formDataID"`
	JSON                json.RawMessage      `json:"json"`
	State               CalculationState     `json:"state"`
	Triggers            []CalculationTrigger `json:"triggers"`
	PriceBreakdown      PriceBreakdown       `json:"priceBreakdown"`
	Finalized           bool                 `json:"finalized"`
	CreatedAt           time.Time            `json:"createdAt"`
}

// NewCalculationResult parses the calculation document.
func NewCalculationResult(id, formDataID string, raw json.RawMessage, createdAt time.Time) (*CalculationResult, error) {
	c := &CalculationResult{
		CalculationResultID: id,
		FormDataID:          formDataID,
		CreatedAt:           createdAt,
	}
	if err := c.parse(raw); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CalculationResult) parse(raw json.RawMessage) error {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return invalidCalculation("calculation result must be a JSON object")
	}
	doc := gjson.ParseBytes(raw)

	state := CalculationState(doc.Get(calcPathState).String())
	switch state {
	case CalculationIncomplete, CalculationPremiumComplete, CalculationBindingQuote:
	case "":
		state = CalculationIncomplete
	default:
		return invalidCalculation(fmt.Sprintf("unknown calculation state %q", state))
	}

	var triggers []CalculationTrigger
	for _, t := range doc.Get(calcPathTriggers).Array() {
		triggers = append(triggers, CalculationTrigger{
			Type:    TriggerType(t.Get("type").String()),
			Name:    t.Get("name").String(),
			Message: t.Get("message").String(),
		})
	}

	breakdown, err := parsePriceBreakdown(doc)
	if err != nil {
		return err
	}

	c.JSON = append(json.RawMessage(nil), raw...)
	c.State = state
	c.Triggers = triggers
	c.PriceBreakdown = breakdown
	return nil
}

func parsePriceBreakdown(doc gjson.Result) (PriceBreakdown, error) {
	total := doc.Get(calcPathPaymentTotal)
	var pb PriceBreakdown
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"basePremium", &pb.BasePremium},
		{"esl", &pb.ESL},
		{"premiumGst", &pb.PremiumGST},
		{"stampDuty", &pb.StampDuty},
		{"brokerFee", &pb.BrokerFee},
		{"merchantFees", &pb.MerchantFees},
		{"merchantFeesGst", &pb.MerchantFeesGST},
		{"totalPremium", &pb.TotalPremium},
		{"totalGst", &pb.TotalGST},
		{"totalPayable", &pb.TotalPayable},
	}
	for _, f := range fields {
		v, err := ParseAmount(total.Get(f.key))
		if err != nil {
			return PriceBreakdown{}, invalidCalculation(fmt.Sprintf("payment.total.%s: %v", f.key, err))
		}
		*f.dst = v
	}
	pb.CurrencyCode = doc.Get(calcPathCurrency).String()
	return pb, nil
}

// ParseAmount reads a number or a currency formatted string such as "$1,234.50".
// Missing and null values are zero.
func ParseAmount(v gjson.Result) (decimal.Decimal, error) {
	switch v.Type {
	case gjson.Null:
		return decimal.Zero, nil
	case gjson.Number:
		return decimal.NewFromString(v.Raw)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount %s", v.Raw)
	}
}

// IsBindable reports whether a policy may be bound from this result.
func (c *CalculationResult) IsBindable() bool {
	if c.State != CalculationBindingQuote {
		return false
	}
	for _, t := range c.Triggers {
		if t.Type == TriggerDecline || t.Type == TriggerError {
			return false
		}
	}
	return true
}

// HasTrigger reports whether a trigger of the given type fired.
func (c *CalculationResult) HasTrigger(tt TriggerType) bool {
	for _, t := range c.Triggers {
		if t.Type == tt {
			return true
		}
	}
	return false
}

// RiskBasePremiums returns the base premium of every riskN object, keyed by risk name.
func (c *CalculationResult) RiskBasePremiums() (map[string]decimal.Decimal, error) {
	premiums := make(map[string]decimal.Decimal)
	var parseErr error
	gjson.ParseBytes(c.JSON).ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !isRiskKey(name) {
			return true
		}
		amount, err := ParseAmount(value.Get(calcRiskBasePremium))
		if err != nil {
			parseErr = invalidCalculation(fmt.Sprintf("%s.%s: %v", name, calcRiskBasePremium, err))
			return false
		}
		premiums[name] = amount
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return premiums, nil
}

func isRiskKey(name string) bool {
	suffix, ok := strings.CutPrefix(name, calcRiskPrefix)
	if !ok || suffix == "" {
		return false
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}

// SortedRiskNames orders risk keys numerically (risk2 before risk10).
func SortedRiskNames(premiums map[string]decimal.Decimal) []string {
	names := make([]string, 0, len(premiums))
	for k := range premiums {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(names[i], calcRiskPrefix))
		b, _ := strconv.Atoi(strings.TrimPrefix(names[j], calcRiskPrefix))
		return a < b
	})
	return names
}

// WithMerchantFees returns the document with the merchant fees replaced and the total payable adjusted.
func (c *CalculationResult) WithMerchantFees(fees, feesGST decimal.Decimal) (json.RawMessage, error) {
	if c.Finalized {
		return nil, apperrors.NewDomainError(
			apperrors.ErrConflict,
			ErrCodeCalculationFinalized,
			"merchant fees cannot be applied to a calculation result that has been finalized",
			map[string]any{"calculationResultID": c.CalculationResultID},
		)
	}
	if fees.IsNegative() || feesGST.IsNegative() {
		return nil, apperrors.NewDomainError(apperrors.ErrValidation, ErrCodePaymentAmountInvalid, "merchant fees must not be negative", nil)
	}
	pb := c.PriceBreakdown
	payable := pb.TotalPayable.Sub(pb.MerchantFees).Sub(pb.MerchantFeesGST).Add(fees).Add(feesGST)

	out := append([]byte(nil), c.JSON...)
	var err error
	for path, v := range map[string]decimal.Decimal{
		calcPathPaymentTotal + ".merchantFees":    fees,
		calcPathPaymentTotal + ".merchantFeesGst": feesGST,
		calcPathPaymentTotal + ".totalPayable":    payable,
	} {
		out, err = sjson.SetRawBytes(out, path, []byte(v.StringFixed(2)))
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return out, nil
}

// Clone returns a deep copy.
func (c *CalculationResult) Clone() *CalculationResult {
	if c == nil {
		return nil
	}
	cp := *c
	cp.JSON = append(json.RawMessage(nil), c.JSON...)
	cp.Triggers = append([]CalculationTrigger(nil), c.Triggers...)
	return &cp
}

func invalidCalculation(msg string) error {
	return apperrors.NewDomainError(apperrors.ErrValidation, ErrCodeCalculationInvalid, msg, nil)
}

// SuggestedAction maps the calculation outcome onto the workflow action a submission should take.
// It returns false when the quote cannot progress yet.
func (c *CalculationResult) SuggestedAction() (QuoteAction, bool) {
	switch {
	case c.HasTrigger(TriggerDecline):
		return ActionDecline, true
	case c.HasTrigger(TriggerError), c.State != CalculationBindingQuote:
		return "", false
	case c.HasTrigger(TriggerEndorsement):
		return ActionEndorsementReferral, true
	case c.HasTrigger(TriggerReview):
		return ActionReviewReferral, true
	}
	return ActionAutoApproval, true
}
