package dto

import (
	"encoding/json"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Policy DTOs ---

// StartPolicyQuoteRequest opens a renewal, adjustment or cancellation quote on a policy.
type StartPolicyQuoteRequest struct {
	QuoteType     domain.QuoteType `json:"quoteType" binding:"required,quotetype"`
	EffectiveDate *time.Time       `json:"effectiveDate"`
	ExpiryDate    *time.Time       `json:"expiryDate"`
	// FormData defaults to the form data of the latest policy transaction.
	FormData json.RawMessage `json:"formData"`
}

// PolicyTransactionResponse is a bound change to a policy.
type PolicyTransactionResponse struct {
	PolicyTransactionID string                     `json:"policyTransactionID"`
	QuoteID             string                     `json:"quoteID"`
	Type                domain.QuoteType           `json:"type"`
	EffectiveDate       time.Time                  `json:"effectiveDate"`
	PeriodStart         time.Time                  `json:"periodStart"`
	PeriodEnd           time.Time                  `json:"periodEnd"`
	Payable             domain.ProRataResult       `json:"payable"`
	CalculationResult   *CalculationResultResponse `json:"calculationResult,omitempty"`
	CreatedBy           string                     `json:"createdBy"`
}

// ToPolicyTransactionResponse converts domain.PolicyTransaction to DTO.
func ToPolicyTransactionResponse(tx *domain.PolicyTransaction) PolicyTransactionResponse {
	return PolicyTransactionResponse{
		PolicyTransactionID: tx.PolicyTransactionID,
		QuoteID:             tx.QuoteID,
		Type:                tx.Type,
		EffectiveDate:       tx.EffectiveDate,
		PeriodStart:         tx.PeriodStart,
		PeriodEnd:           tx.PeriodEnd,
		Payable:             tx.Payable,
		CalculationResult:   ToCalculationResultResponse(tx.CalculationResult),
		CreatedBy:           tx.CreatedBy,
	}
}

// PolicyResponse is the full view of a policy loaded from its aggregate.
type PolicyResponse struct {
	TenantID                  string                      `json:"tenantID"`
	AggregateID               string                      `json:"aggregateID"`
	PolicyID                  string                      `json:"policyID"`
	PolicyNumber              string                      `json:"policyNumber"`
	ProductID                 string                      `json:"productID"`
	Status                    domain.PolicyStatus         `json:"status"`
	InceptionDate             time.Time                   `json:"inceptionDate"`
	ExpiryDate                time.Time                   `json:"expiryDate"`
	CancellationEffectiveDate *time.Time                  `json:"cancellationEffectiveDate,omitempty"`
	TotalCharged              decimal.Decimal             `json:"totalCharged"`
	Transactions              []PolicyTransactionResponse `json:"transactions"`
	IssuedAt                  time.Time                   `json:"issuedAt"`
}

// ToPolicyResponse converts the policy of an aggregate to DTO, deriving its status at the given instant.
func ToPolicyResponse(agg *domain.QuoteAggregate, at time.Time) PolicyResponse {
	p := agg.Policy
	resp := PolicyResponse{
		TenantID:                  agg.TenantID,
		AggregateID:               agg.AggregateID,
		PolicyID:                  p.PolicyID,
		PolicyNumber:              p.PolicyNumber,
		ProductID:                 agg.ProductID,
		Status:                    p.Status(at),
		InceptionDate:             p.InceptionDate,
		ExpiryDate:                p.ExpiryDate,
		CancellationEffectiveDate: p.CancellationEffectiveDate,
		TotalCharged:              p.TotalCharged(),
		IssuedAt:                  p.IssuedAt,
	}
	ordered := domain.OrderedTransactions(p.Transactions)
	resp.Transactions = make([]PolicyTransactionResponse, len(ordered))
	for i := range ordered {
		resp.Transactions[i] = ToPolicyTransactionResponse(&ordered[i])
	}
	return resp
}

// PolicySummaryResponse is a row of a policy listing.
type PolicySummaryResponse struct {
	AggregateID               string          `json:"aggregateID"`
	PolicyNumber              string          `json:"policyNumber"`
	ProductID                 string          `json:"productID"`
	InceptionDate             time.Time       `json:"inceptionDate"`
	ExpiryDate                time.Time       `json:"expiryDate"`
	CancellationEffectiveDate *time.Time      `json:"cancellationEffectiveDate,omitempty"`
	TransactionCount          int             `json:"transactionCount"`
	TotalCharged              decimal.Decimal `json:"totalCharged"`
	IssuedAt                  time.Time       `json:"issuedAt"`
}

// ListPoliciesParams defines query parameters for listing policies.
type ListPoliciesParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListPoliciesResponse wraps a page of policies.
type ListPoliciesResponse struct {
	Policies  []PolicySummaryResponse `json:"policies"`
	NextToken *string                 `json:"nextToken,omitempty"`
}

// ToListPoliciesResponse converts read models to DTO.
func ToListPoliciesResponse(rms []domain.PolicyReadModel, nextToken *string) ListPoliciesResponse {
	list := make([]PolicySummaryResponse, len(rms))
	for i, rm := range rms {
		list[i] = PolicySummaryResponse{
			AggregateID:               rm.AggregateID,
			PolicyNumber:              rm.PolicyNumber,
			ProductID:                 rm.ProductID,
			InceptionDate:             rm.InceptionDate,
			ExpiryDate:                rm.ExpiryDate,
			CancellationEffectiveDate: rm.CancellationEffectiveDate,
			TransactionCount:          rm.TransactionCount,
			TotalCharged:              rm.TotalCharged,
			IssuedAt:                  rm.IssuedAt,
		}
	}
	return ListPoliciesResponse{Policies: list, NextToken: nextToken}
}
