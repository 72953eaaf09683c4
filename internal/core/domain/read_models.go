package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteReadModel is the query side projection of a quote.
type QuoteReadModel struct {
	TenantID      string          `json:"tenantID"`
	AggregateID   string          `json:"aggregateID"`
	QuoteID       string          `json:"quoteID"`
	ProductID     string          `json:"productID"`
	QuoteType     QuoteType       `json:"quoteType"`
	WorkflowState QuoteState      `json:"workflowState"`
	QuoteNumber   *string         `json:"quoteNumber,omitempty"`
	PolicyNumber  *string         `json:"policyNumber,omitempty"`
	TotalPayable  decimal.Decimal `json:"totalPayable"`
	CurrencyCode  string          `json:"currencyCode"`
	Bindable      bool            `json:"bindable"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// PolicyReadModel is the query side projection of a policy.
type PolicyReadModel struct {
	TenantID                  string          `json:"tenantID"`
	AggregateID               string          `json:"aggregateID"`
	PolicyID                  string          `json:"policyID"`
	PolicyNumber              string          `json:"policyNumber"`
	ProductID                 string          `json:"productID"`
	InceptionDate             time.Time       `json:"inceptionDate"`
	ExpiryDate                time.Time       `json:"expiryDate"`
	CancellationEffectiveDate *time.Time      `json:"cancellationEffectiveDate,omitempty"`
	TransactionCount          int             `json:"transactionCount"`
	TotalCharged              decimal.Decimal `json:"totalCharged"`
	IssuedAt                  time.Time       `json:"issuedAt"`
	LastUpdatedAt             time.Time       `json:"lastUpdatedAt"`
}

// QuoteReadModels projects every quote of the aggregate.
func (a *QuoteAggregate) QuoteReadModels() []QuoteReadModel {
	out := make([]QuoteReadModel, 0, len(a.Quotes))
	for _, q := range a.Quotes {
		rm := QuoteReadModel{
			TenantID:      a.TenantID,
			AggregateID:   a.AggregateID,
			QuoteID:       q.QuoteID,
			ProductID:     q.ProductID,
			QuoteType:     q.Type,
			WorkflowState: q.WorkflowState,
			QuoteNumber:   q.QuoteNumber,
			TotalPayable:  decimal.Zero,
			Bindable:      q.HasBindableCalculation(),
			CreatedAt:     q.CreatedAt,
			LastUpdatedAt: q.LastUpdatedAt,
		}
		if q.LatestCalculationResult != nil {
			rm.TotalPayable = q.LatestCalculationResult.PriceBreakdown.TotalPayable
			rm.CurrencyCode = q.LatestCalculationResult.PriceBreakdown.CurrencyCode
		}
		if a.Policy != nil && q.PolicyTransactionID != nil {
			number := a.Policy.PolicyNumber
			rm.PolicyNumber = &number
		}
		out = append(out, rm)
	}
	return out
}

// PolicyReadModel projects the policy, or returns nil before it is issued.
func (a *QuoteAggregate) PolicyReadModel() *PolicyReadModel {
	if a.Policy == nil {
		return nil
	}
	p := a.Policy
	return &PolicyReadModel{
		TenantID:                  a.TenantID,
		AggregateID:               a.AggregateID,
		PolicyID:                  p.PolicyID,
		PolicyNumber:              p.PolicyNumber,
		ProductID:                 a.ProductID,
		InceptionDate:             p.InceptionDate,
		ExpiryDate:                p.ExpiryDate,
		CancellationEffectiveDate: p.CancellationEffectiveDate,
		TransactionCount:          len(p.Transactions),
		TotalCharged:              p.TotalCharged(),
		IssuedAt:                  p.IssuedAt,
		LastUpdatedAt:             a.LastModifiedAt,
	}
}
