package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PolicyStatus is derived from the policy dates and its cancellation.
type PolicyStatus string

const (
	PolicyStatusIssued    PolicyStatus = "ISSUED"
	PolicyStatusActive    PolicyStatus = "ACTIVE"
	PolicyStatusExpired   PolicyStatus = "EXPIRED"
	PolicyStatusCancelled PolicyStatus = "CANCELLED"
)

// PolicyTransaction is a bound change to a policy.
type PolicyTransaction struct {
	PolicyTransactionID    string             `json:"policyTransactionID"`
	QuoteID                string             `json:"quoteID"`
	Type                   QuoteType          `json:"type"`
	EffectiveDate          time.Time          `json:"effectiveDate"`
	PeriodStart            time.Time          `json:"periodStart"`
	PeriodEnd              time.Time          `json:"periodEnd"`
	CreatedTicksSinceEpoch int64              `json:"createdTicksSinceEpoch"`
	FormData               FormData           `json:"formData"`
	CalculationResult      *CalculationResult `json:"calculationResult"`
	Payable                ProRataResult      `json:"payable"`
	CreatedBy              string             `json:"createdBy"`
}

// Policy is the issued contract of an aggregate.
type Policy struct {
	PolicyID                  string              `json:"policyID"`
	PolicyNumber              string              `json:"policyNumber"`
	InceptionDate             time.Time           `json:"inceptionDate"`
	ExpiryDate                time.Time           `json:"expiryDate"`
	CancellationEffectiveDate *time.Time          `json:"cancellationEffectiveDate,omitempty"`
	Transactions              []PolicyTransaction `json:"transactions"`
	IssuedAt                  time.Time           `json:"issuedAt"`
}

// IsCancelled reports whether a cancellation transaction has been completed.
func (p *Policy) IsCancelled() bool {
	return p.CancellationEffectiveDate != nil
}

// IsExpired reports whether the policy period ended at or before the given instant.
func (p *Policy) IsExpired(at time.Time) bool {
	return !at.Before(p.ExpiryDate)
}

// Status derives the policy status at the given instant.
func (p *Policy) Status(at time.Time) PolicyStatus {
	switch {
	case p.IsCancelled():
		return PolicyStatusCancelled
	case p.IsExpired(at):
		return PolicyStatusExpired
	case at.Before(p.InceptionDate):
		return PolicyStatusIssued
	default:
		return PolicyStatusActive
	}
}

// CurrentPeriodStart is the start of the period the latest transaction belongs to.
func (p *Policy) CurrentPeriodStart() time.Time {
	if latest := p.LatestTransaction(); latest != nil {
		return latest.PeriodStart
	}
	return p.InceptionDate
}

// LatestTransaction returns the most recently created transaction.
func (p *Policy) LatestTransaction() *PolicyTransaction {
	if len(p.Transactions) == 0 {
		return nil
	}
	return &p.Transactions[len(p.Transactions)-1]
}

// FindTransaction returns the transaction with the given ID, or nil.
func (p *Policy) FindTransaction(id string) *PolicyTransaction {
	for i := range p.Transactions {
		if p.Transactions[i].PolicyTransactionID == id {
			return &p.Transactions[i]
		}
	}
	return nil
}

// OrderedTransactions returns the transactions sorted by CreatedTicksSinceEpoch.
func OrderedTransactions(txs []PolicyTransaction) []PolicyTransaction {
	out := append([]PolicyTransaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedTicksSinceEpoch < out[j].CreatedTicksSinceEpoch
	})
	return out
}

// TotalCharged sums the pro-rata payable amounts of all transactions.
func (p *Policy) TotalCharged() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range p.Transactions {
		total = total.Add(tx.Payable.Total)
	}
	return total
}
