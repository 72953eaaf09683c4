package domain

import (
	"time"
)

// QuoteType identifies the kind of policy transaction a quote leads to.
type QuoteType string

const (
	QuoteTypeNewBusiness  QuoteType = "NewBusiness"
	QuoteTypeRenewal      QuoteType = "Renewal"
	QuoteTypeAdjustment   QuoteType = "Adjustment"
	QuoteTypeCancellation QuoteType = "Cancellation"
)

// IsValid reports whether t is a known quote type.
func (t QuoteType) IsValid() bool {
	switch t {
	case QuoteTypeNewBusiness, QuoteTypeRenewal, QuoteTypeAdjustment, QuoteTypeCancellation:
		return true
	}
	return false
}

// QuoteVersion is a snapshot of a quote's data taken on request.
type QuoteVersion struct {
	QuoteVersionID    string             `json:"quoteVersionID"`
	VersionNumber     int                `json:"versionNumber"`
	FormData          FormData           `json:"formData"`
	CalculationResult *CalculationResult `json:"calculationResult,omitempty"`
	WorkflowState     QuoteState         `json:"workflowState"`
	CreatedAt         time.Time          `json:"createdAt"`
	CreatedBy         string             `json:"createdBy"`
}

// Quote is one quote of an aggregate. Non new business quotes apply to the aggregate's policy.
type Quote struct {
	QuoteID                 string             `json:"quoteID"`
	ProductID               string             `json:"productID"`
	Type                    QuoteType          `json:"type"`
	QuoteNumber             *string            `json:"quoteNumber,omitempty"`
	WorkflowState           QuoteState         `json:"workflowState"`
	LatestFormData          *FormData          `json:"latestFormData,omitempty"`
	LatestCalculationResult *CalculationResult `json:"latestCalculationResult,omitempty"`
	Versions                []QuoteVersion     `json:"versions"`
	// EffectiveDate is the inception date for new business and the change date otherwise.
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	// ExpiryDate is the requested period end for new business and renewals.
	ExpiryDate          *time.Time `json:"expiryDate,omitempty"`
	PolicyTransactionID *string    `json:"policyTransactionID,omitempty"`
	AuditFields
}

// IsOpen reports whether the quote can still progress.
func (q *Quote) IsOpen() bool {
	return q.WorkflowState != StateComplete && q.WorkflowState != StateDeclined
}

// HasBindableCalculation reports whether the latest calculation is bindable and was
// calculated from the latest form data.
func (q *Quote) HasBindableCalculation() bool {
	return q.calculationProblem() == ""
}

func (q *Quote) calculationProblem() string {
	switch {
	case q.LatestCalculationResult == nil:
		return ErrCodeCalculationResultMissing
	case q.LatestFormData == nil || q.LatestCalculationResult.FormDataID != q.LatestFormData.FormDataID:
		return ErrCodeCalculationResultStale
	case !q.LatestCalculationResult.IsBindable():
		return ErrCodeCalculationResultNotBinding
	}
	return ""
}

// FindVersion returns the version with the given number, or nil.
func (q *Quote) FindVersion(number int) *QuoteVersion {
	for i := range q.Versions {
		if q.Versions[i].VersionNumber == number {
			return &q.Versions[i]
		}
	}
	return nil
}
