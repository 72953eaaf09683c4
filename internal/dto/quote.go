package dto

import (
	"encoding/json"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Quote DTOs ---

// CreateQuoteRequest starts a new business quote.
type CreateQuoteRequest struct {
	ProductID     string          `json:"productID" binding:"required"`
	FormData      json.RawMessage `json:"formData"`
	InceptionDate time.Time       `json:"inceptionDate" binding:"required"`
	ExpiryDate    time.Time       `json:"expiryDate" binding:"required,gtfield=InceptionDate"`
}

// UpdateFormDataRequest replaces the form data of a quote.
type UpdateFormDataRequest struct {
	FormData json.RawMessage `json:"formData" binding:"required"`
}

// RecordCalculationRequest stores the rating engine's output for a form data revision.
type RecordCalculationRequest struct {
	FormDataID  string          `json:"formDataID" binding:"required"`
	Calculation json.RawMessage `json:"calculation" binding:"required"`
	// AutoProgress performs the action suggested by the calculation triggers.
	AutoProgress bool `json:"autoProgress"`
}

// WorkflowActionRequest performs a workflow action on a quote.
type WorkflowActionRequest struct {
	Action domain.QuoteAction `json:"action" binding:"required,quoteaction"`
}

// ListQuotesParams defines query parameters for listing quotes.
type ListQuotesParams struct {
	ProductID     string  `form:"productID"`
	QuoteType     string  `form:"quoteType" binding:"omitempty,quotetype"`
	WorkflowState string  `form:"state" binding:"omitempty,quotestate"`
	Limit         int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken     *string `form:"nextToken"`
}

// CalculationResultResponse is the client view of a calculation result.
type CalculationResultResponse struct {
	CalculationResultID string                      `json:"calculationResultID"`
	FormDataID          string                      `json:"formDataID"`
	State               domain.CalculationState     `json:"state"`
	Triggers            []domain.CalculationTrigger `json:"triggers"`
	PriceBreakdown      domain.PriceBreakdown       `json:"priceBreakdown"`
	Finalized           bool                        `json:"finalized"`
	JSON                json.RawMessage             `json:"json"`
	CreatedAt           time.Time                   `json:"createdAt"`
}

// ToCalculationResultResponse converts domain.CalculationResult to DTO. Nil stays nil.
func ToCalculationResultResponse(c *domain.CalculationResult) *CalculationResultResponse {
	if c == nil {
		return nil
	}
	triggers := c.Triggers
	if triggers == nil {
		triggers = []domain.CalculationTrigger{}
	}
	return &CalculationResultResponse{
		CalculationResultID: c.CalculationResultID,
		FormDataID:          c.FormDataID,
		State:               c.State,
		Triggers:            triggers,
		PriceBreakdown:      c.PriceBreakdown,
		Finalized:           c.Finalized,
		JSON:                c.JSON,
		CreatedAt:           c.CreatedAt,
	}
}

// QuoteVersionResponse is a stored snapshot of a quote.
type QuoteVersionResponse struct {
	QuoteVersionID    string                     `json:"quoteVersionID"`
	VersionNumber     int                        `json:"versionNumber"`
	WorkflowState     domain.QuoteState          `json:"workflowState"`
	FormData          domain.FormData            `json:"formData"`
	CalculationResult *CalculationResultResponse `json:"calculationResult,omitempty"`
	CreatedAt         time.Time                  `json:"createdAt"`
	CreatedBy         string                     `json:"createdBy"`
}

// ToQuoteVersionResponse converts domain.QuoteVersion to DTO.
func ToQuoteVersionResponse(v *domain.QuoteVersion) QuoteVersionResponse {
	return QuoteVersionResponse{
		QuoteVersionID:    v.QuoteVersionID,
		VersionNumber:     v.VersionNumber,
		WorkflowState:     v.WorkflowState,
		FormData:          v.FormData,
		CalculationResult: ToCalculationResultResponse(v.CalculationResult),
		CreatedAt:         v.CreatedAt,
		CreatedBy:         v.CreatedBy,
	}
}

// QuoteResponse is the full view of a quote loaded from its aggregate.
type QuoteResponse struct {
	TenantID            string                     `json:"tenantID"`
	AggregateID         string                     `json:"aggregateID"`
	QuoteID             string                     `json:"quoteID"`
	ProductID           string                     `json:"productID"`
	QuoteType           domain.QuoteType           `json:"quoteType"`
	QuoteNumber         *string                    `json:"quoteNumber,omitempty"`
	WorkflowState       domain.QuoteState          `json:"workflowState"`
	EffectiveDate       *time.Time                 `json:"effectiveDate,omitempty"`
	ExpiryDate          *time.Time                 `json:"expiryDate,omitempty"`
	FormData            *domain.FormData           `json:"formData,omitempty"`
	CalculationResult   *CalculationResultResponse `json:"calculationResult,omitempty"`
	Bindable            bool                       `json:"bindable"`
	AvailableActions    []domain.QuoteAction       `json:"availableActions"`
	Versions            []QuoteVersionResponse     `json:"versions"`
	PolicyNumber        *string                    `json:"policyNumber,omitempty"`
	PolicyTransactionID *string                    `json:"policyTransactionID,omitempty"`
	CreatedAt           time.Time                  `json:"createdAt"`
	CreatedBy           string                     `json:"createdBy"`
	LastUpdatedAt       time.Time                  `json:"lastUpdatedAt"`
	LastUpdatedBy       string                     `json:"lastUpdatedBy"`
}

// ToQuoteResponse converts a quote of an aggregate to DTO. Available actions are those the
// workflow permits in the quote's current state.
func ToQuoteResponse(agg *domain.QuoteAggregate, q *domain.Quote, wf *domain.QuoteWorkflow) QuoteResponse {
	resp := QuoteResponse{
		TenantID:            agg.TenantID,
		AggregateID:         agg.AggregateID,
		QuoteID:             q.QuoteID,
		ProductID:           q.ProductID,
		QuoteType:           q.Type,
		QuoteNumber:         q.QuoteNumber,
		WorkflowState:       q.WorkflowState,
		EffectiveDate:       q.EffectiveDate,
		ExpiryDate:          q.ExpiryDate,
		FormData:            q.LatestFormData,
		CalculationResult:   ToCalculationResultResponse(q.LatestCalculationResult),
		Bindable:            q.HasBindableCalculation(),
		AvailableActions:    []domain.QuoteAction{},
		Versions:            make([]QuoteVersionResponse, len(q.Versions)),
		PolicyTransactionID: q.PolicyTransactionID,
		CreatedAt:           q.CreatedAt,
		CreatedBy:           q.CreatedBy,
		LastUpdatedAt:       q.LastUpdatedAt,
		LastUpdatedBy:       q.LastUpdatedBy,
	}
	for i := range q.Versions {
		resp.Versions[i] = ToQuoteVersionResponse(&q.Versions[i])
	}
	if agg.Policy != nil && q.PolicyTransactionID != nil {
		number := agg.Policy.PolicyNumber
		resp.PolicyNumber = &number
	}
	if wf != nil && q.IsOpen() {
		for _, name := range wf.DefinedActions() {
			action := domain.QuoteAction(name)
			if ok, err := wf.IsActionPermittedByState(action, q.WorkflowState); err == nil && ok {
				resp.AvailableActions = append(resp.AvailableActions, action)
			}
		}
	}
	return resp
}

// QuoteSummaryResponse is a row of a quote listing.
type QuoteSummaryResponse struct {
	AggregateID   string            `json:"aggregateID"`
	QuoteID       string            `json:"quoteID"`
	ProductID     string            `json:"productID"`
	QuoteType     domain.QuoteType  `json:"quoteType"`
	WorkflowState domain.QuoteState `json:"workflowState"`
	QuoteNumber   *string           `json:"quoteNumber,omitempty"`
	PolicyNumber  *string           `json:"policyNumber,omitempty"`
	TotalPayable  decimal.Decimal   `json:"totalPayable"`
	CurrencyCode  string            `json:"currencyCode,omitempty"`
	Bindable      bool              `json:"bindable"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastUpdatedAt time.Time         `json:"lastUpdatedAt"`
}

// ToQuoteSummaryResponse converts a read model to DTO.
func ToQuoteSummaryResponse(rm *domain.QuoteReadModel) QuoteSummaryResponse {
	return QuoteSummaryResponse{
		AggregateID:   rm.AggregateID,
		QuoteID:       rm.QuoteID,
		ProductID:     rm.ProductID,
		QuoteType:     rm.QuoteType,
		WorkflowState: rm.WorkflowState,
		QuoteNumber:   rm.QuoteNumber,
		PolicyNumber:  rm.PolicyNumber,
		TotalPayable:  rm.TotalPayable,
		CurrencyCode:  rm.CurrencyCode,
		Bindable:      rm.Bindable,
		CreatedAt:     rm.CreatedAt,
		LastUpdatedAt: rm.LastUpdatedAt,
	}
}

// ListQuotesResponse wraps a page of quotes.
type ListQuotesResponse struct {
	Quotes    []QuoteSummaryResponse `json:"quotes"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToListQuotesResponse converts read models to DTO.
func ToListQuotesResponse(rms []domain.QuoteReadModel, nextToken *string) ListQuotesResponse {
	list := make([]QuoteSummaryResponse, len(rms))
	for i := range rms {
		list[i] = ToQuoteSummaryResponse(&rms[i])
	}
	return ListQuotesResponse{Quotes: list, NextToken: nextToken}
}

// WorkflowActionResponse reports the state reached by a workflow action.
type WorkflowActionResponse struct {
	QuoteID       string             `json:"quoteID"`
	Action        domain.QuoteAction `json:"action"`
	WorkflowState domain.QuoteState  `json:"workflowState"`
}

// EventResponse is one entry of an aggregate's history.
type EventResponse struct {
	Sequence         int                `json:"sequence"`
	EventType        string             `json:"eventType"`
	PerformingUserID string             `json:"performingUserID"`
	CreatedAt        time.Time          `json:"createdAt"`
	Payload          domain.DomainEvent `json:"payload"`
}

// ToEventResponses converts stored events to DTO.
func ToEventResponses(events []domain.EventEnvelope) []EventResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			Sequence:         e.Sequence,
			EventType:        e.EventType(),
			PerformingUserID: e.PerformingUserID,
			CreatedAt:        e.CreatedAt,
			Payload:          e.Event,
		}
	}
	return out
}
