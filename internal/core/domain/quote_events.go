package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/shopspring/decimal"
)

// DomainEvent is a fact recorded against a quote aggregate.
type DomainEvent interface {
	EventType() string
}

// EventEnvelope is a DomainEvent with its position in the aggregate's stream.
type EventEnvelope struct {
	TenantID         string      `json:"tenantID"`
	AggregateID      string      `json:"aggregateID"`
	Sequence         int         `json:"sequence"`
	PerformingUserID string      `json:"performingUserID"`
	CreatedAt        time.Time   `json:"createdAt"`
	Event            DomainEvent `json:"-"`
}

// EventType returns the type of the wrapped event.
func (e EventEnvelope) EventType() string {
	return e.Event.EventType()
}

type QuoteInitializedEvent struct {
	QuoteID       string          `json:"quoteID"`
	QuoteType     QuoteType       `json:"quoteType"`
	ProductID     string          `json:"productID"`
	FormData      FormData        `json:"formData"`
	EffectiveDate *time.Time      `json:"effectiveDate,omitempty"`
	ExpiryDate    *time.Time      `json:"expiryDate,omitempty"`
	InitialState  QuoteState      `json:"initialState"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

type FormDataUpdatedEvent struct {
	QuoteID  string   `json:"quoteID"`
	FormData FormData `json:"formData"`
}

type CalculationResultCreatedEvent struct {
	QuoteID             string          `json:"quoteID"`
	CalculationResultID string          `json:"calculationResultID"`
	FormDataID          string          `json:"formDataID"`
	JSON                json.RawMessage `json:"json"`
}

type MerchantFeesAppliedEvent struct {
	QuoteID             string          `json:"quoteID"`
	CalculationResultID string          `json:"calculationResultID"`
	MerchantFees        decimal.Decimal `json:"merchantFees"`
	MerchantFeesGST     decimal.Decimal `json:"merchantFeesGst"`
	JSON                json.RawMessage `json:"json"`
}

type QuoteNumberAssignedEvent struct {
	QuoteID     string `json:"quoteID"`
	QuoteNumber string `json:"quoteNumber"`
}

type QuoteStateChangedEvent struct {
	QuoteID        string      `json:"quoteID"`
	Action         QuoteAction `json:"action"`
	OriginalState  QuoteState  `json:"originalState"`
	ResultingState QuoteState  `json:"resultingState"`
}

type QuoteVersionCreatedEvent struct {
	QuoteID        string `json:"quoteID"`
	QuoteVersionID string `json:"quoteVersionID"`
	VersionNumber  int    `json:"versionNumber"`
}

// PolicyTransactionEvent carries the transaction every policy event completes.
type PolicyTransactionEvent struct {
	QuoteID             string        `json:"quoteID"`
	PolicyTransactionID string        `json:"policyTransactionID"`
	EffectiveDate       time.Time     `json:"effectiveDate"`
	PeriodStart         time.Time     `json:"periodStart"`
	PeriodEnd           time.Time     `json:"periodEnd"`
	CreatedTicks        int64         `json:"createdTicksSinceEpoch"`
	Payable             ProRataResult `json:"payable"`
}

type PolicyIssuedEvent struct {
	PolicyTransactionEvent
	PolicyID     string `json:"policyID"`
	PolicyNumber string `json:"policyNumber"`
}

type PolicyAdjustedEvent struct {
	PolicyTransactionEvent
}

type PolicyRenewedEvent struct {
	PolicyTransactionEvent
}

type PolicyCancelledEvent struct {
	PolicyTransactionEvent
}

type PolicyDataPatchedEvent struct {
	PatchID string                  `json:"patchID"`
	Scope   PolicyDataPatchScope    `json:"scope"`
	Targets []PolicyDataPatchTarget `json:"targets"`
}

type PaymentMadeEvent struct {
	QuoteID          string          `json:"quoteID"`
	PaymentID        string          `json:"paymentID"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	GatewayReference string          `json:"gatewayReference"`
}

type PaymentFailedEvent struct {
	QuoteID          string          `json:"quoteID"`
	PaymentID        string          `json:"paymentID"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	GatewayReference string          `json:"gatewayReference,omitempty"`
	Reason           string          `json:"reason"`
}

func (QuoteInitializedEvent) EventType() string         { return "QuoteInitialized" }
func (FormDataUpdatedEvent) EventType() string          { return "FormDataUpdated" }
func (CalculationResultCreatedEvent) EventType() string { return "CalculationResultCreated" }
func (MerchantFeesAppliedEvent) EventType() string      { return "MerchantFeesApplied" }
func (QuoteNumberAssignedEvent) EventType() string      { return "QuoteNumberAssigned" }
func (QuoteStateChangedEvent) EventType() string        { return "QuoteStateChanged" }
func (QuoteVersionCreatedEvent) EventType() string      { return "QuoteVersionCreated" }
func (PolicyIssuedEvent) EventType() string             { return "PolicyIssued" }
func (PolicyAdjustedEvent) EventType() string           { return "PolicyAdjusted" }
func (PolicyRenewedEvent) EventType() string            { return "PolicyRenewed" }
func (PolicyCancelledEvent) EventType() string          { return "PolicyCancelled" }
func (PolicyDataPatchedEvent) EventType() string        { return "PolicyDataPatched" }
func (PaymentMadeEvent) EventType() string              { return "PaymentMade" }
func (PaymentFailedEvent) EventType() string            { return "PaymentFailed" }

var eventFactories = map[string]func() DomainEvent{
	"QuoteInitialized":         func() DomainEvent { return &QuoteInitializedEvent{} },
	"FormDataUpdated":          func() DomainEvent { return &FormDataUpdatedEvent{} },
	"CalculationResultCreated": func() DomainEvent { return &CalculationResultCreatedEvent{} },
	"MerchantFeesApplied":      func() DomainEvent { return &MerchantFeesAppliedEvent{} },
	"QuoteNumberAssigned":      func() DomainEvent { return &QuoteNumberAssignedEvent{} },
	"QuoteStateChanged":        func() DomainEvent { return &QuoteStateChangedEvent{} },
	"QuoteVersionCreated":      func() DomainEvent { return &QuoteVersionCreatedEvent{} },
	"PolicyIssued":             func() DomainEvent { return &PolicyIssuedEvent{} },
	"PolicyAdjusted":           func() DomainEvent { return &PolicyAdjustedEvent{} },
	"PolicyRenewed":            func() DomainEvent { return &PolicyRenewedEvent{} },
	"PolicyCancelled":          func() DomainEvent { return &PolicyCancelledEvent{} },
	"PolicyDataPatched":        func() DomainEvent { return &PolicyDataPatchedEvent{} },
	"PaymentMade":              func() DomainEvent { return &PaymentMadeEvent{} },
	"PaymentFailed":            func() DomainEvent { return &PaymentFailedEvent{} },
}

// MarshalEventPayload encodes the event body for storage.
func MarshalEventPayload(e DomainEvent) (json.RawMessage, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.EventType(), err)
	}
	return b, nil
}

// UnmarshalEvent decodes a stored event body by its type name.
func UnmarshalEvent(eventType string, payload json.RawMessage) (DomainEvent, error) {
	factory, ok := eventFactories[eventType]
	if !ok {
		return nil, apperrors.NewDomainError(apperrors.ErrInternal, ErrCodeEventTypeUnknown,
			fmt.Sprintf("unknown event type %q", eventType), map[string]any{"eventType": eventType})
	}
	evt := factory()
	if err := json.Unmarshal(payload, evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", eventType, err)
	}
	return derefEvent(evt), nil
}

// derefEvent returns value events so replayed and freshly recorded events compare equal.
func derefEvent(e DomainEvent) DomainEvent {
	switch v := e.(type) {
	case *QuoteInitializedEvent:
		return *v
	case *FormDataUpdatedEvent:
		return *v
	case *CalculationResultCreatedEvent:
		return *v
	case *MerchantFeesAppliedEvent:
		return *v
	case *QuoteNumberAssignedEvent:
		return *v
	case *QuoteStateChangedEvent:
		return *v
	case *QuoteVersionCreatedEvent:
		return *v
	case *PolicyIssuedEvent:
		return *v
	case *PolicyAdjustedEvent:
		return *v
	case *PolicyRenewedEvent:
		return *v
	case *PolicyCancelledEvent:
		return *v
	case *PolicyDataPatchedEvent:
		return *v
	case *PaymentMadeEvent:
		return *v
	case *PaymentFailedEvent:
		return *v
	}
	return e
}
