package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteEvent is a row of the quote_events table, the append only event stream of an aggregate.
type QuoteEvent struct {
	TenantID         string          `db:"tenant_id"`
	AggregateID      string          `db:"aggregate_id"`
	SequenceNumber   int             `db:"sequence_number"`
	EventType        string          `db:"event_type"`
	Payload          json.RawMessage `db:"payload"`
	PerformingUserID string          `db:"performing_user_id"`
	CreatedAt        time.Time       `db:"created_at"`
}

// QuoteReadModel is a row of the quote_read_models table.
type QuoteReadModel struct {
	TenantID      string          `db:"tenant_id"`
	AggregateID   string          `db:"aggregate_id"`
	QuoteID       string          `db:"quote_id"`
	ProductID     string          `db:"product_id"`
	QuoteType     string          `db:"quote_type"`
	WorkflowState string          `db:"workflow_state"`
	QuoteNumber   *string         `db:"quote_number"`
	PolicyNumber  *string         `db:"policy_number"`
	TotalPayable  decimal.Decimal `db:"total_payable"`
	CurrencyCode  string          `db:"currency_code"`
	Bindable      bool            `db:"bindable"`
	CreatedAt     time.Time       `db:"created_at"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}

// PolicyReadModel is a row of the policy_read_models table.
type PolicyReadModel struct {
	TenantID                  string          `db:"tenant_id"`
	AggregateID               string          `db:"aggregate_id"`
	PolicyID                  string          `db:"policy_id"`
	PolicyNumber              string          `db:"policy_number"`
	ProductID                 string          `db:"product_id"`
	InceptionDate             time.Time       `db:"inception_date"`
	ExpiryDate                time.Time       `db:"expiry_date"`
	CancellationEffectiveDate *time.Time      `db:"cancellation_effective_date"`
	TransactionCount          int             `db:"transaction_count"`
	TotalCharged              decimal.Decimal `db:"total_charged"`
	IssuedAt                  time.Time       `db:"issued_at"`
	LastUpdatedAt             time.Time       `db:"last_updated_at"`
}
