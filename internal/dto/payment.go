package dto

import (
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/shopspring/decimal"
)

// --- Payment DTOs ---

// PayQuoteRequest settles the total payable of a quote through the payment gateway.
type PayQuoteRequest struct {
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod" binding:"required,oneof=card debit"`
	CardToken       string               `json:"cardToken"`
	PaymentMethodID string               `json:"paymentMethodID"`
	PayerEmail      string               `json:"payerEmail" binding:"required,email"`
	Installments    int                  `json:"installments" binding:"omitempty,min=1,max=12"`
}

// MerchantFeeQuoteResponse previews the fees applied when paying by card.
type MerchantFeeQuoteResponse struct {
	Amount          decimal.Decimal `json:"amount"`
	MerchantFees    decimal.Decimal `json:"merchantFees"`
	MerchantFeesGST decimal.Decimal `json:"merchantFeesGst"`
	TotalPayable    decimal.Decimal `json:"totalPayable"`
}

// PaymentResponse reports the outcome of a payment attempt.
type PaymentResponse struct {
	PaymentID        string          `json:"paymentID"`
	QuoteID          string          `json:"quoteID"`
	Amount           decimal.Decimal `json:"amount"`
	CurrencyCode     string          `json:"currencyCode"`
	Approved         bool            `json:"approved"`
	Status           string          `json:"status"`
	StatusDetail     string          `json:"statusDetail,omitempty"`
	GatewayReference string          `json:"gatewayReference,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ToPaymentResponse converts a recorded payment to DTO.
func ToPaymentResponse(p *domain.Payment, outcome domain.PaymentOutcome) PaymentResponse {
	return PaymentResponse{
		PaymentID:        p.PaymentID,
		QuoteID:          p.QuoteID,
		Amount:           p.Amount,
		CurrencyCode:     p.CurrencyCode,
		Approved:         outcome.Approved,
		Status:           outcome.Status,
		StatusDetail:     outcome.StatusDetail,
		GatewayReference: outcome.GatewayReference,
		CreatedAt:        p.CreatedAt,
	}
}
