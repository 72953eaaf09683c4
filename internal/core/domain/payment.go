package domain

import "github.com/shopspring/decimal"

// PaymentMethod is how the payer settles a quote.
type PaymentMethod string

const (
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodDebit PaymentMethod = "debit"
)

// MerchantFeeSchedule describes the surcharge added when paying by a given method.
type MerchantFeeSchedule struct {
	Percentage decimal.Decimal // e.g. 0.015 for 1.5%
	Fixed      decimal.Decimal
	GSTRate    decimal.Decimal // e.g. 0.10
}

// Fees computes the merchant fee and its GST for an amount, rounded to cents.
func (s MerchantFeeSchedule) Fees(amount decimal.Decimal) (fee, gst decimal.Decimal) {
	fee = amount.Mul(s.Percentage).Add(s.Fixed).RoundBank(2)
	gst = fee.Mul(s.GSTRate).RoundBank(2)
	return fee, gst
}

// PaymentRequest is sent to a payment gateway.
type PaymentRequest struct {
	PaymentID       string
	TenantID        string
	QuoteID         string
	Amount          decimal.Decimal
	CurrencyCode    string
	Description     string
	PayerEmail      string
	CardToken       string
	PaymentMethodID string
	Installments    int
}

// PaymentOutcome is the gateway's answer to a PaymentRequest.
type PaymentOutcome struct {
	GatewayReference string
	Status           string
	StatusDetail     string
	Approved         bool
}
