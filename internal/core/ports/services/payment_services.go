package services

import (
	"context"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/dto"
)

// PaymentGateway charges payers.
type PaymentGateway interface {
	Charge(ctx context.Context, req domain.PaymentRequest) (domain.PaymentOutcome, error)
}

// PaymentReaderSvc previews payment amounts
type PaymentReaderSvc interface {
	// PreviewMerchantFees computes the fees a card payment of the quote would add.
	PreviewMerchantFees(ctx context.Context, tenantID, quoteID, requestingUserID string) (*dto.MerchantFeeQuoteResponse, error)
}

// PaymentWriterSvc settles quotes
type PaymentWriterSvc interface {
	// PayQuote applies merchant fees for card payments, charges the gateway and records the outcome.
	PayQuote(ctx context.Context, tenantID, quoteID, userID string, req dto.PayQuoteRequest) (*domain.Payment, domain.PaymentOutcome, error)
}

// PaymentSvcFacade combines all payment-related service interfaces
type PaymentSvcFacade interface {
	PaymentReaderSvc
	PaymentWriterSvc
}
