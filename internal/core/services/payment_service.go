package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portsrepo "github.com/SscSPs/insurance_platform/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// paymentService settles approved quotes through a payment gateway
type paymentService struct {
	aggregateRunner
	tenants portsrepo.TenantReader
	gateway portssvc.PaymentGateway
	fees    domain.MerchantFeeSchedule
}

// NewPaymentService creates a new payment service with the provided dependencies
func NewPaymentService(
	repo portsrepo.QuoteRepositoryFacade,
	tenants portsrepo.TenantReader,
	gateway portssvc.PaymentGateway,
	fees domain.MerchantFeeSchedule,
	options ...AggregateOption,
) portssvc.PaymentSvcFacade {
	return &paymentService{
		aggregateRunner: newAggregateRunner(repo, options...),
		tenants:         tenants,
		gateway:         gateway,
		fees:            fees,
	}
}

var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

func (s *paymentService) PreviewMerchantFees(ctx context.Context, tenantID, quoteID, requestingUserID string) (*dto.MerchantFeeQuoteResponse, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, requestingUserID, domain.RoleReadOnly)
	if err != nil {
		return nil, err
	}
	agg, err := s.repo.LoadAggregate(ctx, tenantID, aggregateID)
	if err != nil {
		return nil, err
	}
	q, err := agg.FindQuote(quoteID)
	if err != nil {
		return nil, err
	}
	if q.LatestCalculationResult == nil {
		return nil, apperrors.NewDomainError(apperrors.ErrInvariantViolation, domain.ErrCodeCalculationResultMissing,
			"the quote has no calculation result", map[string]any{"quoteID": quoteID})
	}
	amount := amountBeforeFees(q.LatestCalculationResult)
	fee, gst := s.fees.Fees(amount)
	return &dto.MerchantFeeQuoteResponse{
		Amount:          amount,
		MerchantFees:    fee,
		MerchantFeesGST: gst,
		TotalPayable:    amount.Add(fee).Add(gst),
	}, nil
}

// PayQuote charges the quote's total payable. Card payments carry merchant fees which are
// patched into the calculation result before charging.
func (s *paymentService) PayQuote(ctx context.Context, tenantID, quoteID, userID string, req dto.PayQuoteRequest) (*domain.Payment, domain.PaymentOutcome, error) {
	aggregateID, err := s.locateQuote(ctx, tenantID, quoteID, userID, domain.RoleAgent)
	if err != nil {
		return nil, domain.PaymentOutcome{}, err
	}

	var (
		payment    domain.Payment
		outcome    domain.PaymentOutcome
		gatewayErr error
	)
	_, err = s.mutate(ctx, tenantID, aggregateID, func(agg *domain.QuoteAggregate) error {
		q, err := agg.FindQuote(quoteID)
		if err != nil {
			return err
		}
		if q.WorkflowState != domain.StateApproved {
			return apperrors.NewDomainError(apperrors.ErrInvariantViolation, domain.ErrCodePaymentQuoteNotApproved,
				fmt.Sprintf("quote %s must be approved before it is paid", quoteID),
				map[string]any{"quoteID": quoteID, "state": string(q.WorkflowState)})
		}
		if !q.HasBindableCalculation() {
			return apperrors.NewDomainError(apperrors.ErrInvariantViolation, domain.ErrCodeCalculationResultNotBinding,
				"the quote does not have a bindable calculation result", map[string]any{"quoteID": quoteID})
		}
		if err := agg.RequireUnpaid(quoteID); err != nil {
			return err
		}

		now := s.CurrentTime()
		calc := q.LatestCalculationResult
		fee, gst := decimal.Zero, decimal.Zero
		if req.PaymentMethod == domain.PaymentMethodCard {
			fee, gst = s.fees.Fees(amountBeforeFees(calc))
		}
		if !fee.Equal(calc.PriceBreakdown.MerchantFees) || !gst.Equal(calc.PriceBreakdown.MerchantFeesGST) {
			if err := agg.ApplyMerchantFees(quoteID, fee, gst, userID, now); err != nil {
				return err
			}
		}

		amount := q.LatestCalculationResult.PriceBreakdown.TotalPayable
		if !amount.IsPositive() {
			return apperrors.NewDomainError(apperrors.ErrValidation, domain.ErrCodePaymentAmountInvalid,
				"the quote has nothing to pay", map[string]any{"quoteID": quoteID, "amount": amount.String()})
		}
		currency, err := s.currencyFor(ctx, tenantID, q.LatestCalculationResult)
		if err != nil {
			return err
		}

		payment = domain.Payment{
			PaymentID:    uuid.NewString(),
			QuoteID:      quoteID,
			Amount:       amount,
			CurrencyCode: currency,
			CreatedAt:    now,
		}
		outcome, gatewayErr = s.gateway.Charge(ctx, domain.PaymentRequest{
			PaymentID:       payment.PaymentID,
			TenantID:        tenantID,
			QuoteID:         quoteID,
			Amount:          amount,
			CurrencyCode:    currency,
			Description:     quoteDescription(q),
			PayerEmail:      req.PayerEmail,
			CardToken:       req.CardToken,
			PaymentMethodID: req.PaymentMethodID,
			Installments:    req.Installments,
		})
		payment.GatewayReference = outcome.GatewayReference
		switch {
		case gatewayErr != nil:
			payment.Reason = gatewayErr.Error()
		case !outcome.Approved:
			payment.Reason = outcome.StatusDetail
		default:
			payment.Succeeded = true
		}
		return agg.RecordPayment(payment, userID, now)
	})
	if err != nil {
		return nil, domain.PaymentOutcome{}, err
	}
	if gatewayErr != nil {
		s.LogError(ctx, gatewayErr, "Payment gateway call failed",
			slog.String("quote_id", quoteID),
			slog.String("payment_id", payment.PaymentID))
		return &payment, outcome, fmt.Errorf("payment gateway failed: %w", gatewayErr)
	}
	s.LogInfo(ctx, "Quote payment processed",
		slog.String("quote_id", quoteID),
		slog.String("payment_id", payment.PaymentID),
		slog.String("amount", payment.Amount.String()),
		slog.Bool("approved", outcome.Approved))
	return &payment, outcome, nil
}

func (s *paymentService) currencyFor(ctx context.Context, tenantID string, calc *domain.CalculationResult) (string, error) {
	if calc.PriceBreakdown.CurrencyCode != "" {
		return calc.PriceBreakdown.CurrencyCode, nil
	}
	tenant, err := s.tenants.FindTenantByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return tenant.CurrencyCode, nil
}

// amountBeforeFees is the total payable without any merchant fees already applied.
func amountBeforeFees(calc *domain.CalculationResult) decimal.Decimal {
	pb := calc.PriceBreakdown
	return pb.TotalPayable.Sub(pb.MerchantFees).Sub(pb.MerchantFeesGST)
}

func quoteDescription(q *domain.Quote) string {
	if q.QuoteNumber != nil {
		return fmt.Sprintf("%s quote %s", q.Type, *q.QuoteNumber)
	}
	return fmt.Sprintf("%s quote %s", q.Type, q.QuoteID)
}
