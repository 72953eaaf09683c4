package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/core/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceTestSuite struct {
	suite.Suite
	repo     *memoryQuoteRepo
	gateway  *MockGateway
	quotes   portssvc.QuoteSvcFacade
	payments portssvc.PaymentSvcFacade
	ctx      context.Context
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.repo = newMemoryQuoteRepo()
	s.gateway = new(MockGateway)
	s.ctx = context.Background()
	clock := &fixedClock{now: date(2026, 1, 10)}
	options := []services.AggregateOption{
		services.WithTenantAuthorizer(roleAuthorizer{testAgentID: domain.RoleAgent}),
		services.WithClock(clock.Now),
	}
	fees := domain.MerchantFeeSchedule{
		Percentage: decimal.RequireFromString("0.015"),
		Fixed:      decimal.Zero,
		GSTRate:    decimal.RequireFromString("0.10"),
	}
	s.quotes = services.NewQuoteService(s.repo, staticWorkflows{}, &sequenceNumbers{}, options...)
	s.payments = services.NewPaymentService(s.repo, nil, s.gateway, fees, options...)
}

func TestPaymentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) quote(approve bool) string {
	view, err := s.quotes.CreateQuote(s.ctx, testTenantID, testAgentID, dto.CreateQuoteRequest{
		ProductID: testProductID, FormData: json.RawMessage(testInitialForm),
		InceptionDate: date(2026, 2, 1), ExpiryDate: date(2027, 2, 1),
	})
	s.Require().NoError(err)
	_, err = s.quotes.RecordCalculation(s.ctx, testTenantID, view.Quote.QuoteID, testAgentID, dto.RecordCalculationRequest{
		FormDataID:   view.Quote.LatestFormData.FormDataID,
		Calculation:  bindingCalculation("1000"),
		AutoProgress: approve,
	})
	s.Require().NoError(err)
	return view.Quote.QuoteID
}

func (s *PaymentServiceTestSuite) cardRequest() dto.PayQuoteRequest {
	return dto.PayQuoteRequest{
		PaymentMethod: domain.PaymentMethodCard,
		CardToken:     "tok_123",
		PayerEmail:    "payer@example.com",
		Installments:  1,
	}
}

func (s *PaymentServiceTestSuite) TestPreviewMerchantFees() {
	quoteID := s.quote(true)

	preview, err := s.payments.PreviewMerchantFees(s.ctx, testTenantID, quoteID, testAgentID)
	s.Require().NoError(err)
	s.Equal("1000.00", preview.Amount.StringFixed(2))
	s.Equal("15.00", preview.MerchantFees.StringFixed(2))
	s.Equal("1.50", preview.MerchantFeesGST.StringFixed(2))
	s.Equal("1016.50", preview.TotalPayable.StringFixed(2))
}

func (s *PaymentServiceTestSuite) TestPayQuote_CardAppliesMerchantFees() {
	quoteID := s.quote(true)
	s.gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req domain.PaymentRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("1016.50")) && req.CurrencyCode == "AUD" && req.QuoteID == quoteID
	})).Return(domain.PaymentOutcome{GatewayReference: "mp-1", Status: "approved", Approved: true}, nil).Once()

	payment, outcome, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.Require().NoError(err)
	s.True(outcome.Approved)
	s.True(payment.Succeeded)
	s.Equal("mp-1", payment.GatewayReference)

	rm, err := s.repo.FindQuote(s.ctx, testTenantID, quoteID)
	s.Require().NoError(err)
	s.Equal("1016.50", rm.TotalPayable.StringFixed(2))

	events, err := s.repo.LoadEvents(s.ctx, testTenantID, rm.AggregateID)
	s.Require().NoError(err)
	s.Equal("MerchantFeesApplied", events[len(events)-2].EventType())
	s.Equal("PaymentMade", events[len(events)-1].EventType())
	s.gateway.AssertExpectations(s.T())
}

func (s *PaymentServiceTestSuite) TestPayQuote_DebitCarriesNoFees() {
	quoteID := s.quote(true)
	s.gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req domain.PaymentRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(1000))
	})).Return(domain.PaymentOutcome{GatewayReference: "mp-2", Approved: true}, nil).Once()

	req := s.cardRequest()
	req.PaymentMethod = domain.PaymentMethodDebit
	payment, _, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, req)
	s.Require().NoError(err)
	s.Equal("1000", payment.Amount.String())
	s.gateway.AssertExpectations(s.T())
}

func (s *PaymentServiceTestSuite) TestPayQuote_DeclinedIsRecorded() {
	quoteID := s.quote(true)
	s.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(domain.PaymentOutcome{GatewayReference: "mp-3", Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount"}, nil)

	payment, outcome, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.Require().NoError(err)
	s.False(outcome.Approved)
	s.False(payment.Succeeded)
	s.Equal("cc_rejected_insufficient_amount", payment.Reason)

	rm, _ := s.repo.FindQuote(s.ctx, testTenantID, quoteID)
	agg, err := s.repo.LoadAggregate(s.ctx, testTenantID, rm.AggregateID)
	s.Require().NoError(err)
	s.Require().Len(agg.Payments, 1)
	s.False(agg.Payments[0].Succeeded)
}

func (s *PaymentServiceTestSuite) TestPayQuote_GatewayErrorIsRecordedAndReturned() {
	quoteID := s.quote(true)
	s.gateway.On("Charge", mock.Anything, mock.Anything).Return(domain.PaymentOutcome{}, errors.New("connection reset"))

	payment, _, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.Require().Error(err)
	s.Require().NotNil(payment)
	s.Equal("connection reset", payment.Reason)

	rm, _ := s.repo.FindQuote(s.ctx, testTenantID, quoteID)
	events, err := s.repo.LoadEvents(s.ctx, testTenantID, rm.AggregateID)
	s.Require().NoError(err)
	s.Equal("PaymentFailed", events[len(events)-1].EventType())
}

func (s *PaymentServiceTestSuite) TestPayQuote_RequiresApprovedQuote() {
	quoteID := s.quote(false)

	_, _, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.ErrorIs(err, apperrors.ErrInvariantViolation)
	s.True(apperrors.HasCode(err, domain.ErrCodePaymentQuoteNotApproved))
	s.gateway.AssertNotCalled(s.T(), "Charge", mock.Anything, mock.Anything)
}

func (s *PaymentServiceTestSuite) TestPayQuote_PaidQuoteIsNotChargedAgain() {
	quoteID := s.quote(true)
	s.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(domain.PaymentOutcome{GatewayReference: "mp-4", Status: "approved", Approved: true}, nil).Once()

	_, _, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.Require().NoError(err)

	_, _, err = s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.ErrorIs(err, apperrors.ErrConflict)
	s.True(apperrors.HasCode(err, domain.ErrCodePaymentQuoteAlreadyPaid))
	s.gateway.AssertNumberOfCalls(s.T(), "Charge", 1)

	rm, _ := s.repo.FindQuote(s.ctx, testTenantID, quoteID)
	agg, err := s.repo.LoadAggregate(s.ctx, testTenantID, rm.AggregateID)
	s.Require().NoError(err)
	s.Len(agg.Payments, 1)
}

func (s *PaymentServiceTestSuite) TestPayQuote_RetryAfterDeclineIsAllowed() {
	quoteID := s.quote(true)
	s.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(domain.PaymentOutcome{GatewayReference: "mp-5", Status: "rejected"}, nil).Once()
	s.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(domain.PaymentOutcome{GatewayReference: "mp-6", Status: "approved", Approved: true}, nil).Once()

	first, _, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.Require().NoError(err)
	s.False(first.Succeeded)

	second, _, err := s.payments.PayQuote(s.ctx, testTenantID, quoteID, testAgentID, s.cardRequest())
	s.Require().NoError(err)
	s.True(second.Succeeded)
	s.gateway.AssertExpectations(s.T())
}
