package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentClient struct {
	mock.Mock
}

func (m *MockPaymentClient) Create(ctx context.Context, request payment.Request) (*payment.Response, error) {
	args := m.Called(ctx, request)
	resp, _ := args.Get(0).(*payment.Response)
	return resp, args.Error(1)
}

func chargeRequest() domain.PaymentRequest {
	return domain.PaymentRequest{
		PaymentID: "pay-1", TenantID: "t1", QuoteID: "q-1",
		Amount: decimal.RequireFromString("1016.50"), CurrencyCode: "AUD",
		Description: "Policy P-0001", PayerEmail: "payer@example.com",
		CardToken: "tok", PaymentMethodID: "visa",
	}
}

func TestMercadoPagoGateway_Charge(t *testing.T) {
	client := new(MockPaymentClient)
	gateway := &MercadoPagoGateway{client: client}
	client.On("Create", mock.Anything, mock.MatchedBy(func(r payment.Request) bool {
		return r.TransactionAmount == 1016.5 && r.Installments == 1 && r.ExternalReference == "pay-1" && r.Payer.Email == "payer@example.com"
	})).Return(&payment.Response{ID: 42, Status: "approved", StatusDetail: "accredited"}, nil).Once()

	outcome, err := gateway.Charge(context.Background(), chargeRequest())

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentOutcome{GatewayReference: "42", Status: "approved", StatusDetail: "accredited", Approved: true}, outcome)
	client.AssertExpectations(t)
}

func TestMercadoPagoGateway_ChargeRejectedAndFailed(t *testing.T) {
	client := new(MockPaymentClient)
	gateway := &MercadoPagoGateway{client: client}
	client.On("Create", mock.Anything, mock.Anything).Return(&payment.Response{ID: 7, Status: "rejected"}, nil).Once()
	client.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()

	outcome, err := gateway.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.False(t, outcome.Approved)

	_, err = gateway.Charge(context.Background(), chargeRequest())
	assert.Error(t, err)
}

func TestMockGateway(t *testing.T) {
	gateway := MockGateway{Now: func() time.Time { return time.Unix(0, 5) }}

	outcome, err := gateway.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.True(t, outcome.Approved)
	assert.Equal(t, "mock-5", outcome.GatewayReference)

	req := chargeRequest()
	req.CardToken = "decline-me"
	outcome, err = gateway.Charge(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, outcome.Approved)
}

func TestNewGateway(t *testing.T) {
	g, err := NewGateway(true, "")
	require.NoError(t, err)
	assert.IsType(t, MockGateway{}, g)

	_, err = NewGateway(false, "")
	assert.ErrorIs(t, err, ErrMissingMercadoPagoAccessToken)
}
