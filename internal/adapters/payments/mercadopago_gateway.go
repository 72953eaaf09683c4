package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

const statusApproved = "approved"

// paymentCreator is the part of the Mercado Pago payment client the gateway uses.
type paymentCreator interface {
	Create(ctx context.Context, request payment.Request) (*payment.Response, error)
}

// MercadoPagoGateway charges cards through Mercado Pago.
type MercadoPagoGateway struct {
	client paymentCreator
}

var _ portssvc.PaymentGateway = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(accessToken string) (*MercadoPagoGateway, error) {
	if accessToken == "" {
		return nil, ErrMissingMercadoPagoAccessToken
	}
	cfg, err := mpconfig.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed creating mercado pago config: %w", err)
	}
	slog.Info("Mercado Pago client initialized")
	return &MercadoPagoGateway{client: payment.NewClient(cfg)}, nil
}

func (g *MercadoPagoGateway) Charge(ctx context.Context, req domain.PaymentRequest) (domain.PaymentOutcome, error) {
	amount, _ := req.Amount.Float64()
	installments := req.Installments
	if installments <= 0 {
		installments = 1
	}
	mpReq := payment.Request{
		TransactionAmount: amount,
		Description:       req.Description,
		Token:             req.CardToken,
		PaymentMethodID:   req.PaymentMethodID,
		Installments:      installments,
		ExternalReference: req.PaymentID,
		Payer:             &payment.PayerRequest{Email: req.PayerEmail},
	}

	resp, err := g.client.Create(ctx, mpReq)
	if err != nil {
		slog.ErrorContext(ctx, "Mercado Pago create payment failed",
			slog.String("payment_id", req.PaymentID), slog.String("error", err.Error()))
		return domain.PaymentOutcome{}, fmt.Errorf("mercado pago create payment: %w", err)
	}
	slog.InfoContext(ctx, "Mercado Pago payment created",
		slog.String("payment_id", req.PaymentID), slog.Int("provider_id", resp.ID), slog.String("status", resp.Status))

	return domain.PaymentOutcome{
		GatewayReference: strconv.Itoa(resp.ID),
		Status:           resp.Status,
		StatusDetail:     resp.StatusDetail,
		Approved:         resp.Status == statusApproved,
	}, nil
}

// MockGateway approves every charge. Card tokens starting with "decline" are rejected.
type MockGateway struct {
	Now func() time.Time
}

var _ portssvc.PaymentGateway = MockGateway{}

func (g MockGateway) Charge(ctx context.Context, req domain.PaymentRequest) (domain.PaymentOutcome, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ref := "mock-" + strconv.FormatInt(now().UTC().UnixNano(), 10)
	if strings.HasPrefix(req.CardToken, "decline") {
		slog.InfoContext(ctx, "Mock gateway declined payment", slog.String("payment_id", req.PaymentID))
		return domain.PaymentOutcome{GatewayReference: ref, Status: "rejected", StatusDetail: "cc_rejected_other_reason"}, nil
	}
	slog.InfoContext(ctx, "Mock gateway approved payment", slog.String("payment_id", req.PaymentID), slog.String("amount", req.Amount.String()))
	return domain.PaymentOutcome{GatewayReference: ref, Status: statusApproved, StatusDetail: "accredited", Approved: true}, nil
}

// NewGateway returns the mock gateway when mock is set, otherwise Mercado Pago.
func NewGateway(mock bool, accessToken string) (portssvc.PaymentGateway, error) {
	if mock {
		slog.Info("Payment gateway mock mode enabled")
		return MockGateway{}, nil
	}
	return NewMercadoPagoGateway(accessToken)
}
