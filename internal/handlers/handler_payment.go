package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/gin-gonic/gin"
)

type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

// RegisterPaymentRoutes registers the quote payment routes on a tenant scoped group.
func RegisterPaymentRoutes(tenantScoped *gin.RouterGroup, paymentService portssvc.PaymentSvcFacade) {
	h := &paymentHandler{paymentService: paymentService}
	tenantScoped.GET("/quotes/:quote_id/merchant-fees", h.previewMerchantFees)
	tenantScoped.POST("/quotes/:quote_id/payments", h.payQuote)
}

// previewMerchantFees godoc
// @Summary Preview card merchant fees
// @Tags payments
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Success 200 {object} dto.MerchantFeeQuoteResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "No bindable calculation"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/merchant-fees [get]
func (h *paymentHandler) previewMerchantFees(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	fees, err := h.paymentService.PreviewMerchantFees(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to preview merchant fees")
		return
	}
	c.JSON(http.StatusOK, fees)
}

// payQuote godoc
// @Summary Pay for an approved quote
// @Description Patches merchant fees into the calculation and charges the payer.
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Param   payment body dto.PayQuoteRequest true "Payment details"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} ErrorResponse "Payment declined"
// @Failure 422 {object} ErrorResponse "Quote is not approved"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/payments [post]
func (h *paymentHandler) payQuote(c *gin.Context) {
	var req dto.PayQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	payment, outcome, err := h.paymentService.PayQuote(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID, req)
	if err != nil {
		respondWithError(c, err, "Failed to process payment")
		return
	}

	resp := dto.ToPaymentResponse(payment, outcome)
	if !outcome.Approved {
		middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Payment declined",
			slog.String("payment_id", payment.PaymentID), slog.String("status_detail", outcome.StatusDetail))
		c.JSON(http.StatusPaymentRequired, ErrorResponse{
			Error: "Payment was not approved",
			Code:  domain.ErrCodePaymentDeclined,
			Data:  map[string]any{"payment": resp},
		})
		return
	}
	c.JSON(http.StatusCreated, resp)
}
