package handlers

import (
	"net/http"
	"time"

	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/gin-gonic/gin"
)

// BindQuoteResponse is returned when a quote completes a policy transaction.
type BindQuoteResponse struct {
	Policy      dto.PolicyResponse            `json:"policy"`
	Transaction dto.PolicyTransactionResponse `json:"transaction"`
}

// policyHandler handles HTTP requests for issued policies and their transactions.
type policyHandler struct {
	policyService portssvc.PolicySvcFacade
	posthog       *utils.PosthogClientWrapper
	now           func() time.Time
}

func newPolicyHandler(ps portssvc.PolicySvcFacade, posthog *utils.PosthogClientWrapper) *policyHandler {
	return &policyHandler{policyService: ps, posthog: posthog, now: func() time.Time { return time.Now().UTC() }}
}

// RegisterPolicyRoutes registers the policy routes on a tenant scoped group.
func RegisterPolicyRoutes(tenantScoped *gin.RouterGroup, policyService portssvc.PolicySvcFacade, posthog *utils.PosthogClientWrapper) {
	h := newPolicyHandler(policyService, posthog)

	policies := tenantScoped.Group("/policies")
	{
		policies.GET("", h.listPolicies)
		policies.GET("/:policy_number", h.getPolicy)
		policies.POST("/:policy_number/quotes", h.startPolicyQuote)
	}
	tenantScoped.POST("/quotes/:quote_id/bind", h.bindQuote)
}

// listPolicies godoc
// @Summary List policies
// @Description Lists the tenant's issued policies, most recently issued first.
// @Tags policies
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListPoliciesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/policies [get]
func (h *policyHandler) listPolicies(c *gin.Context) {
	var params dto.ListPoliciesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	policies, nextToken, err := h.policyService.ListPolicies(c.Request.Context(), c.Param("tenant_id"), userID, params)
	if err != nil {
		respondWithError(c, err, "Failed to list policies")
		return
	}
	c.JSON(http.StatusOK, dto.ToListPoliciesResponse(policies, nextToken))
}

// getPolicy godoc
// @Summary Get a policy
// @Description Returns the policy with its transactions and pro-rata payables.
// @Tags policies
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   policy_number path string true "Policy number"
// @Success 200 {object} dto.PolicyResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/policies/{policy_number} [get]
func (h *policyHandler) getPolicy(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	agg, err := h.policyService.GetPolicy(c.Request.Context(), c.Param("tenant_id"), c.Param("policy_number"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to retrieve policy")
		return
	}
	c.JSON(http.StatusOK, dto.ToPolicyResponse(agg, h.now()))
}

// startPolicyQuote godoc
// @Summary Start an adjustment, cancellation or renewal quote
// @Tags policies
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   policy_number path string true "Policy number"
// @Param   quote body dto.StartPolicyQuoteRequest true "Transaction type and dates"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Another transaction quote is in progress"
// @Failure 422 {object} ErrorResponse "Policy cancelled or expired"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/policies/{policy_number}/quotes [post]
func (h *policyHandler) startPolicyQuote(c *gin.Context) {
	var req dto.StartPolicyQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	view, err := h.policyService.StartPolicyQuote(c.Request.Context(), c.Param("tenant_id"), c.Param("policy_number"), userID, req)
	if err != nil {
		respondWithError(c, err, "Failed to start policy quote")
		return
	}
	c.JSON(http.StatusCreated, dto.ToQuoteResponse(view.Aggregate, view.Quote, view.Workflow))
}

// bindQuote godoc
// @Summary Bind an approved quote
// @Description Completes the policy transaction for the quote, issuing the policy on new business.
// @Tags policies
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Success 200 {object} BindQuoteResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Quote is not approved"
// @Failure 422 {object} ErrorResponse "Calculation is not bindable"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/bind [post]
func (h *policyHandler) bindQuote(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	agg, tx, err := h.policyService.CompletePolicyTransaction(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to bind quote")
		return
	}

	middleware.PosthogEvent(c, h.posthog, "policy_transaction_completed", map[string]any{
		"tenant_id":      agg.TenantID,
		"policy_number":  agg.Policy.PolicyNumber,
		"product_id":     agg.ProductID,
		"quote_type":     string(tx.Type),
		"payable_amount": tx.Payable.Total.String(),
	})
	c.JSON(http.StatusOK, BindQuoteResponse{
		Policy:      dto.ToPolicyResponse(agg, h.now()),
		Transaction: dto.ToPolicyTransactionResponse(tx),
	})
}
