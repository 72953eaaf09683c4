package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/gin-gonic/gin"
)

// quoteHandler handles HTTP requests for quotes within a tenant.
type quoteHandler struct {
	quoteService portssvc.QuoteSvcFacade
}

func newQuoteHandler(qs portssvc.QuoteSvcFacade) *quoteHandler {
	return &quoteHandler{quoteService: qs}
}

// RegisterQuoteRoutes registers the quote routes on a tenant scoped group.
func RegisterQuoteRoutes(tenantScoped *gin.RouterGroup, quoteService portssvc.QuoteSvcFacade) {
	h := newQuoteHandler(quoteService)

	quotes := tenantScoped.Group("/quotes")
	{
		quotes.POST("", h.createQuote)
		quotes.GET("", h.listQuotes)
		quotes.GET("/:quote_id", h.getQuote)
		quotes.GET("/:quote_id/history", h.getQuoteHistory)
		quotes.PUT("/:quote_id/form-data", h.updateFormData)
		quotes.POST("/:quote_id/calculations", h.recordCalculation)
		quotes.POST("/:quote_id/actions", h.performAction)
		quotes.POST("/:quote_id/versions", h.createVersion)
	}
}

// createQuote godoc
// @Summary Start a new business quote
// @Description Opens a new aggregate with a nascent quote and assigns its quote number.
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote body dto.CreateQuoteRequest true "Product and cover period"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Aggregate busy"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes [post]
func (h *quoteHandler) createQuote(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.quoteService.CreateQuote(c.Request.Context(), c.Param("tenant_id"), userID, req)
	if err != nil {
		respondWithError(c, err, "Failed to create quote")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Quote created",
		slog.String("aggregate_id", view.Aggregate.AggregateID), slog.String("quote_id", view.Quote.QuoteID))
	c.JSON(http.StatusCreated, dto.ToQuoteResponse(view.Aggregate, view.Quote, view.Workflow))
}

// listQuotes godoc
// @Summary List quotes
// @Description Lists the tenant's quotes, most recently updated first.
// @Tags quotes
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   productID query string false "Filter by product"
// @Param   quoteType query string false "Filter by quote type"
// @Param   state query string false "Filter by workflow state"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListQuotesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes [get]
func (h *quoteHandler) listQuotes(c *gin.Context) {
	var params dto.ListQuotesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	quotes, nextToken, err := h.quoteService.ListQuotes(c.Request.Context(), c.Param("tenant_id"), userID, params)
	if err != nil {
		respondWithError(c, err, "Failed to list quotes")
		return
	}
	c.JSON(http.StatusOK, dto.ToListQuotesResponse(quotes, nextToken))
}

// getQuote godoc
// @Summary Get a quote
// @Tags quotes
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Success 200 {object} dto.QuoteResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id} [get]
func (h *quoteHandler) getQuote(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	view, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to retrieve quote")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(view.Aggregate, view.Quote, view.Workflow))
}

// getQuoteHistory godoc
// @Summary Event history of a quote's aggregate
// @Tags quotes
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Success 200 {array} dto.EventResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/history [get]
func (h *quoteHandler) getQuoteHistory(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	events, err := h.quoteService.GetQuoteHistory(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to load quote history")
		return
	}
	c.JSON(http.StatusOK, dto.ToEventResponses(events))
}

// updateFormData godoc
// @Summary Replace the quote's form data
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Param   formData body dto.UpdateFormDataRequest true "Form data"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Quote state does not permit form updates"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/form-data [put]
func (h *quoteHandler) updateFormData(c *gin.Context) {
	var req dto.UpdateFormDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	view, err := h.quoteService.UpdateFormData(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID, req)
	if err != nil {
		respondWithError(c, err, "Failed to update form data")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(view.Aggregate, view.Quote, view.Workflow))
}

// recordCalculation godoc
// @Summary Record a calculation result
// @Description Stores the rating engine output for the quote's current form data.
// @Description With autoProgress the suggested workflow action is applied too.
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Param   calculation body dto.RecordCalculationRequest true "Calculation"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} ErrorResponse "Malformed calculation"
// @Failure 409 {object} ErrorResponse "Calculation is for stale form data"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/calculations [post]
func (h *quoteHandler) recordCalculation(c *gin.Context) {
	var req dto.RecordCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	view, err := h.quoteService.RecordCalculation(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID, req)
	if err != nil {
		respondWithError(c, err, "Failed to record calculation")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(view.Aggregate, view.Quote, view.Workflow))
}

// performAction godoc
// @Summary Perform a workflow action
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Param   action body dto.WorkflowActionRequest true "Action"
// @Success 200 {object} dto.WorkflowActionResponse
// @Failure 400 {object} ErrorResponse "Action not defined for the product"
// @Failure 403 {object} ErrorResponse "Role does not permit the action"
// @Failure 409 {object} ErrorResponse "Action not permitted in the current state"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/actions [post]
func (h *quoteHandler) performAction(c *gin.Context) {
	var req dto.WorkflowActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	view, err := h.quoteService.PerformWorkflowAction(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID, req.Action)
	if err != nil {
		respondWithError(c, err, "Failed to perform workflow action")
		return
	}
	c.JSON(http.StatusOK, dto.WorkflowActionResponse{
		QuoteID:       view.Quote.QuoteID,
		Action:        req.Action,
		WorkflowState: view.Quote.WorkflowState,
	})
}

// createVersion godoc
// @Summary Snapshot the quote as a new version
// @Tags quotes
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   quote_id path string true "Quote ID"
// @Success 201 {object} dto.QuoteVersionResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/quotes/{quote_id}/versions [post]
func (h *quoteHandler) createVersion(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	version, err := h.quoteService.CreateQuoteVersion(c.Request.Context(), c.Param("tenant_id"), c.Param("quote_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to create quote version")
		return
	}
	c.JSON(http.StatusCreated, dto.ToQuoteVersionResponse(version))
}
