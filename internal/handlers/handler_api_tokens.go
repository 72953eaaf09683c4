package handlers

import (
	"net/http"

	"github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/handlers/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APITokenHandler handles HTTP requests for API token operations
type APITokenHandler struct {
	tokenSvc services.APITokenSvc
}

// NewAPITokenHandler creates a new APITokenHandler
func NewAPITokenHandler(tokenSvc services.APITokenSvc) *APITokenHandler {
	return &APITokenHandler{tokenSvc: tokenSvc}
}

// RegisterAPITokenRoutes registers the API token routes
func RegisterAPITokenRoutes(router *gin.RouterGroup, tokenSvc services.APITokenSvc) {
	handler := NewAPITokenHandler(tokenSvc)

	tokensGroup := router.Group("/tokens")
	{
		tokensGroup.POST("", handler.CreateToken)
		tokensGroup.GET("", handler.ListTokens)
		tokensGroup.DELETE("/:id", handler.RevokeToken)
	}
}

// CreateToken handles the creation of a new API token
// @Summary Create a new API token
// @Description Creates an integration key for the authenticated user. The key is shown only once.
// @Description Send it in the X-API-Key header. A key bound to a tenant is rejected on every other tenant.
// @Tags tokens
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAPITokenRequest true "Token creation details"
// @Success 201 {object} dto.CreateAPITokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not an agent of the tenant"
// @Failure 500 {object} ErrorResponse
// @Router /tokens [post]
func (h *APITokenHandler) CreateToken(c *gin.Context) {
	creatorUserID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAPITokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokenStr, token, err := h.tokenSvc.CreateToken(c.Request.Context(), creatorUserID, req.Name, req.TenantID, req.ExpiresIn())
	if err != nil {
		respondWithError(c, err, "Failed to create token")
		return
	}

	c.JSON(http.StatusCreated, dto.ToCreateAPITokenResponse(tokenStr, *token))
}

// ListTokens handles listing all API tokens for the authenticated user
// @Summary List all API tokens
// @Description Lists the caller's API tokens. Only metadata is returned, never the key itself.
// @Tags tokens
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ListAPITokensResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tokens [get]
func (h *APITokenHandler) ListTokens(c *gin.Context) {
	creatorUserID, ok := requireUserID(c)
	if !ok {
		return
	}

	tokens, err := h.tokenSvc.ListTokens(c.Request.Context(), creatorUserID)
	if err != nil {
		respondWithError(c, err, "Failed to list tokens")
		return
	}

	c.JSON(http.StatusOK, dto.ToAPITokenResponseList(tokens))
}

// RevokeToken handles revoking a specific API token
// @Summary Revoke an API token
// @Description Revokes one of the caller's API tokens. The key stops working immediately.
// @Tags tokens
// @Produce json
// @Security BearerAuth
// @Param id path string true "Token ID (UUID format)" format(uuid)
// @Success 204 "Token revoked successfully"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /tokens/{id} [delete]
func (h *APITokenHandler) RevokeToken(c *gin.Context) {
	creatorUserID, ok := requireUserID(c)
	if !ok {
		return
	}

	tokenID := c.Param("id")
	if _, err := uuid.Parse(tokenID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid token ID"})
		return
	}

	if err := h.tokenSvc.RevokeToken(c.Request.Context(), creatorUserID, tokenID); err != nil {
		respondWithError(c, err, "Failed to revoke token")
		return
	}

	c.Status(http.StatusNoContent)
}
