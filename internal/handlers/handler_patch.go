package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/gin-gonic/gin"
)

type patchHandler struct {
	patchService portssvc.PolicyDataPatchSvc
}

// RegisterPatchRoutes registers the policy data patch route on a tenant scoped group.
func RegisterPatchRoutes(tenantScoped *gin.RouterGroup, patchService portssvc.PolicyDataPatchSvc) {
	h := &patchHandler{patchService: patchService}
	tenantScoped.POST("/aggregates/:aggregate_id/patches", h.patchPolicyData)
}

// patchPolicyData godoc
// @Summary Patch stored form data or calculation results
// @Description Writes a value into every form data and calculation document the scope selects,
// @Description including finalized ones. Admin only.
// @Tags patches
// @Accept  json
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   aggregate_id path string true "Aggregate ID"
// @Param   patch body dto.PolicyDataPatchRequest true "Patch command"
// @Success 200 {object} dto.PolicyDataPatchResponse
// @Failure 400 {object} ErrorResponse "Invalid command or source field missing"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "No document matched the scope"
// @Failure 422 {object} ErrorResponse "A patch rule was violated"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/aggregates/{aggregate_id}/patches [post]
func (h *patchHandler) patchPolicyData(c *gin.Context) {
	var req dto.PolicyDataPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	event, err := h.patchService.PatchPolicyData(c.Request.Context(), c.Param("tenant_id"), c.Param("aggregate_id"), userID, req)
	if err != nil {
		respondWithError(c, err, "Failed to patch policy data")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Policy data patched",
		slog.String("patch_id", event.PatchID), slog.Int("targets", len(event.Targets)))
	c.JSON(http.StatusOK, dto.ToPolicyDataPatchResponse(event))
}
