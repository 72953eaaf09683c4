package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/gin-gonic/gin"
)

// tenantHandler handles HTTP requests related to tenants and their members.
type tenantHandler struct {
	tenantService portssvc.TenantSvcFacade
}

func newTenantHandler(ts portssvc.TenantSvcFacade) *tenantHandler {
	return &tenantHandler{tenantService: ts}
}

// registerTenantRoutes registers the top level tenant routes and the membership
// routes under the tenant scoped group.
func registerTenantRoutes(rg *gin.RouterGroup, tenantScoped *gin.RouterGroup, tenantService portssvc.TenantSvcFacade) {
	h := newTenantHandler(tenantService)

	tenants := rg.Group("/tenants")
	{
		tenants.POST("", h.createTenant)
		tenants.GET("", h.listUserTenants)
	}

	tenantScoped.GET("", h.getTenant)
	tenantScoped.POST("/deactivate", h.deactivateTenant)
	tenantScoped.POST("/activate", h.activateTenant)

	members := tenantScoped.Group("/users")
	{
		members.GET("", h.listTenantUsers)
		members.POST("", h.addUserToTenant)
		members.PUT("/:user_id", h.updateUserRole)
		members.DELETE("/:user_id", h.removeUserFromTenant)
	}
}

// createTenant godoc
// @Summary Create a new tenant
// @Description Creates a tenant and makes the creator its admin.
// @Tags tenants
// @Accept  json
// @Produce  json
// @Param   tenant body dto.CreateTenantRequest true "Tenant details"
// @Success 201 {object} dto.TenantResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "Alias already taken"
// @Failure 500 {object} ErrorResponse "Failed to create tenant"
// @Security BearerAuth
// @Router /tenants [post]
func (h *tenantHandler) createTenant(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	creatorUserID, ok := requireUserID(c)
	if !ok {
		return
	}

	logger = logger.With(slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to create tenant", slog.String("alias", req.Alias))

	tenant, err := h.tenantService.CreateTenant(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondWithError(c, err, "Failed to create tenant")
		return
	}

	logger.Info("Tenant created successfully", slog.String("tenant_id", tenant.TenantID))
	c.JSON(http.StatusCreated, dto.ToTenantResponse(tenant))
}

// listUserTenants godoc
// @Summary List tenants for current user
// @Description Retrieves the tenants the authenticated user belongs to.
// @Tags tenants
// @Produce  json
// @Param   includeInactive query bool false "Include deactivated tenants"
// @Success 200 {object} dto.ListTenantsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list tenants"
// @Security BearerAuth
// @Router /tenants [get]
func (h *tenantHandler) listUserTenants(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))

	tenants, err := h.tenantService.ListUserTenants(c.Request.Context(), userID, includeInactive)
	if err != nil {
		respondWithError(c, err, "Failed to list tenants")
		return
	}
	c.JSON(http.StatusOK, dto.ToListTenantsResponse(tenants))
}

// getTenant godoc
// @Summary Get a tenant
// @Tags tenants
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Success 200 {object} dto.TenantResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id} [get]
func (h *tenantHandler) getTenant(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tenant, err := h.tenantService.FindTenantByID(c.Request.Context(), c.Param("tenant_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to retrieve tenant")
		return
	}
	c.JSON(http.StatusOK, dto.ToTenantResponse(tenant))
}

// deactivateTenant godoc
// @Summary Deactivate a tenant
// @Description Stops all quote and policy activity on the tenant. Admin only.
// @Tags tenants
// @Param   tenant_id path string true "Tenant ID"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/deactivate [post]
func (h *tenantHandler) deactivateTenant(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.tenantService.DeactivateTenant(c.Request.Context(), c.Param("tenant_id"), userID); err != nil {
		respondWithError(c, err, "Failed to deactivate tenant")
		return
	}
	c.Status(http.StatusNoContent)
}

// activateTenant godoc
// @Summary Reactivate a tenant
// @Tags tenants
// @Param   tenant_id path string true "Tenant ID"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/activate [post]
func (h *tenantHandler) activateTenant(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.tenantService.ActivateTenant(c.Request.Context(), c.Param("tenant_id"), userID); err != nil {
		respondWithError(c, err, "Failed to activate tenant")
		return
	}
	c.Status(http.StatusNoContent)
}

// listTenantUsers godoc
// @Summary List tenant members
// @Tags tenants
// @Produce  json
// @Param   tenant_id path string true "Tenant ID"
// @Success 200 {object} dto.ListTenantMembersResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /tenants/{tenant_id}/users [get]
func (h *tenantHandler) listTenantUsers(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	members, err := h.tenantService.ListTenantUsers(c.Request.Context(), c.Param("tenant_id"), userID)
	if err != nil {
		respondWithError(c, err, "Failed to list tenant users")
		return
	}
	c.JSON(http.StatusOK, dto.ToListTenantMembersResponse(members))
}

// addUserToTenant godoc
// @Summary Add a user to a tenant
// @Description Grants a user a role on the tenant. Admin only.
// @Tags tenants
// @Accept  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   member body dto.AddTenantUserRequest true "Member and role"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "User not found"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/users [post]
func (h *tenantHandler) addUserToTenant(c *gin.Context) {
	var req dto.AddTenantUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.tenantService.AddUserToTenant(c.Request.Context(), userID, req.UserID, c.Param("tenant_id"), req.Role); err != nil {
		respondWithError(c, err, "Failed to add user to tenant")
		return
	}
	c.Status(http.StatusNoContent)
}

// updateUserRole godoc
// @Summary Change a member's role
// @Tags tenants
// @Accept  json
// @Param   tenant_id path string true "Tenant ID"
// @Param   user_id path string true "User ID"
// @Param   role body dto.UpdateTenantUserRoleRequest true "New role"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Failure 400 {object} ErrorResponse "Admins cannot remove or demote themselves"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/users/{user_id} [put]
func (h *tenantHandler) updateUserRole(c *gin.Context) {
	var req dto.UpdateTenantUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.tenantService.UpdateUserTenantRole(c.Request.Context(), userID, c.Param("user_id"), c.Param("tenant_id"), req.Role); err != nil {
		respondWithError(c, err, "Failed to update member role")
		return
	}
	c.Status(http.StatusNoContent)
}

// removeUserFromTenant godoc
// @Summary Remove a member from a tenant
// @Tags tenants
// @Param   tenant_id path string true "Tenant ID"
// @Param   user_id path string true "User ID"
// @Success 204 "No Content"
// @Failure 403 {object} ErrorResponse
// @Failure 400 {object} ErrorResponse "Admins cannot remove or demote themselves"
// @Security BearerAuth
// @Router /tenants/{tenant_id}/users/{user_id} [delete]
func (h *tenantHandler) removeUserFromTenant(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.tenantService.RemoveUserFromTenant(c.Request.Context(), userID, c.Param("user_id"), c.Param("tenant_id")); err != nil {
		respondWithError(c, err, "Failed to remove user from tenant")
		return
	}
	c.Status(http.StatusNoContent)
}
