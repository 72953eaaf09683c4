package middleware

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	"github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

const (
	// APIKeyHeader carries integration keys.
	APIKeyHeader = "X-API-Key"

	authMethodKey = "authMethod"
	apiTokenKey   = "apiToken"
)

// APITokenAuth authenticates requests that present an integration key. Requests
// without one fall through to the JWT middleware.
func APITokenAuth(tokenSvc services.APITokenSvc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		logger := GetLoggerFromCtx(c.Request.Context())
		user, token, err := tokenSvc.ValidateToken(c.Request.Context(), key)
		if err != nil {
			logger.Warn("API key rejected", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		enriched := logger.With(slog.String("user_id", user.UserID), slog.String("api_token_id", token.ID))
		c.Request = c.Request.WithContext(WithLogger(WithUserID(c.Request.Context(), user.UserID), enriched))
		c.Set(string(userIDKey), user.UserID)
		c.Set(authMethodKey, "api_token")
		c.Set(apiTokenKey, token)
		c.Next()
	}
}

// GetAPITokenFromContext returns the integration key that authenticated the request, if any.
func GetAPITokenFromContext(c *gin.Context) (*domain.APIToken, bool) {
	v, ok := c.Get(apiTokenKey)
	if !ok {
		return nil, false
	}
	token, ok := v.(*domain.APIToken)
	return token, ok && token != nil
}

// RequireTenantScope rejects integration keys bound to a different tenant than the
// one named by the tenant_id route parameter.
func RequireTenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := GetAPITokenFromContext(c)
		if ok && !token.AllowsTenant(c.Param("tenant_id")) {
			GetLoggerFromCtx(c.Request.Context()).Warn("API key used outside its tenant",
				slog.String("api_token_id", token.ID), slog.String("tenant_id", c.Param("tenant_id")))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "API key is not valid for this tenant"})
			return
		}
		c.Next()
	}
}
