package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/insurance_platform/cmd/docs"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/SscSPs/insurance_platform/internal/platform/config"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// apiRate is the per client request budget on the authenticated API.
const apiRate = "600-M"

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
) error {
	if err := RegisterValidators(); err != nil {
		return err
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	registerAuthRoutes(r, cfg, services)

	if err := setupAPIV1Routes(r, cfg, services, posthogClient); err != nil {
		return err
	}

	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the authenticated /api/v1 group and the tenant scoped routes under it.
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	posthogClient *utils.PosthogClientWrapper,
) error {
	apiLimiter, err := middleware.NewMemoryLimiter(apiRate)
	if err != nil {
		return err
	}

	v1 := r.Group("/api/v1",
		middleware.RateLimit(apiLimiter),
		middleware.APITokenAuth(services.APIToken),
		middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer),
		middleware.PosthogMiddleware(posthogClient),
	)

	registerUserRoutes(v1, services.User)
	RegisterAPITokenRoutes(v1, services.APIToken)

	tenantScoped := v1.Group("/tenants/:tenant_id", middleware.RequireTenantScope())
	registerTenantRoutes(v1, tenantScoped, services.Tenant)
	RegisterQuoteRoutes(tenantScoped, services.Quote)
	RegisterPolicyRoutes(tenantScoped, services.Policy, posthogClient)
	RegisterPatchRoutes(tenantScoped, services.Patch)
	RegisterPaymentRoutes(tenantScoped, services.Payment)
	return nil
}

// RegisterValidators adds the domain enum validators to gin's binding engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	validators := map[string]validator.Func{
		"quoteaction": func(fl validator.FieldLevel) bool {
			a := domain.QuoteAction(fl.Field().String())
			return a.IsKnown() && !a.IsDataOperation()
		},
		"quotestate": func(fl validator.FieldLevel) bool {
			return domain.QuoteState(fl.Field().String()).IsKnown()
		},
		"quotetype": func(fl validator.FieldLevel) bool {
			return domain.QuoteType(fl.Field().String()).IsValid()
		},
		"patchscope": func(fl validator.FieldLevel) bool {
			return domain.PatchScopeType(fl.Field().String()).IsValid()
		},
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			slog.Error("Failed to register validator", slog.String("tag", tag), slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
