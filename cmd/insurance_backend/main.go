package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/insurance_platform/internal/adapters/payments"
	"github.com/SscSPs/insurance_platform/internal/core/services"
	"github.com/SscSPs/insurance_platform/internal/handlers"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/SscSPs/insurance_platform/internal/platform/config"
	"github.com/SscSPs/insurance_platform/internal/platform/lock"
	"github.com/SscSPs/insurance_platform/internal/repositories/database/pgsql"
	"github.com/SscSPs/insurance_platform/internal/repositories/dynamodb"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/SscSPs/insurance_platform/internal/utils/numbering"
	"github.com/SscSPs/insurance_platform/pkg/database"
	"github.com/gin-gonic/gin"
)

// apiTokenPurgeInterval is how often expired integration keys are deleted.
const apiTokenPurgeInterval = time.Hour

// @title Insurance Platform API
// @version 1.0
// @description Multi-tenant quote and policy administration.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	logger.Info("Running database migrations...")
	if _, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		return err
	}

	infra, cleanup, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	container := services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(dbPool), infra)

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}
	if err := handlers.RegisterRoutes(r, cfg, container, posthogClient); err != nil {
		return err
	}

	go purgeExpiredTokens(ctx, container.APIToken.PurgeExpiredTokens, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildInfrastructure wires the adapters behind the quote services. The returned
// cleanup closes whatever was opened.
func buildInfrastructure(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.Infrastructure, func(), error) {
	var infra services.Infrastructure
	cleanup := func() {}

	numbers, err := numbering.NewSnowflakeNumbers(cfg.SnowflakeNodeID)
	if err != nil {
		return infra, cleanup, err
	}
	infra.Numbers = numbers

	gateway, err := payments.NewGateway(cfg.PaymentGatewayMock, cfg.MercadoPagoAccessToken)
	if err != nil {
		return infra, cleanup, err
	}
	infra.Gateway = gateway
	if cfg.PaymentGatewayMock {
		logger.Warn("Using mock payment gateway")
	}

	if cfg.RedisURL != "" {
		redisClient, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return infra, cleanup, err
		}
		cleanup = func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Error closing redis client", slog.String("error", err.Error()))
			}
		}
		infra.Locker = lock.NewRedisLocker(redisClient, cfg.LockTTL, cfg.LockWaitTimeout)
		logger.Info("Aggregate locking through redis enabled.")
	} else {
		logger.Warn("REDIS_URL not set. Concurrent writers are only caught by the event sequence check.")
	}

	if cfg.DynamoDBReadModelTable != "" {
		ddb, err := dynamodb.NewClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			cleanup()
			return infra, func() {}, err
		}
		infra.Mirror = dynamodb.NewReadModelMirror(ddb, cfg.DynamoDBReadModelTable)
		logger.Info("Quote read models mirrored to DynamoDB.", slog.String("table", cfg.DynamoDBReadModelTable))
	}

	return infra, cleanup, nil
}

func purgeExpiredTokens(ctx context.Context, purge func(context.Context) (int64, error), logger *slog.Logger) {
	ticker := time.NewTicker(apiTokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				logger.Error("Failed to purge expired API tokens", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				logger.Info("Purged expired API tokens", slog.Int64("count", n))
			}
		}
	}
}
