package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	TenantAuthorizer portssvc.TenantAuthorizerSvc
	// Now is the service clock; nil means time.Now.
	Now func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// CurrentTime returns the service clock in UTC.
func (s *BaseService) CurrentTime() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// AuthorizeUser checks if a user has the required role within a tenant
func (s *BaseService) AuthorizeUser(ctx context.Context, userID, tenantID string, requiredRole domain.TenantRole) error {
	if s.TenantAuthorizer != nil {
		return s.TenantAuthorizer.AuthorizeUserAction(ctx, userID, tenantID, requiredRole)
	}
	s.LogDebug(ctx, "No tenant authorizer provided, access granted by default",
		slog.String("user_id", userID),
		slog.String("tenant_id", tenantID),
		slog.String("required_role", string(requiredRole)))
	return nil
}
