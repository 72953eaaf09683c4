package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Error string         `json:"error"`
	Code  string         `json:"code,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// respondWithError maps err to its HTTP status. Server side failures are logged
// and their detail is replaced by fallback.
func respondWithError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := apperrors.StatusCode(err)
	resp := ErrorResponse{Error: err.Error()}

	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Error = domainErr.Message
		resp.Code = domainErr.Code
		resp.Data = domainErr.Data
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		if status == http.StatusInternalServerError {
			resp = ErrorResponse{Error: fallback}
		}
	} else {
		logger.Warn(fallback, slog.String("error", err.Error()), slog.Int("status", status))
	}
	c.JSON(status, resp)
}

// badRequest reports a binding failure.
func badRequest(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Invalid request", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
}

// requireUserID returns the authenticated user id, writing a 401 when there is none.
func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}
	return userID, ok
}
