package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// GoogleOAuthHandler signs users in with a Google account and issues platform tokens.
type GoogleOAuthHandler struct {
	googleOAuthService portssvc.GoogleOAuthHandlerSvcFacade
	userService        portssvc.UserSvcFacade
	auth               *AuthHandler
}

// NewGoogleOAuthHandler creates a new instance of GoogleOAuthHandler.
func NewGoogleOAuthHandler(googleOAuthService portssvc.GoogleOAuthHandlerSvcFacade, userService portssvc.UserSvcFacade, auth *AuthHandler) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		googleOAuthService: googleOAuthService,
		userService:        userService,
		auth:               auth,
	}
}

// ExchangeCodeRequest defines the expected JSON body for the /google/exchange-code endpoint.
type ExchangeCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// LoginURLResponse carries the Google consent URL and the state it was generated with.
type LoginURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// registerGoogleOAuthRoutes registers the Google OAuth routes.
func registerGoogleOAuthRoutes(rg *gin.RouterGroup, auth *AuthHandler, services *portssvc.ServiceContainer) {
	if services.GoogleOAuth == nil {
		return
	}
	h := NewGoogleOAuthHandler(services.GoogleOAuth, services.User, auth)
	googleRoutes := rg.Group("/google")
	{
		googleRoutes.GET("/login-url", h.LoginURL)
		googleRoutes.POST("/exchange-code", h.ExchangeCodeGoogle)
		googleRoutes.POST("/id-token", h.SignInWithIDToken)
	}
}

// LoginURL godoc
// @Summary Google consent URL
// @Description Returns the Google consent URL with a fresh state value.
// @Tags oauth
// @Produce json
// @Success 200 {object} LoginURLResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/google/login-url [get]
func (h *GoogleOAuthHandler) LoginURL(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := h.googleOAuthService.GenerateStateString(ctx)
	if err != nil {
		respondWithError(c, err, "Failed to generate OAuth state")
		return
	}
	c.JSON(http.StatusOK, LoginURLResponse{URL: h.googleOAuthService.GetGoogleLoginURL(ctx, state), State: state})
}

// ExchangeCodeGoogle exchanges the authorization code the frontend received from Google
// for Google tokens, validates the ID token and signs the user in.
// @Summary Exchange authorization code for access token
// @Description Exchange authorization code for access token
// @Tags oauth
// @Accept  json
// @Produce  json
// @Param   code body ExchangeCodeRequest true "Authorization code"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} ErrorResponse "Invalid authorization code"
// @Failure 401 {object} ErrorResponse "Invalid Google ID token"
// @Failure 504 {object} ErrorResponse "Google unreachable"
// @Router /auth/google/exchange-code [post]
func (h *GoogleOAuthHandler) ExchangeCodeGoogle(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	var req ExchangeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.NewBadRequestError("Invalid request payload: "+err.Error()), "Invalid request payload")
		return
	}

	oauth2Token, err := h.googleOAuthService.ExchangeCodeForToken(ctx, req.Code)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to exchange authorization code with Google", slog.String("error", err.Error()))
		appErr := apperrors.NewGatewayTimeoutError("Failed to communicate with Google OAuth service.")
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "invalid_grant") || strings.Contains(lower, "bad request") {
			appErr = apperrors.NewBadRequestError("Invalid or expired authorization code provided by Google.")
		}
		respondWithError(c, appErr, "Google code exchange failed")
		return
	}

	idTokenString, ok := oauth2Token.Extra("id_token").(string)
	if !ok || idTokenString == "" {
		respondWithError(c, apperrors.NewInternalServerError("Failed to retrieve ID token from Google."), "ID token missing from Google response")
		return
	}
	h.signIn(c, idTokenString, oauth2Token)
}

// SignInWithIDToken godoc
// @Summary Sign in with a Google ID token
// @Description Validates a Google ID token obtained client side and signs the user in.
// @Tags oauth
// @Accept json
// @Produce json
// @Param token body dto.GoogleTokenRequest true "Google ID token"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/google/id-token [post]
func (h *GoogleOAuthHandler) SignInWithIDToken(c *gin.Context) {
	var req dto.GoogleTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.signIn(c, req.IDToken, nil)
}

// signIn validates the ID token and issues tokens for the matching user. When the sign in came
// through a code exchange, the userinfo endpoint fills in a display name missing from the ID token.
func (h *GoogleOAuthHandler) signIn(c *gin.Context, idTokenString string, oauthToken *oauth2.Token) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	payload, err := h.googleOAuthService.ValidateGoogleIDToken(ctx, idTokenString)
	if err != nil {
		respondWithError(c, apperrors.NewUnauthorizedError("Invalid Google ID token"), "Google ID token validation failed")
		return
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		respondWithError(c, apperrors.NewUnauthorizedError("Google account email is not verified"), "Unverified Google email")
		return
	}
	if name == "" && oauthToken != nil {
		if info, err := h.googleOAuthService.GetUserInfo(ctx, oauthToken); err != nil {
			logger.WarnContext(ctx, "Failed to fetch Google profile", slog.String("error", err.Error()))
		} else {
			name = info.Name
		}
	}

	user, err := h.userService.FindOrCreateGoogleUser(ctx, email, name)
	if err != nil {
		respondWithError(c, err, "Failed to process user authentication")
		return
	}
	logger.InfoContext(ctx, "User signed in with Google", slog.String("user_id", user.UserID), slog.String("google_user_id", payload.Subject))
	h.auth.issueTokens(c, user)
}
