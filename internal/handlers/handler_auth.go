package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/insurance_platform/internal/apperrors"
	"github.com/SscSPs/insurance_platform/internal/core/domain"
	portssvc "github.com/SscSPs/insurance_platform/internal/core/ports/services"
	"github.com/SscSPs/insurance_platform/internal/dto"
	"github.com/SscSPs/insurance_platform/internal/middleware"
	"github.com/SscSPs/insurance_platform/internal/platform/config"
	"github.com/SscSPs/insurance_platform/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limitergin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// refreshCookieSeparator joins the user id and the raw refresh token in the cookie value.
const refreshCookieSeparator = ":"

// AuthHandler handles authentication related requests.
type AuthHandler struct {
	userService  portssvc.UserSvcFacade
	tokenService portssvc.TokenSvcFacade
	cfg          *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us portssvc.UserSvcFacade, ts portssvc.TokenSvcFacade, cfg *config.Config) *AuthHandler {
	return &AuthHandler{userService: us, tokenService: ts, cfg: cfg}
}

// registerAuthRoutes sets up the public authentication routes.
func registerAuthRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	h := NewAuthHandler(services.User, services.Token, cfg)

	// 5 login attempts per minute per client IP
	rate, _ := limiter.NewRateFromFormatted("5-M")
	limitMiddleware := limitergin.NewMiddleware(limiter.New(memory.NewStore(), rate))

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", limitMiddleware, h.Login)
		auth.POST("/register", h.Register)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
	}
	registerGoogleOAuthRoutes(auth, h, services)
}

// Login godoc
// @Summary User login
// @Description Authenticates a user, returns an access token and sets the refresh token cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Login Credentials"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	user, err := h.userService.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid username or password"})
			return
		}
		respondWithError(c, err, "Failed to authenticate user")
		return
	}
	h.issueTokens(c, user)
}

// Register godoc
// @Summary Register new user
// @Description Creates a new user account.
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.CreateUserRequest true "User Registration Info"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Username already exists"
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}
	newUser, err := h.userService.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, err, "Failed to register user")
		return
	}
	c.JSON(http.StatusCreated, dto.ToUserResponse(newUser))
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchanges the refresh token cookie for a new access token and rotates the cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.TokenResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	cookie, err := c.Cookie(h.cfg.RefreshTokenCookieName)
	if err != nil || cookie == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Refresh token missing"})
		return
	}
	userID, raw, found := strings.Cut(cookie, refreshCookieSeparator)
	if !found || userID == "" || raw == "" {
		h.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Refresh token malformed"})
		return
	}

	user, err := h.tokenService.ValidateAndParseRefreshToken(c.Request.Context(), userID, raw)
	if err != nil {
		logger.Warn("Refresh token rejected", slog.String("user_id", userID), slog.String("error", err.Error()))
		h.clearRefreshCookie(c)
		if errors.Is(err, apperrors.ErrRefreshTokenExpired) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Refresh token expired"})
			return
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid refresh token"})
		return
	}
	h.issueTokens(c, user)
}

// Logout godoc
// @Summary Logout
// @Description Revokes the stored refresh token and clears the cookie.
// @Tags auth
// @Success 204 "No Content"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(h.cfg.RefreshTokenCookieName); err == nil {
		if userID, raw, found := strings.Cut(cookie, refreshCookieSeparator); found {
			// only the holder of a valid refresh token may revoke it
			if _, err := h.tokenService.ValidateAndParseRefreshToken(c.Request.Context(), userID, raw); err == nil {
				if err := h.userService.ClearRefreshToken(c.Request.Context(), userID); err != nil {
					respondWithError(c, err, "Failed to revoke refresh token")
					return
				}
			}
		}
	}
	h.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

// issueTokens generates a fresh access and refresh token pair for user, replacing any stored refresh token.
func (h *AuthHandler) issueTokens(c *gin.Context, user *domain.User) {
	ctx := c.Request.Context()
	accessToken, accessExpiresAt, err := h.tokenService.GenerateAccessToken(ctx, user)
	if err != nil {
		respondWithError(c, err, "Failed to generate token")
		return
	}
	refreshToken, expiresAt, err := h.tokenService.GenerateRefreshToken(ctx, user)
	if err != nil {
		respondWithError(c, err, "Failed to generate refresh token")
		return
	}
	if err := h.userService.UpdateRefreshToken(ctx, user.UserID, utils.HashToken(refreshToken), expiresAt); err != nil {
		respondWithError(c, err, "Failed to store refresh token")
		return
	}
	h.setRefreshCookie(c, user.UserID+refreshCookieSeparator+refreshToken, expiresAt)
	c.JSON(http.StatusOK, dto.TokenResponse{
		Token:     accessToken,
		TokenType: "Bearer",
		ExpiresAt: accessExpiresAt,
		UserID:    user.UserID,
	})
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, expiresAt time.Time) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.RefreshTokenCookieName, value, int(time.Until(expiresAt).Seconds()),
		h.cfg.RefreshTokenCookiePath, "", h.cfg.IsProduction, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cfg.RefreshTokenCookieName, "", -1, h.cfg.RefreshTokenCookiePath, "", h.cfg.IsProduction, true)
}
