package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/dto"
	"github.com/prperemyshlev/user-service/internal/service"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService        service.AuthService
	refreshTokenMaxAge int
	secureCookies      bool
	logger             *zap.Logger
}

// NewAuthHandler creates a new auth handler. refreshTokenMaxAge is the cookie lifetime in seconds.
func NewAuthHandler(authService service.AuthService, refreshTokenMaxAge int, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		refreshTokenMaxAge: refreshTokenMaxAge,
		secureCookies:      secureCookies,
		logger:             logger.Named("auth_handler"),
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.respondWithTokens(c, http.StatusCreated, result)
}

// Login handles user login
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.respondWithTokens(c, http.StatusOK, result)
}

// LoginWithGoogle handles login with a Google ID token
// @Summary Login with Google
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.GoogleLoginRequest true "Google ID token"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/google [post]
func (h *AuthHandler) LoginWithGoogle(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.authService.LoginWithFederatedProvider(c.Request.Context(), req.IDToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.respondWithTokens(c, http.StatusOK, result)
}

// LoginWithLinkedIn handles login with a LinkedIn authorization code
// @Summary Login with LinkedIn
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LinkedInLoginRequest true "LinkedIn authorization code"
// @Success 200 {object} dto.AuthResponse
// @Failure 501 {object} dto.ErrorResponse
// @Router /auth/linkedin [post]
func (h *AuthHandler) LoginWithLinkedIn(c *gin.Context) {
	var req dto.LinkedInLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	result, err := h.authService.LoginWithLinkedIn(c.Request.Context(), req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.respondWithTokens(c, http.StatusOK, result)
}

// Refresh handles token refresh. The refresh token is read from the cookie or the request body.
// @Summary Refresh tokens
// @Tags auth
// @Produce json
// @Param request body dto.RefreshRequest false "Refresh token"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.refreshTokenFrom(c)
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Refresh token not found in cookie or body",
		})
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		// a vanished or deactivated owner is indistinguishable from a bad token
		if errors.Is(err, domain.ErrUserNotFound) {
			err = domain.ErrInvalidCredentials
		}
		h.clearRefreshCookie(c)
		writeError(c, h.logger, err)
		return
	}

	h.respondWithTokens(c, http.StatusOK, result)
}

// Logout handles user logout
// @Summary Logout user
// @Tags auth
// @Produce json
// @Param request body dto.RefreshRequest false "Refresh token"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.authService.Logout(c.Request.Context(), h.refreshTokenFrom(c))
	h.clearRefreshCookie(c)

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// Strategies lists the enabled authentication strategies
// @Summary List authentication strategies
// @Tags auth
// @Produce json
// @Success 200 {object} dto.StrategiesResponse
// @Router /auth/strategies [get]
func (h *AuthHandler) Strategies(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StrategiesResponse{
		Strategies: h.authService.AvailableStrategies(),
	})
}

// GetMe returns the identity carried by the access token
// @Summary Get current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.MeResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "User claims not found in context",
		})
		return
	}

	c.JSON(http.StatusOK, dto.MeResponse{
		ID:    claims.UserID,
		Email: claims.Email,
		Roles: claims.Roles,
	})
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, result *domain.AuthResult) {
	c.SetCookie(refreshCookieName, result.RefreshToken, h.refreshTokenMaxAge, refreshCookiePath, "", h.secureCookies, true)
	c.JSON(status, dto.NewAuthResponse(result))
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secureCookies, true)
}

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookieName); err == nil && token != "" {
		return token
	}

	var req dto.RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	return req.RefreshToken
}
