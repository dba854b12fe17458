package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/dto"
	"github.com/prperemyshlev/user-service/internal/service"
)

// UserHandler serves profiles and account administration
type UserHandler struct {
	accounts service.AccountService
	logger   *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(accounts service.AccountService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		logger:   logger.Named("user_handler"),
	}
}

// GetProfile returns a user profile. Callers may read their own profile; admins may read any.
// @Summary Get user profile
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.ProfileResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{id}/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.Param("id")
	claims, ok := ClaimsFrom(c)
	if !ok || (claims.UserID != userID && !hasRole(claims, domain.RoleAdmin)) {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{
			Error:   "Forbidden",
			Message: "Not allowed to read this profile",
		})
		return
	}

	profile, err := h.accounts.GetProfile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewProfileResponse(profile))
}

// Activate enables an account
// @Summary Activate account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.SuccessResponse
// @Router /users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	h.transition(c, h.accounts.Activate, "Account activated")
}

// Deactivate disables an account and revokes its access tokens
// @Summary Deactivate account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.SuccessResponse
// @Router /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.accounts.Deactivate, "Account deactivated")
}

// Lock locks an account and revokes its access tokens
// @Summary Lock account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.SuccessResponse
// @Router /users/{id}/lock [post]
func (h *UserHandler) Lock(c *gin.Context) {
	h.transition(c, h.accounts.Lock, "Account locked")
}

// Unlock unlocks an account
// @Summary Unlock account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.SuccessResponse
// @Router /users/{id}/unlock [post]
func (h *UserHandler) Unlock(c *gin.Context) {
	h.transition(c, h.accounts.Unlock, "Account unlocked")
}

func (h *UserHandler) transition(c *gin.Context, apply func(ctx context.Context, userID string) error, message string) {
	userID := c.Param("id")

	if err := apply(c.Request.Context(), userID); err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.logger.Info("account state changed",
		zap.String("user_id", userID),
		zap.String("by", callerID(c)),
		zap.String("result", message),
	)

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: message})
}

func callerID(c *gin.Context) string {
	if claims, ok := ClaimsFrom(c); ok {
		return claims.UserID
	}
	return ""
}
