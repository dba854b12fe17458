package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/dto"
	"github.com/prperemyshlev/user-service/internal/service"
)

// PasswordHandler handles the password reset flow
type PasswordHandler struct {
	resetService service.PasswordResetService
	logger       *zap.Logger
}

// NewPasswordHandler creates a new password handler
func NewPasswordHandler(resetService service.PasswordResetService, logger *zap.Logger) *PasswordHandler {
	return &PasswordHandler{
		resetService: resetService,
		logger:       logger.Named("password_handler"),
	}
}

// RequestReset starts a password reset. The response is the same whether or not the email is known.
// @Summary Request password reset
// @Tags password
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetRequest true "Account email"
// @Success 202 {object} dto.SuccessResponse
// @Router /auth/password/reset-request [post]
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	if err := h.resetService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{
		Message: "If the account exists, a reset link has been sent",
	})
}

// ChangePassword completes a password reset
// @Summary Change password with a reset token
// @Tags password
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/password/change [post]
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, err)
		return
	}

	if err := h.resetService.ChangePassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Password changed successfully",
	})
}

// ValidateToken reports whether a reset token can still be used
// @Summary Check a reset token
// @Tags password
// @Produce json
// @Param token query string true "Reset token"
// @Success 200 {object} dto.TokenValidityResponse
// @Router /auth/password/validate-token [get]
func (h *PasswordHandler) ValidateToken(c *gin.Context) {
	token := c.Query("token")
	c.JSON(http.StatusOK, dto.TokenValidityResponse{
		Valid: token != "" && h.resetService.IsResetTokenValid(c.Request.Context(), token),
	})
}
