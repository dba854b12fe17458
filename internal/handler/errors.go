package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
	"github.com/prperemyshlev/user-service/internal/dto"
)

// statusFor maps the domain error taxonomy onto HTTP statuses
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUnsupportedAuthMethod):
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusBadRequest, "Invalid token"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrTokenSignatureInvalid),
		errors.Is(err, domain.ErrIdentityVerificationFailed):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrAccountDisabled),
		errors.Is(err, domain.ErrAccountLocked):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, "Not implemented"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, title := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		message = "An unexpected error occurred"
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   title,
		Message: message,
	})
}

func writeValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Message: err.Error(),
	})
}
