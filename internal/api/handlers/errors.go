package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
)

// Error codes used by handlers in addition to the domain codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationError    = domainerrors.CodeValidation
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            = "TIMEOUT"
)

const (
	MsgInvalidRequest = "Invalid request payload"
	MsgInternalError  = "Internal server error"
)

// statusFor maps the bridge error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domainerrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domainerrors.ErrInsufficientAmount):
		return http.StatusUnprocessableEntity
	case domainerrors.IsValidation(err):
		return http.StatusBadRequest
	case domainerrors.IsGuard(err):
		return http.StatusConflict
	case errors.Is(err, domainerrors.ErrSubmission):
		return http.StatusBadGateway
	case errors.Is(err, domainerrors.ErrConfirmationTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domainerrors.ErrAttestationUnavailable), errors.Is(err, domainerrors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err as an ErrorResponse. Internal errors are logged
// and their message is not exposed.
func respondDomainError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		requestLogger(c).Error("Request failed", "error", err)
		respondError(c, status, ErrCodeInternalError, MsgInternalError, map[string]interface{}{
			"request_id": getRequestID(c),
		})
		return
	}

	code := domainerrors.GetErrorCode(err)
	switch {
	case code != "UNKNOWN_ERROR":
	case status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	default:
		code = ErrCodeServiceUnavailable
	}
	if status >= http.StatusBadGateway {
		requestLogger(c).Warn("Collaborator failure", "error", err, "code", code)
	}
	respondError(c, status, code, err.Error(), domainerrors.GetErrorDetails(err))
}

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// SendValidationError sends a validation error with field details
func SendValidationError(c *gin.Context, message string, fieldErrors map[string]string) {
	respondError(c, http.StatusBadRequest, ErrCodeValidationError, message, map[string]interface{}{
		"validation_errors": fieldErrors,
	})
}
