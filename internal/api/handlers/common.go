package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rail-service/usdc-bridge/pkg/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// bindJSON decodes the body into req and runs its validate tags. It writes the
// error response itself and reports whether the handler may continue.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, MsgInvalidRequest, map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
			SendValidationError(c, "Request validation failed", fields)
			return false
		}
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error(), nil)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidID, "Invalid transfer id", map[string]interface{}{
			"id": c.Param("id"),
		})
		return uuid.Nil, false
	}
	return id, true
}

func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// requestLogger returns the logger stored by the logging middleware.
func requestLogger(c *gin.Context) *logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.NewNop()
}
