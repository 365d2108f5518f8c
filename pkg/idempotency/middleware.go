package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// HeaderIdempotencyKey is the HTTP header for idempotency key
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderReplayed marks a response served from the store.
	HeaderReplayed       = "Idempotent-Replayed"

	MaxKeyLength = 255
	MaxBodySize  = 1 << 20

	DefaultTTL  = 24 * time.Hour
	// InFlightTTL bounds how long a crashed request can block its key.
	InFlightTTL = 2 * time.Minute
)

// responseWriter wraps gin.ResponseWriter to capture response
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ValidateKey rejects empty, oversized or non-printable keys.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New("idempotency key is empty")
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("idempotency key longer than %d bytes", MaxKeyLength)
	}
	for _, r := range key {
		if r < 0x21 || r > 0x7e {
			return errors.New("idempotency key must be printable ASCII")
		}
	}
	return nil
}

// HashRequest binds a key to the method, path and body it was first used with.
func HashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// storable reports whether a response should be replayed on retry. Server
// errors are released so the client can retry, except 502 which on this API
// means a failed transfer was already recorded.
func storable(status int) bool {
	return status < http.StatusInternalServerError || status == http.StatusBadGateway
}

// Middleware replays the stored response of a POST carrying an
// Idempotency-Key that was already processed. Requests without the header
// pass through. Store failures fail open.
func Middleware(store Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if err := ValidateKey(key); err != nil {
			abort(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", err.Error())
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodySize+1))
		if err != nil || len(body) > MaxBodySize {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := HashRequest(c.Request.Method, c.Request.URL.Path, body)

		ctx := c.Request.Context()
		existing, err := store.Reserve(ctx, key, hash, InFlightTTL)
		if err != nil {
			logger.Error("Failed to reserve idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(err))
			c.Next()
			return
		}

		if existing != nil {
			switch {
			case existing.RequestHash != hash:
				logger.Warn("Idempotency key reused with a different request",
					zap.String("idempotency_key", key))
				abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_MISMATCH",
					"Idempotency key was used with a different request")
			case !existing.Completed:
				abort(c, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS",
					"A request with this idempotency key is still in progress")
			default:
				logger.Info("Returning cached response",
					zap.String("idempotency_key", key),
					zap.Int("status", existing.Status))
				c.Header(HeaderReplayed, "true")
				c.Data(existing.Status, "application/json; charset=utf-8", existing.Body)
				c.Abort()
			}
			return
		}

		writer := &responseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil)}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if !storable(status) {
			if err := store.Release(ctx, key); err != nil {
				logger.Warn("Failed to release idempotency key",
					zap.String("idempotency_key", key),
					zap.Error(err))
			}
			return
		}
		rec := Record{RequestHash: hash, Status: status, Body: writer.body.Bytes(), Completed: true}
		if err := store.Complete(ctx, key, rec, DefaultTTL); err != nil {
			logger.Error("Failed to store idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(err))
		}
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
		"details": gin.H{"request_id": c.GetString("request_id")},
	})
}
