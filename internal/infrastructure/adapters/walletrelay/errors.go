package walletrelay

import (
	"fmt"
	"net/http"
)

// ErrorResponse represents a wallet relay error response
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("wallet relay error [%d]: %s (code: %s)", e.StatusCode, e.Message, e.Code)
}

func (e *ErrorResponse) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *ErrorResponse) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRejected reports whether the wallet refused to sign.
func (e *ErrorResponse) IsRejected() bool {
	return e.Code == "USER_REJECTED" || e.Code == "INSUFFICIENT_FUNDS"
}

// IsRetryable is consulted by pkg/retry.
func (e *ErrorResponse) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
