package cctp

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse represents an Iris API error response
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("iris API error [%d]: %s", e.StatusCode, e.Message)
}

func (e *ErrorResponse) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *ErrorResponse) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

var (
	// ErrNoMessages indicates Iris has not indexed the burn yet
	ErrNoMessages = errors.New("no messages found for transaction")
	// ErrNoDomain indicates a chain without a CCTP domain
	ErrNoDomain = errors.New("chain has no CCTP domain")
	// ErrNoFeeTier indicates the fee endpoint returned no usable tier
	ErrNoFeeTier = errors.New("no fee tier for finality threshold")
)

func isNotFound(err error) bool {
	var apiErr *ErrorResponse
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
