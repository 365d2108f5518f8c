// Package errors defines the error taxonomy of the bridge domain.
// Every failure surfaced to callers wraps one of the sentinels below, so callers
// can branch with errors.Is while still reading a stable Code.
package errors

import (
	"errors"
	"fmt"
)

// Generic categories
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Bridge taxonomy
var (
	// Validation, raised synchronously before any record exists.
	ErrUnknownChain       = errors.New("unknown chain")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientAmount = errors.New("amount does not cover fees")
	ErrSameChainTransfer  = errors.New("source and destination chain are the same")

	// Transition guards; the record keeps its previous state.
	ErrNotReady          = errors.New("transfer not ready")
	ErrInvalidTransition = errors.New("invalid transfer state transition")

	// Collaborator failures.
	ErrSubmission             = errors.New("transaction submission failed")
	ErrConfirmationTimeout    = errors.New("confirmation timed out")
	ErrAttestationUnavailable = errors.New("attestation unavailable")

	ErrTransferNotFound = fmt.Errorf("transfer %w", ErrNotFound)
)

// Collaborator signals that are not failures.
var (
	// ErrAttestationPending is returned by attestation services while the
	// attestation is not yet available.
	ErrAttestationPending = errors.New("attestation not yet available")
	// ErrSignerUnavailable is returned by signers that cannot provide an address.
	ErrSignerUnavailable = errors.New("signer unavailable")
)

// Error codes
const (
	CodeUnknownChain           = "UNKNOWN_CHAIN"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInsufficientAmount     = "INSUFFICIENT_AMOUNT"
	CodeSameChainTransfer      = "SAME_CHAIN_TRANSFER"
	CodeNotReady               = "NOT_READY"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeSubmissionError        = "SUBMISSION_ERROR"
	CodeConfirmationTimeout    = "CONFIRMATION_TIMEOUT"
	CodeAttestationUnavailable = "ATTESTATION_UNAVAILABLE"
	CodeTransferNotFound       = "TRANSFER_NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Code
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes both the category sentinel and the underlying cause.
func (e *DomainError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// WithCause attaches the underlying error reported by a collaborator.
func (e *DomainError) WithCause(err error) *DomainError {
	e.cause = err
	return e
}

// IsRetryable returns true if the error is retryable
func (e *DomainError) IsRetryable() bool {
	return e.Retryable
}

// UnknownChain reports a chain id that is not in the registry.
func UnknownChain(chainID string) *DomainError {
	return &DomainError{
		Err:     ErrUnknownChain,
		Code:    CodeUnknownChain,
		Message: fmt.Sprintf("unknown chain %q", chainID),
		Details: map[string]interface{}{"chain_id": chainID},
	}
}

// InvalidAmount reports an amount that is not a non-negative decimal USDC value.
func InvalidAmount(amount string, cause error) *DomainError {
	de := &DomainError{
		Err:     ErrInvalidAmount,
		Code:    CodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %q", amount),
		Details: map[string]interface{}{"amount": amount},
	}
	return de.WithCause(cause)
}

// InsufficientAmount reports fees that exceed the transferred amount.
func InsufficientAmount(amount, totalFee string) *DomainError {
	return &DomainError{
		Err:     ErrInsufficientAmount,
		Code:    CodeInsufficientAmount,
		Message: fmt.Sprintf("amount %s does not cover fees of %s", amount, totalFee),
		Details: map[string]interface{}{"amount": amount, "total_fee": totalFee},
	}
}

// SameChainTransfer reports a transfer whose source and destination are equal.
func SameChainTransfer(chainID string) *DomainError {
	return &DomainError{
		Err:     ErrSameChainTransfer,
		Code:    CodeSameChainTransfer,
		Message: fmt.Sprintf("source and destination are both %q", chainID),
		Details: map[string]interface{}{"chain_id": chainID},
	}
}

// NotReady reports an operation attempted before its guard is satisfied.
func NotReady(reason string) *DomainError {
	return &DomainError{
		Err:     ErrNotReady,
		Code:    CodeNotReady,
		Message: "transfer not ready: " + reason,
	}
}

// InvalidTransition reports an event that is not allowed from the current status.
func InvalidTransition(from, event string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidTransition,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("event %s not allowed in status %s", event, from),
		Details: map[string]interface{}{"status": from, "event": event},
	}
}

// SubmissionError wraps a signer or chain rejection of a transaction.
func SubmissionError(stage string, cause error) *DomainError {
	de := &DomainError{
		Err:       ErrSubmission,
		Code:      CodeSubmissionError,
		Message:   fmt.Sprintf("%s submission failed", stage),
		Details:   map[string]interface{}{"stage": stage},
		Retryable: true,
	}
	return de.WithCause(cause)
}

// ConfirmationTimeout reports that a chain confirmation could not be observed in time.
func ConfirmationTimeout(chainID, txHash string, cause error) *DomainError {
	de := &DomainError{
		Err:       ErrConfirmationTimeout,
		Code:      CodeConfirmationTimeout,
		Message:   fmt.Sprintf("confirmation of %s on %s not observed", txHash, chainID),
		Details:   map[string]interface{}{"chain_id": chainID, "tx_hash": txHash},
		Retryable: true,
	}
	return de.WithCause(cause)
}

// AttestationUnavailable reports a failure of the attestation service itself.
func AttestationUnavailable(txHash string, cause error) *DomainError {
	de := &DomainError{
		Err:       ErrAttestationUnavailable,
		Code:      CodeAttestationUnavailable,
		Message:   fmt.Sprintf("attestation for %s unavailable", txHash),
		Details:   map[string]interface{}{"tx_hash": txHash},
		Retryable: true,
	}
	return de.WithCause(cause)
}

// TransferNotFound reports an unknown transfer id.
func TransferNotFound(id string) *DomainError {
	return &DomainError{
		Err:     ErrTransferNotFound,
		Code:    CodeTransferNotFound,
		Message: fmt.Sprintf("transfer %s not found", id),
	}
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    CodeValidation,
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// ServiceUnavailableError creates a service unavailable error
func ServiceUnavailableError(service string, err error) *DomainError {
	de := &DomainError{
		Err:       ErrServiceUnavailable,
		Code:      "SERVICE_UNAVAILABLE",
		Message:   fmt.Sprintf("%s service is temporarily unavailable", service),
		Retryable: true,
	}
	return de.WithCause(err)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is one of the synchronous validation failures.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownChain) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientAmount) ||
		errors.Is(err, ErrSameChainTransfer) ||
		errors.Is(err, ErrInvalidInput)
}

// IsGuard reports whether err is a state-machine guard violation.
func IsGuard(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrInvalidTransition)
}

// IsCollaborator reports whether err came from an external collaborator.
func IsCollaborator(err error) bool {
	return errors.Is(err, ErrSubmission) ||
		errors.Is(err, ErrConfirmationTimeout) ||
		errors.Is(err, ErrAttestationUnavailable) ||
		errors.Is(err, ErrServiceUnavailable)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// GetErrorDetails extracts details from a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}
