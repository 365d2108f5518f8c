package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsSentinelAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := ConfirmationTimeout("ethereum", "0xabc", cause)

	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, err.IsRetryable())
	assert.Equal(t, CodeConfirmationTimeout, GetErrorCode(err))
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestDomainError_WrappedStillClassifies(t *testing.T) {
	err := fmt.Errorf("create transfer: %w", UnknownChain("foochain"))

	assert.True(t, IsValidation(err))
	assert.False(t, IsGuard(err))
	assert.Equal(t, CodeUnknownChain, GetErrorCode(err))
	assert.Equal(t, "foochain", GetErrorDetails(err)["chain_id"])
}

func TestClassification(t *testing.T) {
	assert.True(t, IsGuard(NotReady("no attestation")))
	assert.True(t, IsGuard(InvalidTransition("pending", "destination_confirmed")))
	assert.True(t, IsCollaborator(SubmissionError("burn", errors.New("rejected"))))
	assert.True(t, IsCollaborator(AttestationUnavailable("0x1", errors.New("503"))))
	assert.True(t, IsNotFound(TransferNotFound("id")))
	assert.Equal(t, "UNKNOWN_ERROR", GetErrorCode(errors.New("plain")))
}
