package entities

import "fmt"

// TransferStatus represents the lifecycle stage of a cross-chain transfer
type TransferStatus string

const (
	TransferStatusNotStarted TransferStatus = "not_started"
	TransferStatusInitiating TransferStatus = "initiating" // Source submission in flight
	TransferStatusPending    TransferStatus = "pending"    // Waiting for source confirmation
	TransferStatusConfirming TransferStatus = "confirming" // Waiting for attestation / redemption
	TransferStatusRedeeming  TransferStatus = "redeeming"  // Redemption submitted on destination
	TransferStatusCompleted  TransferStatus = "completed"
	TransferStatusFailed     TransferStatus = "failed"
)

// ValidTransferStatuses contains all valid transfer statuses
var ValidTransferStatuses = map[TransferStatus]bool{
	TransferStatusNotStarted: true,
	TransferStatusInitiating: true,
	TransferStatusPending:    true,
	TransferStatusConfirming: true,
	TransferStatusRedeeming:  true,
	TransferStatusCompleted:  true,
	TransferStatusFailed:     true,
}

// ValidTransferTransitions defines allowed status transitions.
// Confirming -> Confirming is the attestation being recorded.
var ValidTransferTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusNotStarted: {TransferStatusInitiating, TransferStatusFailed},
	TransferStatusInitiating: {TransferStatusPending, TransferStatusFailed},
	TransferStatusPending:    {TransferStatusConfirming, TransferStatusFailed},
	TransferStatusConfirming: {TransferStatusConfirming, TransferStatusRedeeming, TransferStatusFailed},
	TransferStatusRedeeming:  {TransferStatusCompleted, TransferStatusFailed},
	TransferStatusCompleted:  {}, // Terminal state
	TransferStatusFailed:     {}, // Terminal state
}

// ActiveTransferStatuses are the statuses the poller keeps advancing.
var ActiveTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusConfirming,
	TransferStatusRedeeming,
}

// PollableTransferStatuses are the active statuses plus initiating, which
// the poller revisits to fail orphaned submissions.
var PollableTransferStatuses = append([]TransferStatus{TransferStatusInitiating}, ActiveTransferStatuses...)

// IsValid checks if the status is a valid transfer status
func (s TransferStatus) IsValid() bool {
	return ValidTransferStatuses[s]
}

// CanTransitionTo checks if transition to new status is allowed
func (s TransferStatus) CanTransitionTo(newStatus TransferStatus) bool {
	for _, status := range ValidTransferTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

// ValidateTransition validates and returns error if transition is invalid
func (s TransferStatus) ValidateTransition(newStatus TransferStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid transfer status: %s", newStatus)
	}
	if !s.CanTransitionTo(newStatus) {
		return fmt.Errorf("invalid status transition from %s to %s", s, newStatus)
	}
	return nil
}
