package transfer

import (
	"time"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// EventType names an input to the transfer state machine
type EventType string

const (
	EventCreate               EventType = "create"
	EventSubmitted            EventType = "submitted"
	EventSourceConfirmed      EventType = "source_confirmed"
	EventAttestationReceived  EventType = "attestation_received"
	EventRedemptionSubmitted  EventType = "redemption_submitted"
	EventDestinationConfirmed EventType = "destination_confirmed"
	EventFailed               EventType = "failed"
)

// Event is one observation fed into Advance.
type Event struct {
	Type        EventType
	TxHash      string
	Attestation string
	FinalAmount *usdc.Amount
	Reason      string
}

// Created moves a new record into initiating.
func Created() Event { return Event{Type: EventCreate} }

// Submitted records the source transaction hash returned by the signer.
func Submitted(txHash string) Event { return Event{Type: EventSubmitted, TxHash: txHash} }

// SourceConfirmed reports that the source transaction reached finality.
func SourceConfirmed() Event { return Event{Type: EventSourceConfirmed} }

// Failed ends the transfer with reason. An empty reason gets a generic one.
func Failed(reason string) Event { return Event{Type: EventFailed, Reason: reason} }

// Attested carries the attestation or signed VAA for the source burn.
func Attested(attestation string) Event {
	return Event{Type: EventAttestationReceived, Attestation: attestation}
}

// RedemptionSubmitted records the destination mint or redeem transaction hash.
func RedemptionSubmitted(txHash string) Event {
	return Event{Type: EventRedemptionSubmitted, TxHash: txHash}
}

// DestinationConfirmed completes the transfer with the amount actually received.
func DestinationConfirmed(finalAmount usdc.Amount) Event {
	return Event{Type: EventDestinationConfirmed, FinalAmount: &finalAmount}
}

// eventSource lists the only status each event may be applied in. Failed is
// accepted from every non-terminal status and is handled separately.
var eventSource = map[EventType]entities.TransferStatus{
	EventCreate:               entities.TransferStatusNotStarted,
	EventSubmitted:            entities.TransferStatusInitiating,
	EventSourceConfirmed:      entities.TransferStatusPending,
	EventAttestationReceived:  entities.TransferStatusConfirming,
	EventRedemptionSubmitted:  entities.TransferStatusConfirming,
	EventDestinationConfirmed: entities.TransferStatusRedeeming,
}

// Advance applies ev to rec and returns the resulting record. rec is never
// modified; on error the caller keeps its previous value.
func Advance(rec entities.TransferRecord, ev Event, now time.Time) (entities.TransferRecord, error) {
	from := rec.Status
	if from.IsTerminal() {
		return rec, domainerrors.InvalidTransition(string(from), string(ev.Type))
	}

	if ev.Type == EventFailed {
		reason := ev.Reason
		if reason == "" {
			reason = "unrecoverable error"
		}
		rec.Status = entities.TransferStatusFailed
		rec.FailureReason = reason
		rec.UpdatedAt = now
		return rec, nil
	}

	required, known := eventSource[ev.Type]
	if !known || from != required {
		return rec, domainerrors.InvalidTransition(string(from), string(ev.Type))
	}

	next := rec
	switch ev.Type {
	case EventCreate:
		if !rec.Method.IsValid() {
			return rec, domainerrors.NotReady("transfer method not selected")
		}
		if rec.SourceChain == "" || rec.DestinationChain == "" {
			return rec, domainerrors.UnknownChain("")
		}
		if rec.SourceChain == rec.DestinationChain {
			return rec, domainerrors.SameChainTransfer(string(rec.SourceChain))
		}
		next.Status = entities.TransferStatusInitiating

	case EventSubmitted:
		if ev.TxHash == "" {
			return rec, domainerrors.NotReady("source transaction hash missing")
		}
		next.Status = entities.TransferStatusPending
		next.SourceTxHash = ev.TxHash
		submitted := now
		next.SubmittedAt = &submitted

	case EventSourceConfirmed:
		next.Status = entities.TransferStatusConfirming

	case EventAttestationReceived:
		if ev.Attestation == "" {
			return rec, domainerrors.NotReady("attestation is empty")
		}
		if rec.HasAttestation() {
			return rec, domainerrors.InvalidTransition(string(from), string(ev.Type))
		}
		next.Attestation = ev.Attestation

	case EventRedemptionSubmitted:
		if !rec.HasAttestation() {
			return rec, domainerrors.NotReady("attestation not yet available")
		}
		if ev.TxHash == "" {
			return rec, domainerrors.NotReady("redemption transaction hash missing")
		}
		next.Status = entities.TransferStatusRedeeming
		next.RedeemTxHash = ev.TxHash

	case EventDestinationConfirmed:
		if ev.FinalAmount == nil {
			return rec, domainerrors.NotReady("redeemed amount missing")
		}
		next.Status = entities.TransferStatusCompleted
		next.FinalAmount = *ev.FinalAmount
	}

	if err := from.ValidateTransition(next.Status); err != nil {
		return rec, domainerrors.InvalidTransition(string(from), string(ev.Type))
	}
	next.UpdatedAt = now
	return next, nil
}
