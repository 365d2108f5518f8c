package entities

import (
	"github.com/google/uuid"

	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// IntentKind distinguishes the two transactions a transfer submits
type IntentKind string

const (
	IntentInitiate IntentKind = "initiate" // burn (CCTP) or lock (Wormhole) on the source chain
	IntentRedeem   IntentKind = "redeem"   // mint (CCTP) or redeem (Wormhole) on the destination chain
)

// TransactionIntent is what the signer is asked to build, sign and broadcast.
type TransactionIntent struct {
	TransferID       uuid.UUID      `json:"transfer_id"`
	Kind             IntentKind     `json:"kind"`
	Method           TransferMethod `json:"method"`
	Chain            ChainID        `json:"chain"`
	CounterpartChain ChainID        `json:"counterpart_chain"`
	USDCAddress      string         `json:"usdc_address"`
	From             string         `json:"from"`
	Recipient        string         `json:"recipient"`
	Amount           usdc.Amount    `json:"amount"`
	SourceTxHash     string         `json:"source_tx_hash,omitempty"`
	Attestation      string         `json:"attestation,omitempty"`
}

// ConfirmationStatus is what a chain observer reports for a transaction
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationFailed    ConfirmationStatus = "failed" // reverted or dropped on-chain
)

// Confirmation is one observation of a transaction on a chain.
type Confirmation struct {
	Status        ConfirmationStatus
	BlockNumber   uint64
	Confirmations uint64
	// Amount is the USDC actually delivered, when the observer can tell.
	Amount *usdc.Amount
	Reason string
}
