package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// TransferMethod is the cross-chain protocol used by a transfer
type TransferMethod string

const (
	TransferMethodCCTP     TransferMethod = "cctp"     // Native burn/mint
	TransferMethodWormhole TransferMethod = "wormhole" // Wrapped lock/mint, requires a VAA
)

func (m TransferMethod) IsValid() bool {
	return m == TransferMethodCCTP || m == TransferMethodWormhole
}

// FeeBreakdown is the cost estimate of a transfer, all amounts in USDC.
type FeeBreakdown struct {
	SourceChainFee      usdc.Amount `json:"source_chain_fee"`
	DestinationChainFee usdc.Amount `json:"destination_chain_fee"`
	BridgeFee           usdc.Amount `json:"bridge_fee"`
	TotalFee            usdc.Amount `json:"total_fee"`
	FinalAmount         usdc.Amount `json:"final_amount"`
}

// TransferRecord tracks one cross-chain USDC transfer from creation to a terminal state
type TransferRecord struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	SourceChain      ChainID        `json:"source_chain" db:"source_chain"`
	DestinationChain ChainID        `json:"destination_chain" db:"destination_chain"`
	Amount           usdc.Amount    `json:"amount" db:"amount"`
	Method           TransferMethod `json:"method" db:"method"`
	Status           TransferStatus `json:"status" db:"status"`
	SignerAddress    string         `json:"signer_address" db:"signer_address"`
	RecipientAddress string         `json:"recipient_address" db:"recipient_address"`
	SourceTxHash     string         `json:"source_tx_hash,omitempty" db:"source_tx_hash"`
	Attestation      string         `json:"attestation,omitempty" db:"attestation"`
	RedeemTxHash     string         `json:"redeem_tx_hash,omitempty" db:"redeem_tx_hash"`
	EstimatedFee     FeeBreakdown   `json:"estimated_fee" db:"-"`
	FinalAmount      usdc.Amount    `json:"final_amount" db:"final_amount"`
	FailureReason    string         `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
	SubmittedAt      *time.Time     `json:"submitted_at,omitempty" db:"submitted_at"`
	LastPolledAt     *time.Time     `json:"last_polled_at,omitempty" db:"last_polled_at"`
}

// HasAttestation reports whether the redemption approval has been recorded.
func (t *TransferRecord) HasAttestation() bool {
	return t.Attestation != ""
}

// CreateTransferRequest is the caller input for starting a transfer
type CreateTransferRequest struct {
	SourceChain      ChainID
	DestinationChain ChainID
	Amount           string
	SignerAddress    string
	RecipientAddress string
}

// TransferEvent is published whenever a transfer changes status
type TransferEvent struct {
	TransferID uuid.UUID      `json:"transfer_id"`
	From       TransferStatus `json:"from"`
	To         TransferStatus `json:"to"`
	Method     TransferMethod `json:"method"`
	TxHash     string         `json:"tx_hash,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
