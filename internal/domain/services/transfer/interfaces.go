package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// Store persists transfer records
type Store interface {
	Create(ctx context.Context, rec *entities.TransferRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error)
	Update(ctx context.Context, rec *entities.TransferRecord) error
	MarkPolled(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByStatus(ctx context.Context, statuses []entities.TransferStatus, limit int) ([]*entities.TransferRecord, error)
}

// ChainRegistry resolves chain ids
type ChainRegistry interface {
	Get(id entities.ChainID) (entities.ChainConfig, error)
}

// MethodSelector picks the protocol for a chain pair
type MethodSelector interface {
	Select(source, destination entities.ChainID) (entities.TransferMethod, error)
}

// FeeEstimator prices a transfer
type FeeEstimator interface {
	Quote(ctx context.Context, source, destination entities.ChainID, amount usdc.Amount, method entities.TransferMethod) (entities.FeeBreakdown, error)
}

// Signer provides the wallet address and signs/broadcasts transactions.
// Address returns domainerrors.ErrSignerUnavailable when no wallet is connected.
type Signer interface {
	Address(ctx context.Context) (string, error)
	Submit(ctx context.Context, intent entities.TransactionIntent) (string, error)
}

// ChainObserver reports the on-chain status of a transaction
type ChainObserver interface {
	Confirmation(ctx context.Context, chain entities.ChainConfig, txHash string) (entities.Confirmation, error)
}

// AttestationService fetches the approval needed to redeem on the destination chain.
// Fetch returns domainerrors.ErrAttestationPending until it is available.
type AttestationService interface {
	Fetch(ctx context.Context, method entities.TransferMethod, source entities.ChainConfig, txHash string) (string, error)
}

// Locker serializes work on a single transfer across callers
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// EventPublisher fans out status changes
type EventPublisher interface {
	Publish(ctx context.Context, event entities.TransferEvent) error
}
