package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/pkg/retry"
)

var ErrInvalidSignature = errors.New("invalid Solana transaction signature")

const signatureLength = 64

// Commitment levels reported by getSignatureStatuses
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

type Config struct {
	Timeout time.Duration
	Retry   retry.Policy
	// RequireFinalized waits for "finalized" instead of "confirmed".
	RequireFinalized bool
}

type signatureStatusesResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value []*signatureStatus `json:"value"`
}

type signatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// Observer reports transaction status on Solana clusters via getSignatureStatuses.
type Observer struct {
	rpc              *rpcClient
	requireFinalized bool
	logger           *zap.Logger
}

func NewObserver(cfg Config, logger *zap.Logger) *Observer {
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Observer{
		rpc:              newRPCClient(cfg.Timeout, cfg.Retry, logger),
		requireFinalized: cfg.RequireFinalized,
		logger:           logger,
	}
}

// Confirmation queries the cluster at chain.RPCURL for signature.
func (o *Observer) Confirmation(ctx context.Context, chain entities.ChainConfig, signature string) (entities.Confirmation, error) {
	if err := validateSignature(signature); err != nil {
		return entities.Confirmation{}, err
	}

	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	}
	var result signatureStatusesResult
	if err := o.rpc.call(ctx, chain.RPCURL, "getSignatureStatuses", params, &result); err != nil {
		return entities.Confirmation{}, fmt.Errorf("get signature status on %s: %w", chain.ID, err)
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return entities.Confirmation{Status: entities.ConfirmationPending, Reason: "signature not found"}, nil
	}
	status := result.Value[0]

	conf := entities.Confirmation{
		Status:      entities.ConfirmationPending,
		BlockNumber: status.Slot,
	}
	if status.Confirmations != nil {
		conf.Confirmations = *status.Confirmations
	}

	if status.Err != nil {
		conf.Status = entities.ConfirmationFailed
		conf.Reason = fmt.Sprintf("transaction error: %v", status.Err)
		return conf, nil
	}

	switch status.ConfirmationStatus {
	case CommitmentFinalized:
		conf.Status = entities.ConfirmationConfirmed
	case CommitmentConfirmed:
		if !o.requireFinalized {
			conf.Status = entities.ConfirmationConfirmed
		}
	}
	if conf.Status == entities.ConfirmationPending {
		conf.Reason = "commitment " + status.ConfirmationStatus
	}

	o.logger.Debug("Solana signature status",
		zap.String("chain", chain.ID.String()),
		zap.String("signature", signature),
		zap.String("commitment", status.ConfirmationStatus),
		zap.Uint64("slot", status.Slot))
	return conf, nil
}

func validateSignature(signature string) error {
	raw, err := base58.Decode(signature)
	if err != nil || len(raw) != signatureLength {
		return fmt.Errorf("%w: %q", ErrInvalidSignature, signature)
	}
	return nil
}
