package wormhole

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
)

// Attester resolves the signed VAA of a Wormhole token transfer.
type Attester struct {
	client *Client
	logger *zap.Logger
}

func NewAttester(client *Client, logger *zap.Logger) *Attester {
	return &Attester{client: client, logger: logger}
}

// Fetch returns the raw VAA emitted by txHash on source, or
// domainerrors.ErrAttestationPending until the guardians have signed it.
func (a *Attester) Fetch(ctx context.Context, source entities.ChainConfig, txHash string) (string, error) {
	ops, err := a.client.GetOperations(ctx, txHash)
	if errors.Is(err, ErrNoOperations) {
		return "", domainerrors.ErrAttestationPending
	}
	if err != nil {
		return "", err
	}

	for _, op := range ops {
		if source.WormholeChainID != 0 && op.EmitterChain != source.WormholeChainID {
			continue
		}
		if op.Signed() {
			return op.VAA.Raw, nil
		}
	}

	a.logger.Debug("Wormhole VAA not signed yet",
		zap.String("tx_hash", txHash),
		zap.String("chain", source.ID.String()),
		zap.Int("operations", len(ops)))
	return "", domainerrors.ErrAttestationPending
}
