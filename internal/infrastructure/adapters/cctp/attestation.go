package cctp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// Attester fetches CCTP attestations and live burn fees from Iris.
type Attester struct {
	client CCTPClient
	logger *zap.Logger
}

func NewAttester(client CCTPClient, logger *zap.Logger) *Attester {
	return &Attester{client: client, logger: logger}
}

// Fetch returns the attestation of the burn in txHash on source, or
// domainerrors.ErrAttestationPending while Iris is still attesting it.
func (a *Attester) Fetch(ctx context.Context, source entities.ChainConfig, txHash string) (string, error) {
	domain, ok := source.Domain()
	if !ok {
		return "", fmt.Errorf("%s: %w", source.ID, ErrNoDomain)
	}

	resp, err := a.client.GetMessages(ctx, domain, txHash)
	if errors.Is(err, ErrNoMessages) {
		return "", domainerrors.ErrAttestationPending
	}
	if err != nil {
		return "", err
	}

	msg := resp.Messages[0]
	if !msg.IsComplete() {
		a.logger.Debug("CCTP attestation pending",
			zap.String("tx_hash", txHash),
			zap.String("status", msg.Status),
			zap.String("delay_reason", msg.DelayReason))
		return "", domainerrors.ErrAttestationPending
	}
	return msg.Attestation, nil
}

// QuoteBridgeFee converts the standard-finality minimum fee for the pair into USDC.
func (a *Attester) QuoteBridgeFee(ctx context.Context, source, destination entities.ChainConfig, amount usdc.Amount) (usdc.Amount, error) {
	srcDomain, ok := source.Domain()
	if !ok {
		return usdc.Zero, fmt.Errorf("%s: %w", source.ID, ErrNoDomain)
	}
	dstDomain, ok := destination.Domain()
	if !ok {
		return usdc.Zero, fmt.Errorf("%s: %w", destination.ID, ErrNoDomain)
	}

	tiers, err := a.client.GetFees(ctx, srcDomain, dstDomain)
	if err != nil {
		return usdc.Zero, err
	}
	for _, tier := range tiers {
		if tier.FinalityThreshold == FinalityThresholdStandard {
			return amount.MulBasisPointsDecimal(tier.MinimumFee), nil
		}
	}
	return usdc.Zero, ErrNoFeeTier
}
