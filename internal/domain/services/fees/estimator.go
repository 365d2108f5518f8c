// Package fees estimates the cost of a cross-chain transfer.
package fees

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// ChainLookup resolves chain ids to their configuration
type ChainLookup interface {
	Get(id entities.ChainID) (entities.ChainConfig, error)
}

// BridgeFeeQuoter returns a live protocol fee for moving amount from source to destination.
type BridgeFeeQuoter interface {
	QuoteBridgeFee(ctx context.Context, source, destination entities.ChainConfig, amount usdc.Amount) (usdc.Amount, error)
}

// Estimator computes FeeBreakdowns from a static schedule and an optional live quoter.
type Estimator struct {
	chains   ChainLookup
	schedule Schedule
	quoter   BridgeFeeQuoter
	logger   *zap.Logger
}

// NewEstimator creates an estimator. quoter may be nil.
func NewEstimator(chains ChainLookup, schedule Schedule, quoter BridgeFeeQuoter, logger *zap.Logger) (*Estimator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{chains: chains, schedule: schedule, quoter: quoter, logger: logger}, nil
}

// Estimate parses amount and returns the static fee breakdown for the transfer.
func (e *Estimator) Estimate(source, destination entities.ChainID, amount string, method entities.TransferMethod) (entities.FeeBreakdown, error) {
	parsed, err := ParseAmount(amount)
	if err != nil {
		return entities.FeeBreakdown{}, err
	}
	return e.EstimateAmount(source, destination, parsed, method)
}

// EstimateAmount is Estimate for an already-parsed amount.
func (e *Estimator) EstimateAmount(source, destination entities.ChainID, amount usdc.Amount, method entities.TransferMethod) (entities.FeeBreakdown, error) {
	if _, _, err := e.resolve(source, destination, method); err != nil {
		return entities.FeeBreakdown{}, err
	}
	return e.breakdown(source, destination, amount, e.schedule.bridgeFee(method))
}

// Quote is EstimateAmount with the CCTP bridge fee taken from the live quoter when
// one is configured. The quoted fee is capped at the wrapped-bridge fee so CCTP never
// costs more than Wormhole on the same pair. Quoter failures fall back to the schedule.
func (e *Estimator) Quote(ctx context.Context, source, destination entities.ChainID, amount usdc.Amount, method entities.TransferMethod) (entities.FeeBreakdown, error) {
	src, dst, err := e.resolve(source, destination, method)
	if err != nil {
		return entities.FeeBreakdown{}, err
	}

	bridgeFee := e.schedule.bridgeFee(method)
	if method == entities.TransferMethodCCTP && e.quoter != nil {
		quoted, err := e.quoter.QuoteBridgeFee(ctx, src, dst, amount)
		switch {
		case err != nil:
			e.logger.Warn("Live bridge fee unavailable, using schedule",
				zap.String("source", string(source)),
				zap.String("destination", string(destination)),
				zap.Error(err))
		default:
			bridgeFee = usdc.Min(quoted, e.schedule.bridgeFee(entities.TransferMethodWormhole))
		}
	}
	return e.breakdown(source, destination, amount, bridgeFee)
}

func (e *Estimator) resolve(source, destination entities.ChainID, method entities.TransferMethod) (entities.ChainConfig, entities.ChainConfig, error) {
	src, err := e.chains.Get(source)
	if err != nil {
		return entities.ChainConfig{}, entities.ChainConfig{}, err
	}
	dst, err := e.chains.Get(destination)
	if err != nil {
		return entities.ChainConfig{}, entities.ChainConfig{}, err
	}
	if !method.IsValid() {
		return entities.ChainConfig{}, entities.ChainConfig{}, domainerrors.ValidationError("method", fmt.Sprintf("unsupported transfer method %q", method))
	}
	return src, dst, nil
}

func (e *Estimator) breakdown(source, destination entities.ChainID, amount, bridgeFee usdc.Amount) (entities.FeeBreakdown, error) {
	fb := entities.FeeBreakdown{
		SourceChainFee:      e.schedule.sourceFee(source),
		DestinationChainFee: e.schedule.destinationFee(destination),
		BridgeFee:           bridgeFee,
	}

	total, err := fb.SourceChainFee.Add(fb.DestinationChainFee)
	if err == nil {
		total, err = total.Add(fb.BridgeFee)
	}
	if err != nil {
		return entities.FeeBreakdown{}, domainerrors.InvalidAmount(amount.String(), err)
	}
	fb.TotalFee = total

	final, err := amount.Sub(total)
	if err != nil {
		return entities.FeeBreakdown{}, domainerrors.InsufficientAmount(amount.String(), total.String())
	}
	fb.FinalAmount = final
	return fb, nil
}

// ParseAmount converts a caller-supplied decimal string into an Amount,
// mapping every parse failure to InvalidAmount.
func ParseAmount(amount string) (usdc.Amount, error) {
	parsed, err := usdc.Parse(amount)
	if err != nil {
		return usdc.Zero, domainerrors.InvalidAmount(amount, err)
	}
	return parsed, nil
}
