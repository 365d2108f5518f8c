package di

import (
	"fmt"
	"time"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/internal/domain/services/fees"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/config"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// BuildFeeSchedule turns the configured decimal strings into a fee schedule.
// Empty values keep the default.
func BuildFeeSchedule(cfg config.FeeConfig) (fees.Schedule, error) {
	schedule := fees.DefaultSchedule()

	var err error
	if schedule.SourceChainFee, err = parseFee("source_chain_fee", cfg.SourceChainFee, schedule.SourceChainFee); err != nil {
		return fees.Schedule{}, err
	}
	if schedule.DestinationChainFee, err = parseFee("destination_chain_fee", cfg.DestinationChainFee, schedule.DestinationChainFee); err != nil {
		return fees.Schedule{}, err
	}

	bridge := make(map[entities.TransferMethod]usdc.Amount, len(schedule.BridgeFees))
	for m, fee := range schedule.BridgeFees {
		bridge[m] = fee
	}
	if bridge[entities.TransferMethodCCTP], err = parseFee("cctp_bridge_fee", cfg.CCTPBridgeFee, bridge[entities.TransferMethodCCTP]); err != nil {
		return fees.Schedule{}, err
	}
	if bridge[entities.TransferMethodWormhole], err = parseFee("wormhole_bridge_fee", cfg.WormholeBridgeFee, bridge[entities.TransferMethodWormhole]); err != nil {
		return fees.Schedule{}, err
	}
	schedule.BridgeFees = bridge

	if schedule.SourceFees, err = parseOverrides("source_overrides", cfg.SourceOverrides); err != nil {
		return fees.Schedule{}, err
	}
	if schedule.DestinationFees, err = parseOverrides("destination_overrides", cfg.DestinationOverrides); err != nil {
		return fees.Schedule{}, err
	}

	if err := schedule.Validate(); err != nil {
		return fees.Schedule{}, err
	}
	return schedule, nil
}

func parseFee(field, value string, fallback usdc.Amount) (usdc.Amount, error) {
	if value == "" {
		return fallback, nil
	}
	amount, err := usdc.Parse(value)
	if err != nil {
		return usdc.Zero, fmt.Errorf("chains.fees.%s: %w", field, err)
	}
	return amount, nil
}

func parseOverrides(field string, values map[string]string) (map[entities.ChainID]usdc.Amount, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[entities.ChainID]usdc.Amount, len(values))
	for chain, value := range values {
		amount, err := usdc.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("chains.fees.%s.%s: %w", field, chain, err)
		}
		out[entities.ChainID(chain)] = amount
	}
	return out, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
