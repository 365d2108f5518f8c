package fees

import (
	"fmt"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

// Default fee components, in USDC.
var (
	DefaultSourceChainFee      = usdc.MustParse("0.001")
	DefaultDestinationChainFee = usdc.MustParse("0.0005")
	DefaultCCTPBridgeFee       = usdc.MustParse("0.0001")
	DefaultWormholeBridgeFee   = usdc.MustParse("0.0002")
)

// Schedule holds the static fee components used when no live quote applies.
// Per-chain entries override the defaults for that chain.
type Schedule struct {
	SourceChainFee      usdc.Amount
	DestinationChainFee usdc.Amount
	SourceFees          map[entities.ChainID]usdc.Amount
	DestinationFees     map[entities.ChainID]usdc.Amount
	BridgeFees          map[entities.TransferMethod]usdc.Amount
}

// DefaultSchedule returns the flat schedule applied to every chain pair.
func DefaultSchedule() Schedule {
	return Schedule{
		SourceChainFee:      DefaultSourceChainFee,
		DestinationChainFee: DefaultDestinationChainFee,
		BridgeFees: map[entities.TransferMethod]usdc.Amount{
			entities.TransferMethodCCTP:     DefaultCCTPBridgeFee,
			entities.TransferMethodWormhole: DefaultWormholeBridgeFee,
		},
	}
}

// Validate requires a bridge fee for every method and keeps CCTP the cheaper path.
func (s Schedule) Validate() error {
	cctp, ok := s.BridgeFees[entities.TransferMethodCCTP]
	if !ok {
		return fmt.Errorf("fee schedule: missing bridge fee for %s", entities.TransferMethodCCTP)
	}
	wormhole, ok := s.BridgeFees[entities.TransferMethodWormhole]
	if !ok {
		return fmt.Errorf("fee schedule: missing bridge fee for %s", entities.TransferMethodWormhole)
	}
	if wormhole.LessThan(cctp) {
		return fmt.Errorf("fee schedule: cctp bridge fee %s exceeds wormhole bridge fee %s", cctp, wormhole)
	}
	return nil
}

func (s Schedule) sourceFee(id entities.ChainID) usdc.Amount {
	if fee, ok := s.SourceFees[id]; ok {
		return fee
	}
	return s.SourceChainFee
}

func (s Schedule) destinationFee(id entities.ChainID) usdc.Amount {
	if fee, ok := s.DestinationFees[id]; ok {
		return fee
	}
	return s.DestinationChainFee
}

func (s Schedule) bridgeFee(m entities.TransferMethod) usdc.Amount {
	return s.BridgeFees[m]
}
