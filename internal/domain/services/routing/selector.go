// Package routing picks the cross-chain protocol for a chain pair.
package routing

import (
	"github.com/rail-service/usdc-bridge/internal/domain/entities"
)

// ChainLookup resolves chain ids to their configuration
type ChainLookup interface {
	Get(id entities.ChainID) (entities.ChainConfig, error)
}

// Selector chooses CCTP whenever both ends support it and falls back to the
// Wormhole token bridge otherwise. It performs no I/O.
type Selector struct {
	chains ChainLookup
}

func NewSelector(chains ChainLookup) *Selector {
	return &Selector{chains: chains}
}

// Select returns the transfer method for source -> destination.
func (s *Selector) Select(source, destination entities.ChainID) (entities.TransferMethod, error) {
	src, err := s.chains.Get(source)
	if err != nil {
		return "", err
	}
	dst, err := s.chains.Get(destination)
	if err != nil {
		return "", err
	}
	return MethodFor(src, dst), nil
}

// MethodFor is the selection policy on already-resolved chains.
func MethodFor(source, destination entities.ChainConfig) entities.TransferMethod {
	if source.SupportsCCTP && destination.SupportsCCTP {
		return entities.TransferMethodCCTP
	}
	return entities.TransferMethodWormhole
}
