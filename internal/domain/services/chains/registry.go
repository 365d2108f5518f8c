// Package chains holds the catalog of supported chains.
package chains

import (
	"context"
	"fmt"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
)

// ConfigSource supplies the chain catalog at startup
type ConfigSource interface {
	Load(ctx context.Context) ([]entities.ChainConfig, error)
}

// Registry is the validated, read-only chain catalog.
// It is never mutated after NewRegistry returns, so concurrent reads need no locking.
type Registry struct {
	ordered []entities.ChainConfig
	byID    map[entities.ChainID]entities.ChainConfig
}

// NewRegistry validates the given chains and indexes them by id.
func NewRegistry(configs []entities.ChainConfig) (*Registry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("chain registry: no chains configured")
	}

	r := &Registry{
		ordered: make([]entities.ChainConfig, 0, len(configs)),
		byID:    make(map[entities.ChainID]entities.ChainConfig, len(configs)),
	}
	wormholeIDs := make(map[uint16]entities.ChainID)
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("chain registry: %w", err)
		}
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("chain registry: duplicate chain id %s", c.ID)
		}
		if c.WormholeChainID != 0 {
			if other, dup := wormholeIDs[c.WormholeChainID]; dup {
				return nil, fmt.Errorf("chain registry: wormhole chain id %d used by %s and %s", c.WormholeChainID, other, c.ID)
			}
			wormholeIDs[c.WormholeChainID] = c.ID
		}
		r.ordered = append(r.ordered, c)
		r.byID[c.ID] = c
	}
	return r, nil
}

// Load builds a registry from a config source.
func Load(ctx context.Context, source ConfigSource) (*Registry, error) {
	configs, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chain catalog: %w", err)
	}
	return NewRegistry(configs)
}

// Get returns the chain with the given id or an UnknownChain error.
func (r *Registry) Get(id entities.ChainID) (entities.ChainConfig, error) {
	c, ok := r.byID[id]
	if !ok {
		return entities.ChainConfig{}, domainerrors.UnknownChain(string(id))
	}
	return c, nil
}

// List returns all chains in registration order.
func (r *Registry) List() []entities.ChainConfig {
	out := make([]entities.ChainConfig, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Len() int { return len(r.ordered) }
