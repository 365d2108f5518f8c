package adapters

import (
	"context"
	"fmt"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
)

// Attester fetches the redemption approval for a single bridge protocol.
type Attester interface {
	Fetch(ctx context.Context, source entities.ChainConfig, txHash string) (string, error)
}

// Observer reports transaction status for a single chain family.
type Observer interface {
	Confirmation(ctx context.Context, chain entities.ChainConfig, txHash string) (entities.Confirmation, error)
}

// AttestationRouter dispatches attestation lookups by transfer method.
type AttestationRouter struct {
	attesters map[entities.TransferMethod]Attester
}

func NewAttestationRouter(cctp, wormhole Attester) *AttestationRouter {
	return &AttestationRouter{attesters: map[entities.TransferMethod]Attester{
		entities.TransferMethodCCTP:     cctp,
		entities.TransferMethodWormhole: wormhole,
	}}
}

func (r *AttestationRouter) Fetch(ctx context.Context, method entities.TransferMethod, source entities.ChainConfig, txHash string) (string, error) {
	a, ok := r.attesters[method]
	if !ok || a == nil {
		return "", fmt.Errorf("no attestation source for method %q", method)
	}
	return a.Fetch(ctx, source, txHash)
}

// ObserverRouter dispatches confirmation lookups by chain kind.
type ObserverRouter struct {
	observers map[entities.ChainKind]Observer
}

func NewObserverRouter(evm, solana Observer) *ObserverRouter {
	return &ObserverRouter{observers: map[entities.ChainKind]Observer{
		entities.ChainKindEVM:    evm,
		entities.ChainKindSolana: solana,
	}}
}

func (r *ObserverRouter) Confirmation(ctx context.Context, chain entities.ChainConfig, txHash string) (entities.Confirmation, error) {
	o, ok := r.observers[chain.Kind]
	if !ok || o == nil {
		return entities.Confirmation{}, fmt.Errorf("no observer for %s chains", chain.Kind)
	}
	return o.Confirmation(ctx, chain, txHash)
}
