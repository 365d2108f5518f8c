package entities

import (
	"fmt"
	"strings"
)

// ChainID identifies a supported blockchain
type ChainID string

const (
	ChainEthereum  ChainID = "ethereum"
	ChainPolygon   ChainID = "polygon"
	ChainAvalanche ChainID = "avalanche"
	ChainArbitrum  ChainID = "arbitrum"
	ChainOptimism  ChainID = "optimism"
	ChainBase      ChainID = "base"
	ChainSolana    ChainID = "solana"
	ChainBSC       ChainID = "bsc"
)

func (c ChainID) String() string { return string(c) }

// ChainKind selects how a chain is observed on-chain
type ChainKind string

const (
	ChainKindEVM    ChainKind = "evm"
	ChainKindSolana ChainKind = "solana"
)

// ChainConfig describes one supported chain and its capabilities.
// Values are loaded once at startup and never mutated.
type ChainConfig struct {
	ID                 ChainID   `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	NativeToken        string    `json:"native_token" yaml:"native_token"`
	Kind               ChainKind `json:"kind" yaml:"kind"`
	SupportsCCTP       bool      `json:"supports_cctp" yaml:"supports_cctp"`
	USDCAddress        string    `json:"usdc_address" yaml:"usdc_address"`
	// WrappedUSDCAddress is the Wormhole-wrapped USDC token minted on this
	// chain by the token bridge. Optional.
	WrappedUSDCAddress string    `json:"wrapped_usdc_address,omitempty" yaml:"wrapped_usdc_address"`
	RPCURL             string    `json:"rpc_url" yaml:"rpc_url"`
	ExplorerURL        string    `json:"explorer_url" yaml:"explorer_url"`
	Icon               string    `json:"icon,omitempty" yaml:"icon"`
	EVMChainID         int64     `json:"evm_chain_id,omitempty" yaml:"evm_chain_id"`
	CCTPDomain         *uint32   `json:"cctp_domain,omitempty" yaml:"cctp_domain"`
	WormholeChainID    uint16    `json:"wormhole_chain_id" yaml:"wormhole_chain_id"`
	Confirmations      uint64    `json:"confirmations" yaml:"confirmations"`
}

// Validate checks the fields every registry entry must carry.
func (c ChainConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("chain id is required")
	}
	if c.USDCAddress == "" {
		return fmt.Errorf("chain %s: usdc_address is required", c.ID)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("chain %s: rpc_url is required", c.ID)
	}
	switch c.Kind {
	case ChainKindEVM, ChainKindSolana:
	default:
		return fmt.Errorf("chain %s: unsupported kind %q", c.ID, c.Kind)
	}
	if c.SupportsCCTP && c.CCTPDomain == nil {
		return fmt.Errorf("chain %s: cctp_domain is required when supports_cctp is set", c.ID)
	}
	return nil
}

// TxURL returns the block explorer link for a transaction on this chain.
func (c ChainConfig) TxURL(txHash string) string {
	if c.ExplorerURL == "" || txHash == "" {
		return ""
	}
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + txHash
}

// Domain returns the CCTP domain of the chain, if it has one.
func (c ChainConfig) Domain() (uint32, bool) {
	if c.CCTPDomain == nil {
		return 0, false
	}
	return *c.CCTPDomain, true
}
