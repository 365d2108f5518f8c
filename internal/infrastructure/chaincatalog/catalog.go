// Package chaincatalog provides the chain catalog the registry is built from:
// a built-in mainnet catalog and a YAML file loader.
package chaincatalog

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/internal/domain/services/chains"
)

func domain(d uint32) *uint32 { return &d }

// Default returns the built-in mainnet catalog. Every chain but BNB Chain
// supports CCTP.
func Default() []entities.ChainConfig {
	return []entities.ChainConfig{
		{
			ID:              entities.ChainEthereum,
			Name:            "Ethereum",
			NativeToken:     "ETH",
			Kind:            entities.ChainKindEVM,
			SupportsCCTP:    true,
			USDCAddress:     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			RPCURL:          "https://rpc.ankr.com/eth",
			ExplorerURL:     "https://etherscan.io",
			Icon:            "/images/chains/ethereum.svg",
			EVMChainID:      1,
			CCTPDomain:      domain(0),
			WormholeChainID: 2,
			Confirmations:   12,
		},
		{
			ID:              entities.ChainPolygon,
			Name:            "Polygon",
			NativeToken:     "MATIC",
			Kind:            entities.ChainKindEVM,
			SupportsCCTP:    true,
			USDCAddress:     "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			RPCURL:          "https://polygon-rpc.com",
			ExplorerURL:     "https://polygonscan.com",
			Icon:            "/images/chains/polygon.svg",
			EVMChainID:      137,
			CCTPDomain:      domain(7),
			WormholeChainID: 5,
			Confirmations:   64,
		},
		{
			ID:              entities.ChainAvalanche,
			Name:            "Avalanche",
			NativeToken:     "AVAX",
			Kind:            entities.ChainKindEVM,
			SupportsCCTP:    true,
			USDCAddress:     "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
			RPCURL:          "https://api.avax.network/ext/bc/C/rpc",
			ExplorerURL:     "https://snowtrace.io",
			Icon:            "/images/chains/avalanche.svg",
			EVMChainID:      43114,
			CCTPDomain:      domain(1),
			WormholeChainID: 6,
			Confirmations:   1,
		},
		{
			ID:              entities.ChainArbitrum,
			Name:            "Arbitrum",
			NativeToken:     "ETH",
			Kind:            entities.ChainKindEVM,
			SupportsCCTP:    true,
			USDCAddress:     "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8",
			RPCURL:          "https://arb1.arbitrum.io/rpc",
			ExplorerURL:     "https://arbiscan.io",
			Icon:            "/images/chains/arbitrum.svg",
			EVMChainID:      42161,
			CCTPDomain:      domain(3),
			WormholeChainID: 23,
			Confirmations:   1,
		},
		{
			ID:              entities.ChainOptimism,
			Name:            "Optimism",
			NativeToken:     "ETH",
			Kind:            entities.ChainKindEVM,
			SupportsCCTP:    true,
			USDCAddress:     "0x7F5c764cBc14f9669B88837ca1490cCa17c31607",
			RPCURL:          "https://mainnet.optimism.io",
			ExplorerURL:     "https://optimistic.etherscan.io",
			Icon:            "/images/chains/optimism.svg",
			EVMChainID:      10,
			CCTPDomain:      domain(2),
			WormholeChainID: 24,
			Confirmations:   1,
		},
		{
			ID:              entities.ChainBase,
			Name:            "Base",
			NativeToken:     "ETH",
			Kind:            entities.ChainKindEVM,
			SupportsCCTP:    true,
			USDCAddress:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			RPCURL:          "https://mainnet.base.org",
			ExplorerURL:     "https://basescan.org",
			Icon:            "/images/chains/base.svg",
			EVMChainID:      8453,
			CCTPDomain:      domain(6),
			WormholeChainID: 30,
			Confirmations:   1,
		},
		{
			ID:              entities.ChainSolana,
			Name:            "Solana",
			NativeToken:     "SOL",
			Kind:            entities.ChainKindSolana,
			SupportsCCTP:    true,
			USDCAddress:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			RPCURL:          "https://api.mainnet-beta.solana.com",
			ExplorerURL:     "https://explorer.solana.com",
			Icon:            "/images/chains/solana.svg",
			CCTPDomain:      domain(5),
			WormholeChainID: 1,
		},
		{
			ID:                 entities.ChainBSC,
			Name:               "BNB Chain",
			NativeToken:        "BNB",
			Kind:               entities.ChainKindEVM,
			SupportsCCTP:       false,
			USDCAddress:        "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
			WrappedUSDCAddress: "0xB04906e95AB5D797aDA81508115611fee694c2b3",
			RPCURL:             "https://bsc-dataseed.binance.org",
			ExplorerURL:        "https://bscscan.com",
			Icon:               "/images/chains/bsc.svg",
			EVMChainID:         56,
			WormholeChainID:    4,
			Confirmations:      15,
		},
	}
}

// DefaultSource serves the built-in catalog.
type DefaultSource struct{}

func (DefaultSource) Load(ctx context.Context) ([]entities.ChainConfig, error) {
	return Default(), nil
}

// file is the on-disk layout:
//
//	chains:
//	  - id: ethereum
//	    name: Ethereum
//	    ...
type file struct {
	Chains []entities.ChainConfig `yaml:"chains"`
}

// FileSource reads a YAML catalog from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) ([]entities.ChainConfig, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read chain catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) ([]entities.ChainConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse chain catalog: %w", err)
	}
	if len(f.Chains) == 0 {
		return nil, fmt.Errorf("parse chain catalog: no chains defined")
	}
	return f.Chains, nil
}

// Source picks the file source when path is set and the built-in catalog otherwise.
func Source(path string) chains.ConfigSource {
	if path == "" {
		return DefaultSource{}
	}
	return FileSource{Path: path}
}
