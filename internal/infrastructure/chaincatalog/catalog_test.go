package chaincatalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/internal/domain/services/chains"
)

const sampleYAML = `
chains:
  - id: ethereum
    name: Ethereum
    native_token: ETH
    kind: evm
    supports_cctp: true
    usdc_address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
    rpc_url: https://ethereum-sepolia-rpc.publicnode.com
    explorer_url: https://sepolia.etherscan.io
    evm_chain_id: 11155111
    cctp_domain: 0
    wormhole_chain_id: 10002
    confirmations: 3
  - id: bsc
    name: BNB Chain Testnet
    native_token: BNB
    kind: evm
    supports_cctp: false
    usdc_address: "0x64544969ed7EBf5f083679233325356EbE738930"
    wrapped_usdc_address: "0x0000000000000000000000000000000000000b5c"
    rpc_url: https://data-seed-prebsc-1-s1.binance.org:8545
    explorer_url: https://testnet.bscscan.com
    wormhole_chain_id: 4
`

func TestDefault_BuildsRegistry(t *testing.T) {
	reg, err := chains.NewRegistry(Default())
	require.NoError(t, err)
	assert.Equal(t, 8, reg.Len())

	bsc, err := reg.Get(entities.ChainBSC)
	require.NoError(t, err)
	assert.False(t, bsc.SupportsCCTP)
	assert.NotEmpty(t, bsc.WrappedUSDCAddress)

	for _, c := range reg.List() {
		if c.ID == entities.ChainBSC {
			continue
		}
		assert.True(t, c.SupportsCCTP, c.ID)
		_, ok := c.Domain()
		assert.True(t, ok, c.ID)
	}

	sol, err := reg.Get(entities.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, entities.ChainKindSolana, sol.Kind)
}

func TestParse(t *testing.T) {
	list, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, list, 2)

	eth := list[0]
	assert.Equal(t, entities.ChainEthereum, eth.ID)
	assert.Equal(t, int64(11155111), eth.EVMChainID)
	require.NotNil(t, eth.CCTPDomain)
	assert.Equal(t, uint32(0), *eth.CCTPDomain)
	assert.Equal(t, uint64(3), eth.Confirmations)

	assert.Nil(t, list[1].CCTPDomain)
	assert.Equal(t, "0x0000000000000000000000000000000000000b5c", list[1].WrappedUSDCAddress)
	assert.Equal(t, "https://testnet.bscscan.com/tx/0xabc", list[1].TxURL("0xabc"))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("chains: []"))
	assert.ErrorContains(t, err, "no chains defined")

	_, err = Parse([]byte("chains:\n  - id: ethereum\n    colour: blue\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("chains: [this is: not valid"))
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	reg, err := chains.Load(context.Background(), Source(path))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Load(context.Background())
	assert.ErrorContains(t, err, "read chain catalog")
}

func TestSource_DefaultsToBuiltIn(t *testing.T) {
	list, err := Source("").Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 8)
}
