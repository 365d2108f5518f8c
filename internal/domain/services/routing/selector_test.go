package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/internal/domain/services/chains"
)

func newRegistry(t *testing.T) *chains.Registry {
	t.Helper()
	d0, d6 := uint32(0), uint32(6)
	r, err := chains.NewRegistry([]entities.ChainConfig{
		{ID: "ethereum", Kind: entities.ChainKindEVM, SupportsCCTP: true, CCTPDomain: &d0, USDCAddress: "0x1", RPCURL: "https://eth"},
		{ID: "base", Kind: entities.ChainKindEVM, SupportsCCTP: true, CCTPDomain: &d6, USDCAddress: "0x2", RPCURL: "https://base"},
		{ID: "bsc", Kind: entities.ChainKindEVM, USDCAddress: "0x3", RPCURL: "https://bsc"},
	})
	require.NoError(t, err)
	return r
}

func TestSelect_AllPairs(t *testing.T) {
	registry := newRegistry(t)
	selector := NewSelector(registry)

	for _, src := range registry.List() {
		for _, dst := range registry.List() {
			got, err := selector.Select(src.ID, dst.ID)
			require.NoError(t, err)

			want := entities.TransferMethodWormhole
			if src.SupportsCCTP && dst.SupportsCCTP {
				want = entities.TransferMethodCCTP
			}
			assert.Equal(t, want, got, "%s -> %s", src.ID, dst.ID)

			again, _ := selector.Select(src.ID, dst.ID)
			assert.Equal(t, got, again, "selection must be deterministic")
		}
	}
}

func TestSelect_Examples(t *testing.T) {
	selector := NewSelector(newRegistry(t))

	m, err := selector.Select("ethereum", "base")
	require.NoError(t, err)
	assert.Equal(t, entities.TransferMethodCCTP, m)

	m, err = selector.Select("ethereum", "bsc")
	require.NoError(t, err)
	assert.Equal(t, entities.TransferMethodWormhole, m)
}

func TestSelect_UnknownChain(t *testing.T) {
	selector := NewSelector(newRegistry(t))

	_, err := selector.Select("foochain", "base")
	assert.ErrorIs(t, err, domainerrors.ErrUnknownChain)

	_, err = selector.Select("base", "foochain")
	assert.ErrorIs(t, err, domainerrors.ErrUnknownChain)
}
