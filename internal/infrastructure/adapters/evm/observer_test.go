package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
)

const (
	baseUSDC  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	txHash    = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
	recipient = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

func (m *MockBackend) BlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func baseChain() entities.ChainConfig {
	return entities.ChainConfig{
		ID:            entities.ChainBase,
		Kind:          entities.ChainKindEVM,
		USDCAddress:   baseUSDC,
		RPCURL:        "https://mainnet.base.org",
		Confirmations: 3,
	}
}

func newTestObserver(backend Backend) (*Observer, *int) {
	dials := 0
	return NewObserver(func(ctx context.Context, rpcURL string) (Backend, error) {
		dials++
		return backend, nil
	}, zap.NewNop()), &dials
}

func mintLog(to string, units int64) *types.Log {
	return &types.Log{
		Address: common.HexToAddress(baseUSDC),
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(common.Address{}.Bytes()),
			common.BytesToHash(common.HexToAddress(to).Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(units).Bytes(), 32),
	}
}

func TestObserver_NotMined(t *testing.T) {
	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, common.HexToHash(txHash)).Return(nil, ethereum.NotFound)

	obs, _ := newTestObserver(backend)
	conf, err := obs.Confirmation(context.Background(), baseChain(), txHash)
	require.NoError(t, err)
	assert.Equal(t, entities.ConfirmationPending, conf.Status)
	backend.AssertNotCalled(t, "BlockNumber", mock.Anything)
}

func TestObserver_Reverted(t *testing.T) {
	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, mock.Anything).
		Return(&types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(100)}, nil)

	obs, _ := newTestObserver(backend)
	conf, err := obs.Confirmation(context.Background(), baseChain(), txHash)
	require.NoError(t, err)
	assert.Equal(t, entities.ConfirmationFailed, conf.Status)
	assert.Equal(t, uint64(100), conf.BlockNumber)
}

func TestObserver_ConfirmationDepth(t *testing.T) {
	tests := []struct {
		name  string
		head  uint64
		want  entities.ConfirmationStatus
		depth uint64
	}{
		{"shallow", 101, entities.ConfirmationPending, 2},
		{"exactly required", 102, entities.ConfirmationConfirmed, 3},
		{"deep", 500, entities.ConfirmationConfirmed, 401},
		{"lagging node", 90, entities.ConfirmationPending, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(MockBackend)
			backend.On("TransactionReceipt", mock.Anything, mock.Anything).
				Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)}, nil)
			backend.On("BlockNumber", mock.Anything).Return(tt.head, nil)

			obs, _ := newTestObserver(backend)
			conf, err := obs.Confirmation(context.Background(), baseChain(), txHash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, conf.Status)
			assert.Equal(t, tt.depth, conf.Confirmations)
		})
	}
}

func TestObserver_ReportsMintedAmount(t *testing.T) {
	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, mock.Anything).Return(&types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs:        []*types.Log{mintLog(recipient, 99_998_400)},
	}, nil)
	backend.On("BlockNumber", mock.Anything).Return(uint64(110), nil)

	obs, _ := newTestObserver(backend)
	conf, err := obs.Confirmation(context.Background(), baseChain(), txHash)
	require.NoError(t, err)
	require.NotNil(t, conf.Amount)
	assert.Equal(t, "99.9984", conf.Amount.String())
}

func TestObserver_ReportsWrappedMintedAmount(t *testing.T) {
	const wrapped = "0xB04906e95AB5D797aDA81508115611fee694c2b3"
	mint := mintLog(recipient, 99_998_300)
	mint.Address = common.HexToAddress(wrapped)

	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, mock.Anything).Return(&types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs:        []*types.Log{mint},
	}, nil)
	backend.On("BlockNumber", mock.Anything).Return(uint64(110), nil)

	chain := baseChain()
	chain.WrappedUSDCAddress = wrapped

	obs, _ := newTestObserver(backend)
	conf, err := obs.Confirmation(context.Background(), chain, txHash)
	require.NoError(t, err)
	require.NotNil(t, conf.Amount)
	assert.Equal(t, "99.9983", conf.Amount.String())

	// Without the wrapped address the mint is not attributed to USDC.
	conf, err = obs.Confirmation(context.Background(), baseChain(), txHash)
	require.NoError(t, err)
	assert.Nil(t, conf.Amount)
}

func TestObserver_IgnoresForeignTransfers(t *testing.T) {
	other := mintLog(recipient, 5)
	other.Address = common.HexToAddress("0x0000000000000000000000000000000000000001")

	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, mock.Anything).Return(&types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs:        []*types.Log{other},
	}, nil)
	backend.On("BlockNumber", mock.Anything).Return(uint64(110), nil)

	obs, _ := newTestObserver(backend)
	conf, err := obs.Confirmation(context.Background(), baseChain(), txHash)
	require.NoError(t, err)
	assert.Nil(t, conf.Amount)
}

func TestObserver_RPCError(t *testing.T) {
	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	obs, _ := newTestObserver(backend)
	_, err := obs.Confirmation(context.Background(), baseChain(), txHash)
	assert.ErrorContains(t, err, "connection refused")
}

func TestObserver_InvalidHash(t *testing.T) {
	obs, dials := newTestObserver(new(MockBackend))
	for _, h := range []string{"", "0x1234", "5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"} {
		_, err := obs.Confirmation(context.Background(), baseChain(), h)
		assert.ErrorIs(t, err, ErrInvalidTxHash)
	}
	assert.Zero(t, *dials)
}

func TestObserver_DialsOncePerChain(t *testing.T) {
	backend := new(MockBackend)
	backend.On("TransactionReceipt", mock.Anything, mock.Anything).Return(nil, ethereum.NotFound)

	obs, dials := newTestObserver(backend)
	for i := 0; i < 3; i++ {
		_, err := obs.Confirmation(context.Background(), baseChain(), txHash)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, *dials)

	obs.Close()
	_, err := obs.Confirmation(context.Background(), baseChain(), txHash)
	require.NoError(t, err)
	assert.Equal(t, 2, *dials)
}
