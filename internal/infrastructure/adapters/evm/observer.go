package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/pkg/usdc"
)

var ErrInvalidTxHash = errors.New("invalid EVM transaction hash")

// transferTopic is keccak256("Transfer(address,address,uint256)").
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Backend is the subset of ethclient.Client the observer needs.
type Backend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Dialer opens a Backend for an RPC endpoint.
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// DialEthclient connects with go-ethereum's ethclient.
func DialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Observer reports receipt status and confirmation depth on EVM chains.
// One backend is kept per chain and dialed on first use.
type Observer struct {
	dial     Dialer
	logger   *zap.Logger
	mu       sync.Mutex
	backends map[entities.ChainID]Backend
}

func NewObserver(dial Dialer, logger *zap.Logger) *Observer {
	if dial == nil {
		dial = DialEthclient
	}
	return &Observer{
		dial:     dial,
		logger:   logger,
		backends: make(map[entities.ChainID]Backend),
	}
}

// Confirmation looks up the receipt of txHash on chain.
func (o *Observer) Confirmation(ctx context.Context, chain entities.ChainConfig, txHash string) (entities.Confirmation, error) {
	hash, err := parseTxHash(txHash)
	if err != nil {
		return entities.Confirmation{}, err
	}

	backend, err := o.backend(ctx, chain)
	if err != nil {
		return entities.Confirmation{}, err
	}

	receipt, err := backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return entities.Confirmation{Status: entities.ConfirmationPending, Reason: "not yet mined"}, nil
	}
	if err != nil {
		return entities.Confirmation{}, fmt.Errorf("get receipt on %s: %w", chain.ID, err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return entities.Confirmation{
			Status:      entities.ConfirmationFailed,
			BlockNumber: receipt.BlockNumber.Uint64(),
			Reason:      "transaction reverted",
		}, nil
	}

	head, err := backend.BlockNumber(ctx)
	if err != nil {
		return entities.Confirmation{}, fmt.Errorf("get block number on %s: %w", chain.ID, err)
	}

	block := receipt.BlockNumber.Uint64()
	var depth uint64
	if head >= block {
		depth = head - block + 1
	}

	required := chain.Confirmations
	if required == 0 {
		required = 1
	}

	conf := entities.Confirmation{
		Status:        entities.ConfirmationPending,
		BlockNumber:   block,
		Confirmations: depth,
	}
	if depth < required {
		conf.Reason = fmt.Sprintf("%d/%d confirmations", depth, required)
		return conf, nil
	}

	conf.Status = entities.ConfirmationConfirmed
	if minted, ok := mintedAmount(receipt, chain.USDCAddress, chain.WrappedUSDCAddress); ok {
		conf.Amount = &minted
	}
	o.logger.Debug("EVM transaction confirmed",
		zap.String("chain", chain.ID.String()),
		zap.String("tx_hash", txHash),
		zap.Uint64("block", block),
		zap.Uint64("confirmations", depth))
	return conf, nil
}

// Close releases every dialed backend.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, b := range o.backends {
		if c, ok := b.(interface{ Close() }); ok {
			c.Close()
		}
		delete(o.backends, id)
	}
}

func (o *Observer) backend(ctx context.Context, chain entities.ChainConfig) (Backend, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if b, ok := o.backends[chain.ID]; ok {
		return b, nil
	}
	b, err := o.dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", chain.ID, err)
	}
	o.backends[chain.ID] = b
	return b, nil
}

func parseTxHash(txHash string) (common.Hash, error) {
	raw, err := hexutil.Decode(txHash)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidTxHash, txHash)
	}
	return common.BytesToHash(raw), nil
}

// mintedAmount sums Transfer events from the zero address emitted by any of
// the given token contracts: native USDC for CCTP mints, the wrapped token for
// Wormhole redemptions. Both carry 6 decimals.
func mintedAmount(receipt *types.Receipt, tokenAddresses ...string) (usdc.Amount, bool) {
	tokens := make(map[common.Address]bool, len(tokenAddresses))
	for _, addr := range tokenAddresses {
		if common.IsHexAddress(addr) {
			tokens[common.HexToAddress(addr)] = true
		}
	}
	if len(tokens) == 0 {
		return usdc.Zero, false
	}

	total := new(big.Int)
	found := false
	for _, lg := range receipt.Logs {
		if !tokens[lg.Address] || len(lg.Topics) != 3 || lg.Topics[0] != transferTopic {
			continue
		}
		if common.BytesToAddress(lg.Topics[1].Bytes()) != (common.Address{}) {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(lg.Data))
		found = true
	}
	if !found || !total.IsInt64() {
		return usdc.Zero, false
	}
	return usdc.FromUnits(total.Int64()), true
}
