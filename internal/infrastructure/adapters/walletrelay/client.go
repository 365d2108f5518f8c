package walletrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/pkg/retry"
)

const defaultTimeout = 30 * time.Second

// Config represents wallet relay configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   retry.Policy
}

// Client signs and broadcasts transactions through a wallet relay service.
// It implements the orchestrator's Signer.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	retrier        *retry.Retrier
	logger         *zap.Logger
}

type walletResponse struct {
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
}

type submitResponse struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("wallet relay base URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.Retry.Multiplier == 0 {
		config.Retry = retry.DefaultPolicy()
	}

	cbSettings := gobreaker.Settings{
		Name:        "WalletRelay",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Wallet-side refusals are answers, not outages.
		IsSuccessful: func(err error) bool {
			var relayErr *ErrorResponse
			return err == nil || (errors.As(err, &relayErr) && !relayErr.IsRetryable())
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Wallet relay circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		retrier:        retry.NewRetrier(config.Retry, logger),
		logger:         logger,
	}, nil
}

// Address returns the connected wallet address or domainerrors.ErrSignerUnavailable.
func (c *Client) Address(ctx context.Context) (string, error) {
	var resp walletResponse
	err := c.doRequest(ctx, http.MethodGet, "/v1/wallet", "", nil, &resp)
	var relayErr *ErrorResponse
	if errors.As(err, &relayErr) && relayErr.IsNotFound() {
		return "", domainerrors.ErrSignerUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("get wallet failed: %w", err)
	}
	if !resp.Connected || resp.Address == "" {
		return "", domainerrors.ErrSignerUnavailable
	}
	return resp.Address, nil
}

// Submit asks the wallet to sign and broadcast intent and returns the tx hash.
// Repeated submissions of the same transfer step share an idempotency key.
func (c *Client) Submit(ctx context.Context, intent entities.TransactionIntent) (string, error) {
	key := fmt.Sprintf("%s:%s", intent.TransferID, intent.Kind)

	var resp submitResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/transactions", key, intent, &resp); err != nil {
		return "", fmt.Errorf("submit %s transaction failed: %w", intent.Kind, err)
	}
	if resp.TxHash == "" {
		return "", fmt.Errorf("submit %s transaction: relay returned no tx hash", intent.Kind)
	}

	c.logger.Info("Transaction submitted",
		zap.String("transfer_id", intent.TransferID.String()),
		zap.String("kind", string(intent.Kind)),
		zap.String("chain", intent.Chain.String()),
		zap.String("tx_hash", resp.TxHash))
	return resp.TxHash, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint, idempotencyKey string, body, response interface{}) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doRequestInternal(ctx, method, endpoint, idempotencyKey, reqBody, response)
		})
	})
	return err
}

func (c *Client) doRequestInternal(ctx context.Context, method, endpoint, idempotencyKey string, reqBody []byte, response interface{}) error {
	fullURL := c.config.BaseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Received wallet relay response",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		errResp := ErrorResponse{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, &errResp) != nil || errResp.Message == "" {
			errResp.Message = string(respBody)
		}
		return &errResp
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
