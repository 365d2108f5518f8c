package wormhole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rail-service/usdc-bridge/pkg/retry"
)

const (
	MainnetURL = "https://api.wormholescan.io"
	TestnetURL = "https://api.testnet.wormholescan.io"

	defaultTimeout       = 20 * time.Second
	maxRequestsPerSecond = 10
)

var ErrNoOperations = errors.New("wormholescan: no operations for transaction")

// APIError is a non-2xx response from Wormholescan
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wormholescan error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed if repeated.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type Config struct {
	BaseURL     string
	Environment string // "testnet" or "mainnet"
	Timeout     time.Duration
	Retry       retry.Policy
}

// Client queries the Wormholescan API for operations and their signed VAAs
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	retrier        *retry.Retrier
	logger         *zap.Logger
}

func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.BaseURL == "" {
		if config.Environment == "mainnet" {
			config.BaseURL = MainnetURL
		} else {
			config.BaseURL = TestnetURL
		}
	}
	if config.Retry.Multiplier == 0 {
		config.Retry = retry.DefaultPolicy()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "WormholeAPI",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			return err == nil || errors.Is(err, ErrNoOperations) || (errors.As(err, &apiErr) && !apiErr.IsRetryable())
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Wormhole circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: cb,
		rateLimiter:    rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 2),
		retrier:        retry.NewRetrier(config.Retry, logger),
		logger:         logger,
	}
}

// GetOperations returns the cross-chain operations emitted by txHash.
func (c *Client) GetOperations(ctx context.Context, txHash string) ([]Operation, error) {
	endpoint := "/api/v1/operations?txHash=" + url.QueryEscape(txHash)

	var resp OperationsResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNoOperations
		}
		return nil, fmt.Errorf("get operations: %w", err)
	}
	if len(resp.Operations) == 0 {
		return nil, ErrNoOperations
	}
	return resp.Operations, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			return c.doGet(ctx, endpoint, out)
		})
	})
	return err
}

func (c *Client) doGet(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
