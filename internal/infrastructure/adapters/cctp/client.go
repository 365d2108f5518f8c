package cctp

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
)

const (
	defaultTimeout = 30 * time.Second
	maxAttempts    = 4
	userAgent      = "usdc-bridge/1.0"
)

// Config represents CCTP client configuration
type Config struct {
	BaseURL     string
	Environment string // "sandbox" or "mainnet"
	Timeout     time.Duration
	// RetryBaseDelay is the first backoff between attempts; doubles each retry.
	RetryBaseDelay time.Duration
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.BaseURL != "" {
		return
	}
	c.BaseURL = IrisSandboxURL
	if c.Environment == "mainnet" {
		c.BaseURL = IrisMainnetURL
	}
}

// Client talks to Circle's Iris attestation service
type Client struct {
	config  Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger
}

// errRetryable wraps failures worth another attempt.
type errRetryable struct{ err error }

func (e errRetryable) Error() string { return e.err.Error() }
func (e errRetryable) Unwrap() error { return e.err }

func NewClient(config Config, logger *zap.Logger) *Client {
	config.applyDefaults()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "iris",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A 404 only means Iris has not seen the burn yet.
		IsSuccessful: func(err error) bool {
			return err == nil || isNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Iris circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(MaxRequestsPerSecond), 1),
		logger:  logger,
	}
}

// GetMessages fetches the messages and attestations of a burn transaction
func (c *Client) GetMessages(ctx context.Context, sourceDomain uint32, txHash string) (*MessagesResponse, error) {
	path := fmt.Sprintf("/v2/messages/%d?transactionHash=%s", sourceDomain, url.QueryEscape(txHash))

	var out MessagesResponse
	err := c.get(ctx, path, &out)
	switch {
	case isNotFound(err):
		return nil, ErrNoMessages
	case err != nil:
		return nil, fmt.Errorf("get messages failed: %w", err)
	case len(out.Messages) == 0:
		return nil, ErrNoMessages
	}
	return &out, nil
}

// GetFees retrieves the fee tiers for a transfer between domains
func (c *Client) GetFees(ctx context.Context, sourceDomain, destDomain uint32) ([]FeeTier, error) {
	var tiers []FeeTier
	if err := c.get(ctx, fmt.Sprintf("/v2/burn/USDC/fees/%d/%d", sourceDomain, destDomain), &tiers); err != nil {
		return nil, fmt.Errorf("get fees failed: %w", err)
	}
	return tiers, nil
}

// get runs a rate-limited GET behind the breaker, retrying transport
// failures, 429 and 5xx with exponential backoff.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	_, err := c.breaker.Execute(func() (any, error) {
		delay := c.config.RetryBaseDelay
		var err error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err = c.attempt(ctx, path, out); err == nil {
				return nil, nil
			}
			var retry errRetryable
			if !errors.As(err, &retry) {
				return nil, err
			}
			c.logger.Debug("Iris request failed, retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt == maxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		return nil, errors.Unwrap(err)
	})
	return err
}

func (c *Client) attempt(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errRetryable{fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errRetryable{fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return errRetryable{&ErrorResponse{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &ErrorResponse{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
