package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ErrMaxRetriesExceeded is returned once every attempt has failed
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy describes how many times and how fast to retry
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // fraction of the delay, 0..1
	// RetryableFunc overrides the default classification.
	RetryableFunc func(error) bool
}

// DefaultPolicy retries three times starting at 200ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// Validate checks the policy is usable
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if p.MaxDelay > 0 && p.InitialDelay > p.MaxDelay {
		return fmt.Errorf("initial delay %s exceeds max delay %s", p.InitialDelay, p.MaxDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %v", p.Multiplier)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("jitter must be within [0,1], got %v", p.Jitter)
	}
	return nil
}

// Backoff computes the wait before each retry
type Backoff struct {
	policy Policy
	rand   func() float64
}

func NewBackoff(policy Policy) *Backoff {
	return &Backoff{policy: policy, rand: rand.Float64}
}

// Calculate returns the delay before the given retry (1-based).
func (b *Backoff) Calculate(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(b.policy.InitialDelay) * math.Pow(b.policy.Multiplier, float64(attempt-1))
	if b.policy.MaxDelay > 0 && delay > float64(b.policy.MaxDelay) {
		delay = float64(b.policy.MaxDelay)
	}
	if b.policy.Jitter > 0 {
		delay += delay * b.policy.Jitter * (2*b.rand() - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

type retryable interface {
	IsRetryable() bool
}

// ShouldRetry is the default classification: context errors never retry,
// errors that declare IsRetryable are trusted, anything else retries.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
