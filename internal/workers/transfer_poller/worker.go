package transfer_poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	"github.com/rail-service/usdc-bridge/pkg/logger"
	"github.com/rail-service/usdc-bridge/pkg/metrics"
	"github.com/rail-service/usdc-bridge/pkg/tracing"
)

// TransferService is the part of the orchestrator the poller drives
type TransferService interface {
	ListActive(ctx context.Context) ([]*entities.TransferRecord, error)
	Poll(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error)
	Complete(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error)
}

// Config holds worker configuration
type Config struct {
	// Schedule is a cron spec, e.g. "@every 15s".
	Schedule    string
	Concurrency int
	// RunTimeout bounds one pass over the active transfers.
	RunTimeout time.Duration
	// AutoRedeem submits the redemption as soon as an attestation is recorded.
	AutoRedeem bool
}

// DefaultConfig returns default worker configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule:    "@every 15s",
		Concurrency: 8,
		RunTimeout:  2 * time.Minute,
		AutoRedeem:  false,
	}
}

// RunResult summarises one pass
type RunResult struct {
	Active   int
	Advanced int
	Redeemed int
	Failed   int
}

// Worker periodically polls every non-terminal transfer.
type Worker struct {
	service TransferService
	config  Config
	cron    *cron.Cron
	logger  *logger.Logger

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	started bool
}

// NewWorker creates a new transfer poller
func NewWorker(service TransferService, config *Config, logger *logger.Logger) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultConfig().RunTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		service: service,
		config:  cfg,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start schedules the poll pass. Overlapping passes are skipped.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("transfer poller already started")
	}

	if _, err := w.cron.AddFunc(w.config.Schedule, w.tick); err != nil {
		return fmt.Errorf("schedule transfer poller: %w", err)
	}
	w.cron.Start()
	w.started = true

	w.logger.Info("Transfer poller started",
		"schedule", w.config.Schedule,
		"concurrency", w.config.Concurrency,
		"auto_redeem", w.config.AutoRedeem)
	return nil
}

// Stop stops scheduling and cancels any pass in flight.
func (w *Worker) Stop() {
	done := w.cron.Stop()
	w.cancel()
	<-done.Done()
	w.logger.Info("Transfer poller stopped")
}

// Shutdown waits up to timeout for the running pass, then cancels it.
func (w *Worker) Shutdown(timeout time.Duration) error {
	done := w.cron.Stop()
	defer w.cancel()

	select {
	case <-done.Done():
		w.logger.Info("Transfer poller stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("transfer poller did not stop within %s", timeout)
	}
}

func (w *Worker) tick() {
	ctx, cancel := context.WithTimeout(w.baseCtx, w.config.RunTimeout)
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("Transfer poll pass failed", "error", err)
	}
}

// RunOnce polls every active transfer once with bounded concurrency.
func (w *Worker) RunOnce(ctx context.Context) (RunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "transfer_poller.run")
	defer span.End()

	transfers, err := w.service.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		return RunResult{}, fmt.Errorf("list active transfers: %w", err)
	}
	metrics.ActiveTransfers.Set(float64(len(transfers)))
	if len(transfers) == 0 {
		w.logger.Debug("No active transfers")
		return RunResult{}, nil
	}

	var advanced, redeemed, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(w.config.Concurrency)

	for _, rec := range transfers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome := w.process(ctx, rec)
			switch outcome {
			case outcomeAdvanced:
				advanced.Add(1)
			case outcomeRedeemed:
				advanced.Add(1)
				redeemed.Add(1)
			case outcomeError:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := RunResult{
		Active:   len(transfers),
		Advanced: int(advanced.Load()),
		Redeemed: int(redeemed.Load()),
		Failed:   int(failed.Load()),
	}
	w.logger.Info("Transfer poll pass completed",
		"active", result.Active,
		"advanced", result.Advanced,
		"redeemed", result.Redeemed,
		"errors", result.Failed)
	return result, ctx.Err()
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeAdvanced
	outcomeRedeemed
	outcomeError
)

func (w *Worker) process(ctx context.Context, rec *entities.TransferRecord) outcome {
	updated, err := w.service.Poll(ctx, rec.ID)
	if err != nil {
		if ctx.Err() != nil {
			return outcomeUnchanged
		}
		w.logger.Warn("Failed to poll transfer",
			"transfer_id", rec.ID,
			"status", rec.Status,
			"error", err)
		return outcomeError
	}

	result := outcomeUnchanged
	if updated.Status != rec.Status || updated.Attestation != rec.Attestation {
		result = outcomeAdvanced
		w.logger.Info("Transfer advanced",
			"transfer_id", rec.ID,
			"from", rec.Status,
			"to", updated.Status)
	}

	if !w.config.AutoRedeem || updated.Status != entities.TransferStatusConfirming || !updated.HasAttestation() {
		return result
	}

	redeemed, err := w.service.Complete(ctx, rec.ID)
	if err != nil {
		if ctx.Err() != nil {
			return result
		}
		w.logger.Warn("Failed to redeem transfer",
			"transfer_id", rec.ID,
			"error", err)
		return outcomeError
	}
	w.logger.Info("Transfer redemption submitted",
		"transfer_id", rec.ID,
		"status", redeemed.Status,
		"redeem_tx_hash", redeemed.RedeemTxHash)
	return outcomeRedeemed
}
