// Package transfer drives cross-chain USDC transfers through their lifecycle.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rail-service/usdc-bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/usdc-bridge/internal/domain/errors"
	"github.com/rail-service/usdc-bridge/internal/domain/services/fees"
	"github.com/rail-service/usdc-bridge/pkg/metrics"
	"github.com/rail-service/usdc-bridge/pkg/retry"
	"github.com/rail-service/usdc-bridge/pkg/tracing"
)

var tracer = tracing.GetTracer("transfer-service")

// Config tunes the orchestrator
type Config struct {
	// MinPollInterval is the shortest gap between two collaborator queries for one transfer.
	MinPollInterval time.Duration
	// ObserveTimeout bounds each chain observer and attestation call.
	ObserveTimeout time.Duration
	// ListLimit caps ListActive results.
	ListLimit int
	// SubmissionTimeout is how long a record may stay initiating before Poll
	// treats it as orphaned and fails it.
	SubmissionTimeout time.Duration
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		MinPollInterval:   5 * time.Second,
		ObserveTimeout:    15 * time.Second,
		ListLimit:         500,
		SubmissionTimeout: 5 * time.Minute,
	}
}

// Dependencies are the collaborators of Service. Locker, Publisher, Retrier,
// Logger and Now fall back to in-process defaults when nil.
type Dependencies struct {
	Chains       ChainRegistry
	Selector     MethodSelector
	Estimator    FeeEstimator
	Store        Store
	Signer       Signer
	Observer     ChainObserver
	Attestations AttestationService
	Locker       Locker
	Publisher    EventPublisher
	Retrier      *retry.Retrier
	Logger       *zap.Logger
	Now          func() time.Time
}

// Service creates and advances transfers. Every mutation of a record happens
// under that record's lock and is persisted only after a complete transition.
type Service struct {
	cfg          Config
	chains       ChainRegistry
	selector     MethodSelector
	estimator    FeeEstimator
	store        Store
	signer       Signer
	observer     ChainObserver
	attestations AttestationService
	locker       Locker
	publisher    EventPublisher
	retrier      *retry.Retrier
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new transfer service
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	switch {
	case deps.Chains == nil:
		return nil, errors.New("transfer service: chain registry is required")
	case deps.Selector == nil:
		return nil, errors.New("transfer service: method selector is required")
	case deps.Estimator == nil:
		return nil, errors.New("transfer service: fee estimator is required")
	case deps.Store == nil:
		return nil, errors.New("transfer service: store is required")
	case deps.Signer == nil:
		return nil, errors.New("transfer service: signer is required")
	case deps.Observer == nil:
		return nil, errors.New("transfer service: chain observer is required")
	case deps.Attestations == nil:
		return nil, errors.New("transfer service: attestation service is required")
	}

	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultConfig().ListLimit
	}
	if cfg.SubmissionTimeout <= 0 {
		cfg.SubmissionTimeout = DefaultConfig().SubmissionTimeout
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = NewKeyedMutex()
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Retrier == nil {
		deps.Retrier = retry.NewRetrier(retry.DefaultPolicy(), deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Service{
		cfg:          cfg,
		chains:       deps.Chains,
		selector:     deps.Selector,
		estimator:    deps.Estimator,
		store:        deps.Store,
		signer:       deps.Signer,
		observer:     deps.Observer,
		attestations: deps.Attestations,
		locker:       deps.Locker,
		publisher:    deps.Publisher,
		retrier:      deps.Retrier,
		logger:       deps.Logger,
		now:          func() time.Time { return deps.Now().UTC() },
	}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, entities.TransferEvent) error { return nil }

// Create validates the request, records the transfer and submits the source
// transaction. Validation failures return before anything is persisted. When the
// signer rejects the submission the failed record is returned together with a
// SubmissionError.
func (s *Service) Create(ctx context.Context, req entities.CreateTransferRequest) (*entities.TransferRecord, error) {
	ctx, span := tracer.Start(ctx, "transfer.Create", trace.WithAttributes(
		attribute.String("source_chain", string(req.SourceChain)),
		attribute.String("destination_chain", string(req.DestinationChain)),
	))
	defer span.End()

	rec, src, dst, err := s.prepare(ctx, req)
	if err != nil {
		s.reject(span, "create", err)
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, rec.ID.String())
	if err != nil {
		return nil, fmt.Errorf("lock transfer: %w", err)
	}
	defer unlock()

	initiating, err := Advance(*rec, Created(), s.now())
	if err != nil {
		s.reject(span, "create", err)
		return nil, err
	}
	if err := s.store.Create(ctx, &initiating); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create transfer: %w", err)
	}
	s.recordTransition(ctx, *rec, initiating)
	metrics.TransfersCreated.WithLabelValues(string(initiating.Method), string(src.ID), string(dst.ID)).Inc()

	s.logger.Info("Transfer created",
		zap.String("transfer_id", initiating.ID.String()),
		zap.String("method", string(initiating.Method)),
		zap.String("source_chain", string(src.ID)),
		zap.String("destination_chain", string(dst.ID)),
		zap.String("amount", initiating.Amount.String()),
		zap.String("final_amount", initiating.FinalAmount.String()))

	intent := entities.TransactionIntent{
		TransferID:       initiating.ID,
		Kind:             entities.IntentInitiate,
		Method:           initiating.Method,
		Chain:            src.ID,
		CounterpartChain: dst.ID,
		USDCAddress:      src.USDCAddress,
		From:             initiating.SignerAddress,
		Recipient:        initiating.RecipientAddress,
		Amount:           initiating.Amount,
	}
	start := time.Now()
	txHash, submitErr := s.signer.Submit(ctx, intent)
	metrics.ObserveCollaborator("signer", "initiate", start, submitErr)

	// The outcome of a submission is recorded even when the caller has gone away.
	writeCtx := context.WithoutCancel(ctx)
	if submitErr != nil {
		span.RecordError(submitErr)
		span.SetStatus(codes.Error, "submission failed")
		failed, err := s.fail(writeCtx, initiating, fmt.Sprintf("source submission failed: %v", submitErr))
		if err != nil {
			return &initiating, domainerrors.SubmissionError("source", errors.Join(submitErr, err))
		}
		return failed, domainerrors.SubmissionError("source", submitErr)
	}

	pending, err := Advance(initiating, Submitted(txHash), s.now())
	if err != nil {
		// The signer returned no hash; nothing was broadcast that we can track.
		failed, ferr := s.fail(writeCtx, initiating, "signer returned no transaction hash")
		if ferr != nil {
			return &initiating, domainerrors.SubmissionError("source", errors.Join(err, ferr))
		}
		return failed, domainerrors.SubmissionError("source", err)
	}
	if err := s.persist(writeCtx, initiating, pending); err != nil {
		s.logger.Error("Failed to record submitted transaction",
			zap.String("transfer_id", pending.ID.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return &initiating, err
	}

	span.SetAttributes(attribute.String("transfer_id", pending.ID.String()), attribute.String("tx_hash", txHash))
	return &pending, nil
}

// prepare runs every synchronous validation and builds the not-started record.
func (s *Service) prepare(ctx context.Context, req entities.CreateTransferRequest) (*entities.TransferRecord, entities.ChainConfig, entities.ChainConfig, error) {
	var none entities.ChainConfig
	if req.SourceChain == req.DestinationChain {
		return nil, none, none, domainerrors.SameChainTransfer(string(req.SourceChain))
	}
	src, err := s.chains.Get(req.SourceChain)
	if err != nil {
		return nil, none, none, err
	}
	dst, err := s.chains.Get(req.DestinationChain)
	if err != nil {
		return nil, none, none, err
	}
	amount, err := fees.ParseAmount(req.Amount)
	if err != nil {
		return nil, none, none, err
	}
	method, err := s.selector.Select(src.ID, dst.ID)
	if err != nil {
		return nil, none, none, err
	}
	estimate, err := s.estimator.Quote(ctx, src.ID, dst.ID, amount, method)
	if err != nil {
		return nil, none, none, err
	}

	signer := req.SignerAddress
	if signer == "" {
		signer, err = s.signer.Address(ctx)
		if err != nil {
			return nil, none, none, domainerrors.SubmissionError("signer", err)
		}
	}
	recipient := req.RecipientAddress
	if recipient == "" {
		recipient = signer
	}

	now := s.now()
	return &entities.TransferRecord{
		ID:               uuid.New(),
		SourceChain:      src.ID,
		DestinationChain: dst.ID,
		Amount:           amount,
		Method:           method,
		Status:           entities.TransferStatusNotStarted,
		SignerAddress:    signer,
		RecipientAddress: recipient,
		EstimatedFee:     estimate,
		FinalAmount:      estimate.FinalAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, src, dst, nil
}

// Poll queries whichever collaborator the record's status is waiting on and
// applies at most one event. It returns the stored record unchanged when nothing
// new is known, when the record is terminal, or when it was polled less than
// MinPollInterval ago. Collaborator failures are returned without failing the
// transfer; only an explicit on-chain failure does that.
func (s *Service) Poll(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	ctx, span := tracer.Start(ctx, "transfer.Poll", trace.WithAttributes(attribute.String("transfer_id", id.String())))
	defer span.End()

	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("lock transfer: %w", err)
	}
	defer unlock()

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	status := string(rec.Status)

	if rec.Status.IsTerminal() {
		metrics.PollOutcomes.WithLabelValues(status, "terminal").Inc()
		return rec, nil
	}
	now := s.now()
	if rec.LastPolledAt != nil && now.Sub(*rec.LastPolledAt) < s.cfg.MinPollInterval {
		metrics.PollOutcomes.WithLabelValues(status, "throttled").Inc()
		return rec, nil
	}

	ev, observed, err := s.observe(ctx, rec, now)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.RecordError(err)
		metrics.PollOutcomes.WithLabelValues(status, "error").Inc()
		s.logger.Warn("Transfer poll failed",
			zap.String("transfer_id", id.String()),
			zap.String("status", status),
			zap.Error(err))
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if !observed {
		if err := s.store.MarkPolled(ctx, id, now); err != nil {
			return nil, fmt.Errorf("mark transfer polled: %w", err)
		}
		polled := *rec
		polled.LastPolledAt = &now
		metrics.PollOutcomes.WithLabelValues(status, "unchanged").Inc()
		return &polled, nil
	}

	next, err := Advance(*rec, ev, now)
	if err != nil {
		s.logger.Warn("Ignoring out-of-order observation",
			zap.String("transfer_id", id.String()),
			zap.String("status", status),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
		metrics.PollOutcomes.WithLabelValues(status, "rejected").Inc()
		return nil, err
	}
	next.LastPolledAt = &now
	if err := s.persist(ctx, *rec, next); err != nil {
		return nil, err
	}
	metrics.PollOutcomes.WithLabelValues(status, "advanced").Inc()
	return &next, nil
}

// observe returns the event implied by the collaborators for rec's status.
// observed is false when nothing new is known.
func (s *Service) observe(ctx context.Context, rec *entities.TransferRecord, now time.Time) (Event, bool, error) {
	switch rec.Status {
	case entities.TransferStatusPending:
		src, err := s.chains.Get(rec.SourceChain)
		if err != nil {
			return Event{}, false, err
		}
		conf, err := s.confirmation(ctx, src, rec.SourceTxHash)
		if err != nil {
			return Event{}, false, err
		}
		switch conf.Status {
		case entities.ConfirmationConfirmed:
			return SourceConfirmed(), true, nil
		case entities.ConfirmationFailed:
			return Failed(failureReason("source transaction", conf)), true, nil
		}
		return Event{}, false, nil

	case entities.TransferStatusConfirming:
		if rec.HasAttestation() {
			return Event{}, false, nil
		}
		src, err := s.chains.Get(rec.SourceChain)
		if err != nil {
			return Event{}, false, err
		}
		att, err := s.fetchAttestation(ctx, rec.Method, src, rec.SourceTxHash)
		if errors.Is(err, domainerrors.ErrAttestationPending) {
			return Event{}, false, nil
		}
		if err != nil {
			return Event{}, false, err
		}
		return Attested(att), true, nil

	case entities.TransferStatusRedeeming:
		dst, err := s.chains.Get(rec.DestinationChain)
		if err != nil {
			return Event{}, false, err
		}
		conf, err := s.confirmation(ctx, dst, rec.RedeemTxHash)
		if err != nil {
			return Event{}, false, err
		}
		switch conf.Status {
		case entities.ConfirmationConfirmed:
			final := rec.FinalAmount
			if conf.Amount != nil {
				final = *conf.Amount
			}
			return DestinationConfirmed(final), true, nil
		case entities.ConfirmationFailed:
			return Failed(failureReason("redemption transaction", conf)), true, nil
		}
		return Event{}, false, nil
	}

	// Initiating: Create holds the lock for the whole submission, so a record
	// still initiating here lost its outcome. Fail it once it is old enough.
	if rec.Status == entities.TransferStatusInitiating && now.Sub(rec.UpdatedAt) >= s.cfg.SubmissionTimeout {
		return Failed(fmt.Sprintf("source submission outcome not recorded within %s", s.cfg.SubmissionTimeout)), true, nil
	}
	return Event{}, false, nil
}

func failureReason(what string, conf entities.Confirmation) string {
	if conf.Reason != "" {
		return what + " failed: " + conf.Reason
	}
	return what + " reverted"
}

func (s *Service) confirmation(ctx context.Context, chain entities.ChainConfig, txHash string) (entities.Confirmation, error) {
	callCtx, cancel := s.observeContext(ctx)
	defer cancel()

	start := time.Now()
	conf, err := s.observer.Confirmation(callCtx, chain, txHash)
	metrics.ObserveCollaborator("chain_observer", string(chain.ID), start, err)
	if err != nil {
		return entities.Confirmation{}, domainerrors.ConfirmationTimeout(string(chain.ID), txHash, err)
	}
	return conf, nil
}

func (s *Service) fetchAttestation(ctx context.Context, method entities.TransferMethod, src entities.ChainConfig, txHash string) (string, error) {
	callCtx, cancel := s.observeContext(ctx)
	defer cancel()

	start := time.Now()
	att, err := s.attestations.Fetch(callCtx, method, src, txHash)
	if errors.Is(err, domainerrors.ErrAttestationPending) {
		metrics.ObserveCollaborator("attestation", string(method), start, nil)
		return "", err
	}
	metrics.ObserveCollaborator("attestation", string(method), start, err)
	if err != nil {
		return "", domainerrors.AttestationUnavailable(txHash, err)
	}
	return att, nil
}

func (s *Service) observeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ObserveTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.ObserveTimeout)
}

// Complete submits the redemption of a transfer whose attestation is known and
// moves it to redeeming, then to completed if the destination already confirms it.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	ctx, span := tracer.Start(ctx, "transfer.Complete", trace.WithAttributes(attribute.String("transfer_id", id.String())))
	defer span.End()

	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("lock transfer: %w", err)
	}
	defer unlock()

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case rec.Status == entities.TransferStatusConfirming && rec.HasAttestation():
	case rec.Status == entities.TransferStatusConfirming:
		err = domainerrors.NotReady("attestation not yet available")
	case rec.Status.IsTerminal() || rec.Status == entities.TransferStatusRedeeming:
		err = domainerrors.InvalidTransition(string(rec.Status), string(EventRedemptionSubmitted))
	default:
		err = domainerrors.NotReady(fmt.Sprintf("transfer is %s", rec.Status))
	}
	if err != nil {
		s.reject(span, "complete", err)
		return nil, err
	}

	src, err := s.chains.Get(rec.SourceChain)
	if err != nil {
		return nil, err
	}
	dst, err := s.chains.Get(rec.DestinationChain)
	if err != nil {
		return nil, err
	}

	intent := entities.TransactionIntent{
		TransferID:       rec.ID,
		Kind:             entities.IntentRedeem,
		Method:           rec.Method,
		Chain:            dst.ID,
		CounterpartChain: src.ID,
		USDCAddress:      dst.USDCAddress,
		From:             rec.SignerAddress,
		Recipient:        rec.RecipientAddress,
		Amount:           rec.FinalAmount,
		SourceTxHash:     rec.SourceTxHash,
		Attestation:      rec.Attestation,
	}
	start := time.Now()
	txHash, err := s.signer.Submit(ctx, intent)
	metrics.ObserveCollaborator("signer", "redeem", start, err)
	if err != nil {
		span.RecordError(err)
		return nil, domainerrors.SubmissionError("redemption", err)
	}

	redeeming, err := Advance(*rec, RedemptionSubmitted(txHash), s.now())
	if err != nil {
		return nil, domainerrors.SubmissionError("redemption", err)
	}
	if err := s.persist(context.WithoutCancel(ctx), *rec, redeeming); err != nil {
		s.logger.Error("Failed to record redemption transaction",
			zap.String("transfer_id", id.String()),
			zap.String("tx_hash", txHash),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Redemption submitted",
		zap.String("transfer_id", id.String()),
		zap.String("destination_chain", string(dst.ID)),
		zap.String("tx_hash", txHash))

	// A redemption that is not confirmed yet is picked up by later polls.
	conf, err := s.confirmation(ctx, dst, txHash)
	if err != nil {
		s.logger.Debug("Redemption not yet observable",
			zap.String("transfer_id", id.String()),
			zap.Error(err))
		return &redeeming, nil
	}
	if conf.Status != entities.ConfirmationConfirmed {
		return &redeeming, nil
	}
	final := redeeming.FinalAmount
	if conf.Amount != nil {
		final = *conf.Amount
	}
	completed, err := Advance(redeeming, DestinationConfirmed(final), s.now())
	if err == nil {
		err = s.persist(ctx, redeeming, completed)
	}
	if err != nil {
		s.logger.Warn("Could not record redemption confirmation",
			zap.String("transfer_id", id.String()),
			zap.Error(err))
		return &redeeming, nil
	}
	return &completed, nil
}

// Fail aborts a non-terminal transfer with an operator supplied reason.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, reason string) (*entities.TransferRecord, error) {
	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("lock transfer: %w", err)
	}
	defer unlock()

	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fail(ctx, *rec, reason)
}

func (s *Service) fail(ctx context.Context, rec entities.TransferRecord, reason string) (*entities.TransferRecord, error) {
	failed, err := Advance(rec, Failed(reason), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, rec, failed); err != nil {
		return nil, err
	}
	s.logger.Warn("Transfer failed",
		zap.String("transfer_id", rec.ID.String()),
		zap.String("previous_status", string(rec.Status)),
		zap.String("reason", reason))
	return &failed, nil
}

// Get returns a transfer by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.TransferRecord, error) {
	return s.store.GetByID(ctx, id)
}

// ListActive returns transfers the poller should revisit, including
// initiating records whose submission outcome may have been lost.
func (s *Service) ListActive(ctx context.Context) ([]*entities.TransferRecord, error) {
	return s.store.ListByStatus(ctx, entities.PollableTransferStatuses, s.cfg.ListLimit)
}

// persist writes next, retrying transient store errors, and publishes the transition.
func (s *Service) persist(ctx context.Context, prev, next entities.TransferRecord) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.store.Update(ctx, &next)
	})
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	s.recordTransition(ctx, prev, next)
	return nil
}

func (s *Service) recordTransition(ctx context.Context, prev, next entities.TransferRecord) {
	if prev.Status == next.Status && prev.Attestation == next.Attestation {
		return
	}
	metrics.TransferTransitions.WithLabelValues(string(next.Method), string(prev.Status), string(next.Status)).Inc()

	event := entities.TransferEvent{
		TransferID: next.ID,
		From:       prev.Status,
		To:         next.Status,
		Method:     next.Method,
		Reason:     next.FailureReason,
		OccurredAt: next.UpdatedAt,
	}
	switch next.Status {
	case entities.TransferStatusPending:
		event.TxHash = next.SourceTxHash
	case entities.TransferStatusRedeeming, entities.TransferStatusCompleted:
		event.TxHash = next.RedeemTxHash
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish transfer event",
			zap.String("transfer_id", next.ID.String()),
			zap.String("to", string(next.Status)),
			zap.Error(err))
	}
}

func (s *Service) reject(span trace.Span, operation string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.TransferRejections.WithLabelValues(operation, domainerrors.GetErrorCode(err)).Inc()
}
