// Package di wires the bridge service from configuration.
package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/rail-service/usdc-bridge/internal/api/handlers"
	"github.com/rail-service/usdc-bridge/internal/domain/services/chains"
	"github.com/rail-service/usdc-bridge/internal/domain/services/fees"
	"github.com/rail-service/usdc-bridge/internal/domain/services/routing"
	"github.com/rail-service/usdc-bridge/internal/domain/services/transfer"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/adapters"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/adapters/cctp"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/adapters/evm"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/adapters/solana"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/adapters/walletrelay"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/adapters/wormhole"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/cache"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/chaincatalog"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/config"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/database"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/events"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/repositories"
	transferpoller "github.com/rail-service/usdc-bridge/internal/workers/transfer_poller"
	"github.com/rail-service/usdc-bridge/pkg/idempotency"
	"github.com/rail-service/usdc-bridge/pkg/logger"
	"github.com/rail-service/usdc-bridge/pkg/retry"
)

// Container holds every long-lived component of the service
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	// DB is nil with the memory store; Redis is nil when locking is in-process.
	DB    *sqlx.DB
	Redis *redis.Client

	Chains          *chains.Registry
	Selector        *routing.Selector
	Estimator       *fees.Estimator
	TransferService *transfer.Service
	Poller          *transferpoller.Worker
	Idempotency     idempotency.Store

	observer  *evm.Observer
	publisher transfer.EventPublisher
}

// NewContainer builds the container. On error everything opened so far is closed.
func NewContainer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}
	built := false
	defer func() {
		if !built {
			_ = c.Close()
		}
	}()
	zlog := log.Zap()

	var err error
	c.Chains, err = chains.Load(ctx, chaincatalog.Source(cfg.Chains.CatalogFile))
	if err != nil {
		return nil, fmt.Errorf("load chain catalog: %w", err)
	}
	c.Selector = routing.NewSelector(c.Chains)

	schedule, err := BuildFeeSchedule(cfg.Chains.Fees)
	if err != nil {
		return nil, err
	}

	cctpAttester := cctp.NewAttester(cctp.NewClient(cctp.Config{
		BaseURL:     cfg.Circle.IrisURL,
		Environment: cfg.Circle.Environment,
		Timeout:     seconds(cfg.Transfer.ObserveTimeout),
	}, zlog), zlog)

	var quoter fees.BridgeFeeQuoter
	if cfg.Circle.LiveFees {
		quoter = cctpAttester
	}
	c.Estimator, err = fees.NewEstimator(c.Chains, schedule, quoter, zlog)
	if err != nil {
		return nil, err
	}

	store, err := c.buildStore(cfg)
	if err != nil {
		return nil, err
	}
	locker, err := c.buildLocker(cfg)
	if err != nil {
		return nil, err
	}
	c.Idempotency = idempotency.NewMemoryStore()
	if c.Redis != nil {
		c.Idempotency = idempotency.NewRedisStore(c.Redis)
	}
	c.publisher, err = buildPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	signer, err := walletrelay.NewClient(walletrelay.Config{
		BaseURL: cfg.Signer.BaseURL,
		APIKey:  cfg.Signer.APIKey,
		Timeout: seconds(cfg.Signer.Timeout),
	}, zlog)
	if err != nil {
		return nil, fmt.Errorf("create signer client: %w", err)
	}

	wormholeAttester := wormhole.NewAttester(wormhole.NewClient(wormhole.Config{
		BaseURL:     cfg.Wormhole.APIURL,
		Environment: cfg.Wormhole.Environment,
		Timeout:     seconds(cfg.Transfer.ObserveTimeout),
	}, zlog), zlog)

	c.observer = evm.NewObserver(nil, zlog)
	solanaObserver := solana.NewObserver(solana.Config{
		Timeout:          seconds(cfg.Transfer.ObserveTimeout),
		RequireFinalized: cfg.Solana.RequireFinalized,
	}, zlog)

	c.TransferService, err = transfer.NewService(transfer.Config{
		MinPollInterval:   seconds(cfg.Transfer.MinPollInterval),
		ObserveTimeout:    seconds(cfg.Transfer.ObserveTimeout),
		ListLimit:         cfg.Transfer.ListLimit,
		SubmissionTimeout: seconds(cfg.Transfer.SubmissionTimeout),
	}, transfer.Dependencies{
		Chains:       c.Chains,
		Selector:     c.Selector,
		Estimator:    c.Estimator,
		Store:        store,
		Signer:       signer,
		Observer:     adapters.NewObserverRouter(c.observer, solanaObserver),
		Attestations: adapters.NewAttestationRouter(cctpAttester, wormholeAttester),
		Locker:       locker,
		Publisher:    c.publisher,
		Retrier:      retry.NewRetrier(retry.DefaultPolicy(), zlog),
		Logger:       zlog,
	})
	if err != nil {
		return nil, err
	}

	c.Poller = transferpoller.NewWorker(c.TransferService, &transferpoller.Config{
		Schedule:    cfg.Transfer.PollSchedule,
		Concurrency: cfg.Transfer.PollConcurrency,
		AutoRedeem:  cfg.Transfer.AutoRedeem,
	}, log)

	log.Info("Container initialized",
		"chains", c.Chains.Len(),
		"storage", cfg.Storage.Driver,
		"redis_lock", c.Redis != nil,
		"kafka", cfg.Kafka.Enabled,
		"live_fees", cfg.Circle.LiveFees)
	built = true
	return c, nil
}

func (c *Container) buildStore(cfg *config.Config) (transfer.Store, error) {
	if cfg.Storage.Driver == "memory" {
		c.Logger.Warn("Using in-memory transfer store; transfers are lost on restart")
		return repositories.NewMemoryTransferRepository(), nil
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.DB = db
	if err := database.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repositories.NewTransferRepository(db), nil
}

func (c *Container) buildLocker(cfg *config.Config) (transfer.Locker, error) {
	if !cfg.Redis.Enabled {
		return transfer.NewKeyedMutex(), nil
	}
	client, err := cache.NewRedisClient(cfg.Redis, c.Logger.Zap())
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.Redis = client
	return cache.NewRedisLocker(client, seconds(cfg.Redis.LockTTL), c.Logger.Zap()), nil
}

func buildPublisher(cfg *config.Config, log *logger.Logger) (transfer.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return events.NewLogPublisher(log.Zap()), nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.Topic, log.Zap())
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// ReadinessChecks returns one check per external dependency in use.
func (c *Container) ReadinessChecks() map[string]handlers.ReadinessCheck {
	checks := map[string]handlers.ReadinessCheck{}
	if c.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			return database.HealthCheck(ctx, c.DB)
		}
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases every connection held by the container.
func (c *Container) Close() error {
	var errs []error
	if c.observer != nil {
		c.observer.Close()
	}
	if closer, ok := c.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ShutdownTimeout is how long in-flight work may drain on shutdown.
func (c *Container) ShutdownTimeout() time.Duration {
	return seconds(c.Config.Server.WriteTimeout)
}
