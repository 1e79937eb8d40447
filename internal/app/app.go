// Package app initializes and holds the long-lived application services,
// acting as the dependency injection container for both processes.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/clock/system"
	"github.com/statlake/harvester/internal/config"
	"github.com/statlake/harvester/internal/id/uuid"
	"github.com/statlake/harvester/internal/metrics"
	"github.com/statlake/harvester/internal/queue"
	queuemem "github.com/statlake/harvester/internal/queue/memory"
	"github.com/statlake/harvester/internal/scrape"
	"github.com/statlake/harvester/internal/storage"
	"github.com/statlake/harvester/internal/storage/local"
	storagemem "github.com/statlake/harvester/internal/storage/memory"
	"github.com/statlake/harvester/internal/storage/postgres"
)

// App holds the shared services selected by configuration. It is built once
// at startup and handed to the process entry points.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Jobs    scrape.JobStore
	Results scrape.ResultStore
	Queue   queue.Provider
	Blobs   storage.BlobStore
	Service *scrape.Service

	pool    *pgxpool.Pool
	closers []func() error
}

// New instantiates every provider named in cfg, failing fast on the first
// one that cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := a.initStores(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err := a.initQueue(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initBlobs(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	a.Service = scrape.NewService(a.Jobs, a.Results, a.Queue, uuid.New(), system.New(), logger)

	logger.Info("application services initialized",
		zap.String("db", cfg.DB.Driver),
		zap.String("queue", cfg.Queue.Provider),
		zap.String("export", cfg.Export.Provider),
	)
	return a, nil
}

func (a *App) initStores(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	switch cfg.DB.Driver {
	case "postgres":
		logger.Info("connecting to postgres")
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        int32(cfg.DB.MaxConns),
			MinConns:        int32(cfg.DB.MinConns),
			MaxConnLifetime: cfg.ConnLifetime(),
		})
		if err != nil {
			return fmt.Errorf("init postgres pool: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		jobs, err := postgres.NewJobStore(pool)
		if err != nil {
			return fmt.Errorf("init job store: %w", err)
		}
		results, err := postgres.NewResultStore(pool)
		if err != nil {
			return fmt.Errorf("init result store: %w", err)
		}
		a.Jobs, a.Results = jobs, results
	case "memory":
		a.Jobs = storagemem.NewJobStore()
		a.Results = storagemem.NewResultStore()
	default:
		return fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
	return nil
}

func (a *App) initQueue(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	switch cfg.Queue.Provider {
	case "pubsub":
		logger.Info("connecting to pub/sub",
			zap.String("topic", cfg.Queue.TopicID),
			zap.String("subscription", cfg.Queue.SubscriptionID),
		)
		provider, err := queue.NewPubSubProvider(ctx, queue.PubSubConfig{
			ProjectID:      cfg.Queue.ProjectID,
			TopicID:        cfg.Queue.TopicID,
			SubscriptionID: cfg.Queue.SubscriptionID,
		}, logger)
		if err != nil {
			return fmt.Errorf("init pub/sub: %w", err)
		}
		a.Queue = provider
		a.closers = append(a.closers, provider.Close)
	case "memory":
		broker := queuemem.NewBroker(cfg.Queue.BufferSize)
		a.Queue = broker
		a.closers = append(a.closers, broker.Close)
	case "noop":
		a.Queue = queue.NoOpProvider{}
	default:
		return fmt.Errorf("unknown queue provider %q", cfg.Queue.Provider)
	}
	return nil
}

func (a *App) initBlobs(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	switch cfg.Export.Provider {
	case "gcs":
		store, err := storage.NewGCSBlobStore(ctx, cfg.Export.GCSBucket, logger)
		if err != nil {
			return fmt.Errorf("init gcs blob store: %w", err)
		}
		a.Blobs = store
		a.closers = append(a.closers, store.Close)
	case "local":
		store, err := local.New(cfg.Export.LocalDir)
		if err != nil {
			return fmt.Errorf("init local blob store: %w", err)
		}
		a.Blobs = store
	case "memory":
		a.Blobs = storagemem.NewBlobStore()
	case "noop":
		a.Blobs = storage.NoOpBlobStore{}
	default:
		return fmt.Errorf("unknown export provider %q", cfg.Export.Provider)
	}
	return nil
}

// Ready reports whether the relational store is reachable. For the in-memory
// driver it always succeeds.
func (a *App) Ready(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Close releases every provider in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("closing service failed", zap.Error(err))
		}
	}
	a.closers = nil
}
