// Package worker consumes job messages and drives them through the crawl
// and persistence pipeline.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/crawler"
	"github.com/statlake/harvester/internal/metrics"
	"github.com/statlake/harvester/internal/queue"
	"github.com/statlake/harvester/internal/scrape"
	"github.com/statlake/harvester/internal/storage"
)

// Config holds the worker tunables.
type Config struct {
	// Prefetch caps unacknowledged deliveries, and with it the number of
	// jobs in flight on this worker.
	Prefetch int
	// CrawlTimeout bounds the whole crawl phase of one job.
	CrawlTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Prefetch <= 0 {
		c.Prefetch = 2
	}
	if c.CrawlTimeout <= 0 {
		c.CrawlTimeout = 5 * time.Minute
	}
	return c
}

// registry is the crawler lookup the worker dispatches through.
type registry interface {
	For(scrape.JobType) ([]crawler.Crawler, error)
}

// Worker binds a queue consumer to the crawl pipeline. Each delivery is
// claimed with a guarded status transition before any work starts, so a
// redelivered message for a job that already ran is dropped instead of run
// twice.
type Worker struct {
	cfg      Config
	service  *scrape.Service
	results  scrape.ResultStore
	queue    queue.Provider
	registry registry
	blobs    storage.BlobStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New constructs a Worker. blobs may be nil to disable snapshot export.
func New(
	cfg Config,
	service *scrape.Service,
	results scrape.ResultStore,
	provider queue.Provider,
	reg registry,
	blobs storage.BlobStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		cfg:      cfg.withDefaults(),
		service:  service,
		results:  results,
		queue:    provider,
		registry: reg,
		blobs:    blobs,
		metrics:  m,
		logger:   logger.Named("worker"),
	}
}

// Run consumes deliveries until ctx is canceled or the broker connection is
// lost.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker starting", zap.Int("prefetch", w.cfg.Prefetch))
	return w.queue.Consume(ctx, w.handle, w.cfg.Prefetch)
}

func (w *Worker) handle(ctx context.Context, msg scrape.Message) queue.Decision {
	w.metrics.BusyWorkers.Inc()
	defer w.metrics.BusyWorkers.Dec()

	log := w.logger.With(
		zap.String("job_id", msg.JobID),
		zap.String("job_type", string(msg.JobType)),
	)

	if err := w.service.MarkRunning(ctx, msg.JobID); err != nil {
		switch {
		case errors.Is(err, scrape.ErrInvalidTransition):
			log.Info("job already claimed or finished, dropping redelivery")
			return queue.Ack
		case errors.Is(err, scrape.ErrNotFound):
			log.Warn("no job row for delivery, dropping")
			return queue.Ack
		default:
			log.Error("claiming job failed", zap.Error(err))
			return queue.Nack
		}
	}

	crawlers, err := w.registry.For(msg.JobType)
	if err != nil {
		return w.fail(ctx, log, msg, err)
	}

	batch, err := w.crawl(ctx, crawlers)
	if err != nil {
		return w.fail(ctx, log, msg, err)
	}

	if err := w.persist(ctx, msg.JobID, batch); err != nil {
		return w.fail(ctx, log, msg, fmt.Errorf("persist results: %w", err))
	}

	if err := w.service.MarkCompleted(ctx, msg.JobID, batch.Len()); err != nil {
		// Results are already stored; redelivering would not help.
		log.Error("completing job failed", zap.Error(err))
		return queue.Ack
	}

	w.metrics.JobsFinished.WithLabelValues(string(msg.JobType), string(scrape.JobStatusCompleted)).Inc()
	w.metrics.RecordsScraped.WithLabelValues(string(msg.JobType)).Add(float64(batch.Len()))
	w.export(ctx, log, msg.JobID)

	log.Info("job completed", zap.Int("records", batch.Len()))
	return queue.Ack
}

// fail records a terminal failure and acknowledges the delivery. Failed jobs
// are not retried automatically; the caller schedules a fresh job instead.
func (w *Worker) fail(ctx context.Context, log *zap.Logger, msg scrape.Message, cause error) queue.Decision {
	log.Warn("job failed", zap.Error(cause))
	if err := w.service.MarkFailed(ctx, msg.JobID, cause.Error()); err != nil {
		log.Error("recording job failure failed", zap.Error(err))
	}
	w.metrics.JobsFinished.WithLabelValues(string(msg.JobType), string(scrape.JobStatusFailed)).Inc()
	return queue.Ack
}

func (w *Worker) crawl(ctx context.Context, crawlers []crawler.Crawler) (crawler.Batch, error) {
	crawlCtx, cancel := context.WithTimeout(ctx, w.cfg.CrawlTimeout)
	defer cancel()

	var batch crawler.Batch
	for _, c := range crawlers {
		start := time.Now()
		out, err := c.Run(crawlCtx)
		w.metrics.CrawlDuration.WithLabelValues(c.Source()).Observe(time.Since(start).Seconds())
		if err != nil {
			return crawler.Batch{}, err
		}
		batch.Merge(out)
	}
	return batch, nil
}

func (w *Worker) persist(ctx context.Context, jobID string, batch crawler.Batch) error {
	if len(batch.Hockey) > 0 {
		if err := w.results.AddHockeyTeams(ctx, jobID, batch.Hockey); err != nil {
			return fmt.Errorf("hockey rows: %w", err)
		}
	}
	if len(batch.Oscar) > 0 {
		if err := w.results.AddOscarFilms(ctx, jobID, batch.Oscar); err != nil {
			return fmt.Errorf("oscar rows: %w", err)
		}
	}
	return nil
}

// export writes a JSON snapshot of the finished job's results to the blob
// store. Export is best effort: a failure is logged but never changes the
// job outcome.
func (w *Worker) export(ctx context.Context, log *zap.Logger, jobID string) {
	if w.blobs == nil {
		return
	}
	results, err := w.service.GetResults(ctx, jobID)
	if err != nil {
		log.Warn("snapshot export skipped, loading results failed", zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Warn("snapshot export skipped, encoding failed", zap.Error(err))
		return
	}
	uri, err := w.blobs.PutObject(ctx, fmt.Sprintf("jobs/%s/results.json", jobID), "application/json", data)
	if err != nil {
		log.Warn("snapshot export failed", zap.Error(err))
		return
	}
	log.Info("result snapshot exported", zap.String("uri", uri))
}
