// Package metrics exposes the Prometheus instrumentation shared by the API
// server and the worker.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector registered by the process.
type Metrics struct {
	JobsCreated    *prometheus.CounterVec
	JobsFinished   *prometheus.CounterVec
	RecordsScraped *prometheus.CounterVec
	CrawlDuration  *prometheus.HistogramVec
	BusyWorkers    prometheus.Gauge
	PublishErrors  prometheus.Counter
}

var (
	once     sync.Once
	instance *Metrics
)

// New returns the process-wide metrics set. Collectors register against the
// default registry, so construction is memoized.
func New() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			JobsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "harvester",
				Name:      "jobs_created_total",
				Help:      "Jobs accepted and enqueued, by job type.",
			}, []string{"type"}),
			JobsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "harvester",
				Name:      "jobs_finished_total",
				Help:      "Jobs driven to a terminal status, by type and outcome.",
			}, []string{"type", "status"}),
			RecordsScraped: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "harvester",
				Name:      "records_scraped_total",
				Help:      "Records persisted from completed crawls, by job type.",
			}, []string{"type"}),
			CrawlDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "harvester",
				Name:      "crawl_duration_seconds",
				Help:      "Wall time of one crawler run.",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
			}, []string{"source"}),
			BusyWorkers: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "harvester",
				Name:      "busy_workers",
				Help:      "Deliveries currently being processed.",
			}),
			PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "harvester",
				Name:      "publish_errors_total",
				Help:      "Failed broker publishes after the job row was stored.",
			}),
		}
	})
	return instance
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
