package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/app"
	"github.com/statlake/harvester/internal/crawler"
	"github.com/statlake/harvester/internal/metrics"
	"github.com/statlake/harvester/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	var metricsPort int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume crawl jobs from the queue and execute them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop, a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()
			defer a.Close()
			defer a.Logger.Sync() //nolint:errcheck // best-effort flush

			w, closeCrawlers := buildWorker(a)
			defer closeCrawlers()

			metricsServer := serveMetrics(metricsPort, a.Logger)
			defer shutdownMetrics(metricsServer, a.Logger)

			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker: %w", err)
			}
			a.Logger.Info("worker stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&metricsPort, "metrics-port", 9090, "port for the worker metrics endpoint")
	return cmd
}

// buildWorker assembles the crawler registry and the consume loop from the
// app's shared services. The returned func releases the headless browser.
func buildWorker(a *app.App) (*worker.Worker, func()) {
	crawlCfg := crawler.Config{
		HockeyURL:         a.Config.Crawler.HockeyURL,
		OscarURL:          a.Config.Crawler.OscarURL,
		UserAgent:         a.Config.Crawler.UserAgent,
		HTTPTimeout:       a.Config.HTTPTimeout(),
		RenderTimeout:     a.Config.RenderTimeout(),
		RenderMaxParallel: a.Config.Crawler.RenderMaxParallel,
		RenderQPS:         a.Config.Crawler.RenderQPS,
	}
	hockey := crawler.NewHockey(crawlCfg, a.Logger)
	oscar := crawler.NewOscar(crawlCfg, a.Logger)

	w := worker.New(
		worker.Config{
			Prefetch:     a.Config.Worker.Prefetch,
			CrawlTimeout: a.Config.CrawlTimeout(),
		},
		a.Service,
		a.Results,
		a.Queue,
		crawler.NewRegistry(hockey, oscar),
		a.Blobs,
		a.Metrics,
		a.Logger,
	)
	return w, oscar.Close
}

func serveMetrics(port int, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return server
}

func shutdownMetrics(server *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}
}
