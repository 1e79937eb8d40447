// Package cmd wires the CLI entry points for the API server and the worker.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/app"
	"github.com/statlake/harvester/internal/config"
	"github.com/statlake/harvester/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Scheduled scraping of sports and film reference data.",
		Long: `harvester schedules crawl jobs over HTTP and executes them
asynchronously through a message queue. The api command serves the scheduling
and read API; the worker command consumes jobs and runs the crawlers.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional)")

	cmd.AddCommand(newAPICmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() error {
	return newRootCmd().Execute()
}

// setup loads config, builds the logger, and initializes the service
// container. The returned context ends on SIGINT/SIGTERM.
func setup(ctx context.Context) (context.Context, context.CancelFunc, *app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build logger: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)

	a, err := app.New(runCtx, cfg, logger)
	if err != nil {
		stop()
		logger.Error("service initialization failed", zap.Error(err))
		return nil, nil, nil, err
	}
	return runCtx, stop, a, nil
}
