package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/api"
)

// newServeCmd runs the API server and the worker in one process. With the
// in-memory providers this is the only way the two halves share state, which
// makes it the natural command for local development.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and the worker in a single process.",
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

			server := api.NewServer(a.Service, a.Ready, a.Logger)
			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 2)
			go func() {
				a.Logger.Info("api server listening", zap.String("addr", httpServer.Addr))
				errCh <- httpServer.ListenAndServe()
			}()
			go func() {
				errCh <- w.Run(ctx)
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}

			a.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("shutdown api server: %w", err)
			}
			return nil
		},
	}
}
