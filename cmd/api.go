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

func newAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the job scheduling and results API.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop, a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()
			defer a.Close()
			defer a.Logger.Sync() //nolint:errcheck // best-effort flush

			server := api.NewServer(a.Service, a.Ready, a.Logger)
			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.Config.Server.Port),
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("api server listening", zap.String("addr", httpServer.Addr))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("api server: %w", err)
			case <-ctx.Done():
			}

			a.Logger.Info("shutting down api server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("shutdown api server: %w", err)
			}
			return nil
		},
	}
}
