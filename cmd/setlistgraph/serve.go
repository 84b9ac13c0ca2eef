package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/setlist-graph/pkg/api"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <records.csv>",
		Short: "Run the pipeline once and serve the results over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, m, recs, logger, err := a.prepare(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			res, err := p.Run(ctx, recs)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr: cfg.Server.Address,
				Handler: api.NewRouter(api.NewHandlers(res, logger), api.Options{
					AllowedOrigins: cfg.Server.AllowedOrigins,
					Metrics:        m.Handler(),
				}, logger),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("address", cfg.Server.Address).Msg("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("Shutdown signal received")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info().Msg("Server shutdown complete")
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	_ = a.v.BindPFlag("server.address", cmd.Flags().Lookup("addr"))
	return cmd
}
