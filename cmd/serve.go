package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpanzer-aviatrix/speedtest/internal/config"
	"github.com/rpanzer-aviatrix/speedtest/internal/output"
	"github.com/rpanzer-aviatrix/speedtest/internal/server"
)

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the speed-test server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := output.GetLogger("serve")
			cfg, err := config.Load(configPath)
			if err != nil {
				output.PrintError("Failed to load configuration")
				logger.Error().Err(err).Msg("config load failed")
				os.Exit(1)
			}
			srv := server.New(listenAddr, cfg, clientConfig())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info().Str("addr", listenAddr).Msg("server listening")

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("server failed")
					os.Exit(1)
				}
			case <-ctx.Done():
				logger.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown failed")
				}
			}
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "Listen address for the API server")
	return cmd
}
