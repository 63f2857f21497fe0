package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lotwatch/lotwatch/internal/server"
	"github.com/lotwatch/lotwatch/pkg/logging"
)

// newServeCommand creates the serve command.
func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory REST API",
		Long: `Start the lotwatch API server.

The server exposes the inventory, price history, stats, predictions, and
sync control endpoints under /api/v1. When a sync interval is configured
the pipeline also runs periodically in the background.`,
		Example: `  # Serve with defaults (port 8000)
  lotwatch serve

  # Custom port, syncing every 6 hours
  lotwatch serve --port 3000 --sync-interval 6h`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "Server port (overrides config)")
	cmd.Flags().String("host", "", "Bind address (overrides config)")
	cmd.Flags().Duration("sync-interval", 0, "Periodic sync interval (overrides config, 0 disables)")
	cmd.Flags().Bool("sync-on-start", false, "Run one sync before accepting requests")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.Default()

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if interval, _ := cmd.Flags().GetDuration("sync-interval"); interval != 0 {
		cfg.SyncInterval = interval
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("Closing store failed")
		}
	}()

	pipe, predictor, err := newPipeline(store)
	if err != nil {
		return err
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srvCfg.CORSOrigins = cfg.CORSOrigins
	srv := server.New(store, pipe, predictor, srvCfg, logger)

	if syncOnStart, _ := cmd.Flags().GetBool("sync-on-start"); syncOnStart {
		logger.Info().Msg("Running startup sync")
		if _, err := srv.RunSync(ctx); err != nil {
			logger.Error().Err(err).Msg("Startup sync failed")
		}
	}

	srv.StartPeriodicSync(ctx, cfg.SyncInterval)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
		IdleTimeout:  srvCfg.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Dur("sync_interval", cfg.SyncInterval).
			Msg("API server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}
