// Package cmd implements the lotwatch command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lotwatch/lotwatch/internal/config"
	"github.com/lotwatch/lotwatch/pkg/logging"
)

var (
	configFile string
	cfg        *config.Config

	// Version is the build version set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lotwatch",
	Short: "Dealership inventory reconciliation engine",
	Long: `Lotwatch tracks a dealership's vehicle inventory over time. Each sync
pulls a fresh snapshot of the lot, reconciles it against the persisted
inventory (additions, field-level updates, removals), appends price
changes to a per-vehicle ledger, and retrains a price model over the
active fleet.

State lives in Postgres when a database URL is configured, or in memory
for local experiments.`,
	PersistentPreRunE: setup,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./lotwatch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "",
		"log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSyncCommand())
	rootCmd.AddCommand(newStatsCommand())
}

// setup loads configuration and configures logging before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	if cfg.LogFormat != "" {
		logCfg.Format = cfg.LogFormat
	}
	logging.Configure(logCfg)

	return nil
}
