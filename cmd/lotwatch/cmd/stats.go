package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/lotwatch/lotwatch/pkg/logging"
	"github.com/lotwatch/lotwatch/pkg/stats"
)

// newStatsCommand creates the stats command.
func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print inventory statistics",
		Long: `Aggregate the persisted inventory into summary statistics: active and
removed counts, price and mileage averages, ranges, and per-make and
per-model breakdowns.`,
		Example: `  # JSON output (default)
  lotwatch stats

  # YAML output
  lotwatch stats --output yaml`,
		RunE: runStats,
	}

	cmd.Flags().StringP("output", "o", "json", "Output format (json, yaml)")
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.Default()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("Closing store failed")
		}
	}()

	snapshot, err := stats.Snapshot(ctx, store.Vehicles())
	if err != nil {
		return fmt.Errorf("aggregating stats: %w", err)
	}

	format, _ := cmd.Flags().GetString("output")
	var out []byte
	switch format {
	case "json":
		out, err = json.MarshalIndent(snapshot, "", "  ")
	case "yaml":
		out, err = yaml.Marshal(snapshot)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
