package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lotwatch/lotwatch/pkg/logging"
)

// newSyncCommand creates the one-shot sync command.
func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		Long: `Pull a snapshot from the configured source, reconcile it against the
persisted inventory, retrain the price model, and write predictions.
The run's summary is printed as JSON.`,
		Example: `  # One-shot sync against the configured source
  lotwatch sync

  # Sync from a local snapshot file
  LOTWATCH_SNAPSHOT_PATH=lot.json lotwatch sync`,
		RunE: runSync,
	}
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
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

	pipe, _, err := newPipeline(store)
	if err != nil {
		return err
	}

	result, err := pipe.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
