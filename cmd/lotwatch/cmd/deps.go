package cmd

import (
	"context"
	"fmt"

	"github.com/lotwatch/lotwatch/internal/scrape"
	"github.com/lotwatch/lotwatch/internal/store/memory"
	"github.com/lotwatch/lotwatch/internal/store/postgres"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/logging"
	"github.com/lotwatch/lotwatch/pkg/pipeline"
	"github.com/lotwatch/lotwatch/pkg/predict"
	"github.com/lotwatch/lotwatch/pkg/reconcile"
)

// openStore connects to Postgres when a database URL is configured and
// falls back to the in-memory store otherwise.
func openStore(ctx context.Context) (inventory.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		logging.Default().Info().Msg("Using Postgres store")
		return store, nil
	}
	logging.Default().Warn().Msg("No database URL configured, using in-memory store")
	return memory.New(), nil
}

// newProducer builds the snapshot source from configuration.
func newProducer() (pipeline.Producer, error) {
	switch cfg.SnapshotSource {
	case "file":
		if cfg.SnapshotPath == "" {
			return nil, fmt.Errorf("snapshot source is %q but no snapshot path configured", cfg.SnapshotSource)
		}
		return scrape.NewFileSource(cfg.SnapshotPath), nil
	case "http":
		if cfg.SnapshotURL == "" {
			return nil, fmt.Errorf("snapshot source is %q but no snapshot url configured", cfg.SnapshotSource)
		}
		return scrape.NewHTTPSource(cfg.SnapshotURL), nil
	default:
		return nil, fmt.Errorf("unknown snapshot source %q", cfg.SnapshotSource)
	}
}

// newPipeline wires the producer, reconciler, and predictor over the store.
func newPipeline(store inventory.Store) (*pipeline.Pipeline, *predict.Predictor, error) {
	producer, err := newProducer()
	if err != nil {
		return nil, nil, err
	}

	rec := reconcile.New(store,
		reconcile.WithSnapshotGuard(cfg.GuardFraction),
		reconcile.WithLogger(logging.Default()))
	predictor := predict.New()

	pipe := pipeline.New(store, producer, rec,
		pipeline.WithPredictor(predictor),
		pipeline.WithLogger(logging.Default()))
	return pipe, predictor, nil
}
