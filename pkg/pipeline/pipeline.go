package pipeline

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/logging"
	"github.com/lotwatch/lotwatch/pkg/predict"
	"github.com/lotwatch/lotwatch/pkg/reconcile"
)

// Producer is the snapshot producer contract: one call returns a finite
// batch of candidate vehicle records. VINs may be empty or duplicated;
// the reconciler tolerates both.
type Producer interface {
	Scrape(ctx context.Context) ([]inventory.Vehicle, error)
	Source() string
}

// Result reports what one completed run did.
type Result struct {
	VehiclesScraped int                  `json:"vehicles_scraped"`
	Sync            *inventory.SyncEntry `json:"sync"`
	Training        *predict.Metrics     `json:"training,omitempty"`
	Predicted       int                  `json:"predicted"`
}

// Pipeline wires the snapshot producer, reconciler, and predictor into
// one run. Only the Run method mutates anything, and the coordinator
// ensures there is at most one Run in flight.
type Pipeline struct {
	store      inventory.Store
	producer   Producer
	reconciler *reconcile.Reconciler
	predictor  *predict.Predictor
	coord      *Coordinator
	logger     *zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPredictor enables the train/predict stages.
func WithPredictor(p *predict.Predictor) Option {
	return func(pl *Pipeline) {
		pl.predictor = p
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(pl *Pipeline) {
		if logger != nil {
			pl.logger = logger
		}
	}
}

// New creates a Pipeline. Without WithPredictor, runs stop after the
// sync stage.
func New(store inventory.Store, producer Producer, reconciler *reconcile.Reconciler, opts ...Option) *Pipeline {
	pl := &Pipeline{
		store:      store,
		producer:   producer,
		reconciler: reconciler,
		coord:      NewCoordinator(),
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Coordinator exposes run status for control surfaces.
func (pl *Pipeline) Coordinator() *Coordinator {
	return pl.coord
}

// Run executes one full cycle: scrape, sync, then train and predict
// when a predictor is configured. It returns a ConflictError when a run
// is already active, an UpstreamError when scraping fails (nothing
// written), or a PersistenceError from mid-run store failures (partial
// writes remain; the next successful run heals them). A training or
// prediction failure is logged and skipped, never discarding the
// completed sync.
func (pl *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := pl.coord.Start(); err != nil {
		return nil, err
	}

	result, err := pl.run(ctx)
	if err != nil {
		pl.coord.Fail(err)
		pl.logger.Error().Err(err).Msg("Sync pipeline failed")
		return nil, err
	}
	pl.coord.Finish()
	return result, nil
}

func (pl *Pipeline) run(ctx context.Context) (*Result, error) {
	source := pl.producer.Source()

	pl.logger.Info().Str("source", source).Msg("Pipeline: starting scrape")
	snapshot, err := pl.producer.Scrape(ctx)
	if err != nil {
		return nil, errors.NewUpstreamError(source, "scrape failed", err)
	}
	pl.logger.Info().Int("vehicles", len(snapshot)).Msg("Pipeline: scrape complete")

	pl.coord.Advance(StageSyncing)
	entry, err := pl.reconciler.Run(ctx, snapshot, source)
	if err != nil {
		return nil, err
	}

	result := &Result{VehiclesScraped: len(snapshot), Sync: entry}
	if pl.predictor == nil {
		return result, nil
	}

	pl.coord.Advance(StageTraining)
	active, err := pl.store.Vehicles().List(ctx, inventory.Filter{Status: inventory.StatusActive})
	if err != nil {
		return nil, errors.NewPersistenceError("active scan", err)
	}
	metrics, err := pl.predictor.Train(active)
	if err != nil {
		// Not fatal: small inventories simply go unpredicted.
		pl.logger.Warn().Err(err).Msg("Pipeline: training skipped")
		return result, nil
	}
	result.Training = &metrics
	pl.logger.Info().
		Int("samples", metrics.Samples).
		Float64("mae", metrics.MAE).
		Float64("r2", metrics.R2).
		Msg("Pipeline: training complete")

	pl.coord.Advance(StagePredicting)
	predictions := pl.predictor.PredictBatch(active)
	for _, v := range active {
		predicted, ok := predictions[v.VIN]
		if !ok {
			continue
		}
		actual := predicted
		if v.Price != nil {
			actual = float64(*v.Price)
		}
		err := pl.store.Vehicles().SetPrediction(ctx, v.VIN,
			int(math.Round(predicted)), int(math.Round(predicted-actual)))
		if err != nil {
			return nil, errors.NewPersistenceError("set prediction", err)
		}
		result.Predicted++
	}
	pl.logger.Info().Int("predictions", result.Predicted).Msg("Pipeline: predictions updated")

	return result, nil
}
