// Package server provides the HTTP server for the lotwatch API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lotwatch/lotwatch/internal/server/cache"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/pipeline"
	"github.com/lotwatch/lotwatch/pkg/predict"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	store     inventory.Store
	pipe      *pipeline.Pipeline
	predictor *predict.Predictor
	cache     *cache.Cache
	logger    *zerolog.Logger
	config    Config
	startTime time.Time
}

// New creates a new server instance with the given configuration.
func New(store inventory.Store, pipe *pipeline.Pipeline, predictor *predict.Predictor, cfg Config, logger *zerolog.Logger) *Server {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/v1"
	}

	return &Server{
		store:     store,
		pipe:      pipe,
		predictor: predictor,
		cache:     cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
	}
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// RunSync runs the full pipeline once and invalidates cached responses on
// success. All periodic, triggered, and blocking syncs go through here so
// the cache never outlives a completed run.
func (s *Server) RunSync(ctx context.Context) (*pipeline.Result, error) {
	result, err := s.pipe.Run(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Flush()
	return result, nil
}

// StartPeriodicSync launches a background loop that runs the pipeline every
// interval until ctx is cancelled. A tick that arrives while a run is still
// in flight is skipped.
func (s *Server) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", interval).Msg("Periodic sync started")
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("Periodic sync stopped")
				return
			case <-ticker.C:
				if s.pipe.Coordinator().Running() {
					s.logger.Warn().Msg("Skipping scheduled sync, previous run still in flight")
					continue
				}
				if _, err := s.RunSync(ctx); err != nil {
					s.logger.Error().Err(err).Msg("Scheduled sync failed")
				}
			}
		}
	}()
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
