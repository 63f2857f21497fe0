// Package handlers provides HTTP request handlers for the lotwatch API.
package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lotwatch/lotwatch/internal/server/cache"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/pipeline"
	"github.com/lotwatch/lotwatch/pkg/predict"
)

// SyncFunc runs one full pipeline cycle.
type SyncFunc func(ctx context.Context) (*pipeline.Result, error)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	store     inventory.Store
	predictor *predict.Predictor
	coord     *pipeline.Coordinator
	cache     *cache.Cache
	runSync   SyncFunc
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates a new Handlers instance.
func New(
	store inventory.Store,
	predictor *predict.Predictor,
	coord *pipeline.Coordinator,
	c *cache.Cache,
	runSync SyncFunc,
	logger *zerolog.Logger,
	startTime time.Time,
) *Handlers {
	return &Handlers{
		store:     store,
		predictor: predictor,
		coord:     coord,
		cache:     c,
		runSync:   runSync,
		logger:    logger,
		startTime: startTime,
	}
}
