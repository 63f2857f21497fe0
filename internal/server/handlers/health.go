package handlers

import (
	"net/http"
	"time"

	"github.com/lotwatch/lotwatch/internal/server/response"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// HandleHealth handles GET /health (liveness probe).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":         "healthy",
		"service":        "lotwatch-api",
		"version":        "v1",
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// HandleReady handles GET /api/v1/ready. Readiness requires the store to
// answer a count query.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Vehicles().Count(r.Context(), inventory.StatusActive); err != nil {
		response.ServiceUnavailable(w, "Store not available")
		return
	}

	response.OK(w, map[string]any{
		"status": "ready",
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
		"model_trained": h.predictor != nil && h.predictor.Trained(),
	})
}
