package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/lotwatch/lotwatch/internal/server/response"
	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// syncHistoryLimit bounds the history returned by the status endpoint.
const syncHistoryLimit = 10

// HandleSyncStatus handles GET /api/v1/sync/status. It returns the most
// recent sync entry plus a short history of prior runs.
func (h *Handlers) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	last, err := h.store.Syncs().Latest(r.Context())
	if errors.IsNotFound(err) {
		response.OK(w, map[string]any{
			"status":    "never_synced",
			"message":   "No sync yet.",
			"last_sync": nil,
			"history":   []*inventory.SyncEntry{},
		})
		return
	}
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	history, err := h.store.Syncs().Recent(r.Context(), syncHistoryLimit, r.URL.Query().Get("source"))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, map[string]any{
		"status":    "completed",
		"last_sync": last,
		"history":   history,
	})
}

// HandleSyncProgress handles GET /api/v1/sync/progress.
func (h *Handlers) HandleSyncProgress(w http.ResponseWriter, _ *http.Request) {
	status := h.coord.Status()
	response.OK(w, map[string]any{
		"is_syncing": status.Running(),
		"state":      status.State,
		"stage":      status.Stage,
		"reason":     status.Reason,
	})
}

// HandleTriggerSync handles POST /api/v1/sync/trigger. The sync runs in the
// background; if one is already in flight the endpoint reports that instead
// of failing.
func (h *Handlers) HandleTriggerSync(w http.ResponseWriter, _ *http.Request) {
	if h.coord.Running() {
		response.OK(w, map[string]any{
			"status":  "already_running",
			"message": "A sync is already in progress.",
		})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := h.runSync(ctx); err != nil {
			h.logger.Error().Err(err).Msg("Triggered sync failed")
		}
	}()

	response.OK(w, map[string]any{
		"status":  "started",
		"message": "Sync started in background.",
	})
}

// HandleRunSync handles POST /api/v1/sync/run. It blocks until the pipeline
// finishes and returns the run's result; a concurrent run yields 409.
func (h *Handlers) HandleRunSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.runSync(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, result)
}
