package server

import (
	"net/http"
	"strings"

	"github.com/lotwatch/lotwatch/internal/server/handlers"
	"github.com/lotwatch/lotwatch/internal/server/middleware"
	"github.com/lotwatch/lotwatch/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.store,
		s.predictor,
		s.pipe.Coordinator(),
		s.cache,
		s.RunSync,
		s.logger,
		s.startTime,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/ready", h.HandleReady)

	// Vehicle listing endpoints
	mux.HandleFunc(prefix+"/vehicles", requireGet(h.HandleListVehicles))
	mux.HandleFunc(prefix+"/vehicles/search", requireGet(h.HandleListVehicles))
	mux.HandleFunc(prefix+"/vehicles/stats", requireGet(h.HandleStats))

	// Per-vehicle endpoints: /vehicles/{vin}[/price-history|/predict]
	mux.HandleFunc(prefix+"/vehicles/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			response.MethodNotAllowed(w, r.Method)
			return
		}

		parts := splitPath(strings.TrimPrefix(r.URL.Path, prefix+"/vehicles/"))
		if len(parts) == 0 {
			response.BadRequest(w, "VIN required", "")
			return
		}

		vin := parts[0]
		switch {
		case len(parts) == 1:
			h.HandleGetVehicle(w, r, vin)
		case len(parts) == 2 && parts[1] == "price-history":
			h.HandlePriceHistory(w, r, vin)
		case len(parts) == 2 && parts[1] == "predict":
			h.HandlePredict(w, r, vin)
		default:
			response.NotFound(w, "Not found", "")
		}
	})

	// Model endpoints
	mux.HandleFunc(prefix+"/ml/summary", requireGet(h.HandleModelSummary))
	mux.HandleFunc(prefix+"/ml/predictions", requireGet(h.HandleAllPredictions))

	// Sync endpoints
	mux.HandleFunc(prefix+"/sync/status", requireGet(h.HandleSyncStatus))
	mux.HandleFunc(prefix+"/sync/progress", requireGet(h.HandleSyncProgress))
	mux.HandleFunc(prefix+"/sync/trigger", requirePost(h.HandleTriggerSync))
	mux.HandleFunc(prefix+"/sync/run", requirePost(h.HandleRunSync))
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	handler = middleware.Logger(s.logger)(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}

func requireGet(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			response.MethodNotAllowed(w, r.Method)
			return
		}
		next(w, r)
	}
}

func requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			response.MethodNotAllowed(w, r.Method)
			return
		}
		next(w, r)
	}
}

// splitPath splits a URL path into parts, removing empty strings.
func splitPath(path string) []string {
	parts := []string{}
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
