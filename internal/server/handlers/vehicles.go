package handlers

import (
	"net/http"

	"github.com/lotwatch/lotwatch/internal/server/filter"
	"github.com/lotwatch/lotwatch/internal/server/response"
	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/stats"
)

// HandleListVehicles handles GET /api/v1/vehicles and
// GET /api/v1/vehicles/search. Both accept the same filter, sort, and
// pagination query parameters.
func (h *Handlers) HandleListVehicles(w http.ResponseWriter, r *http.Request) {
	params, err := filter.ParseVehicleParams(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	cacheKey := "vehicles:" + r.URL.RawQuery
	if cached, found := h.cache.Get(cacheKey); found {
		response.OK(w, cached)
		return
	}

	vehicles, err := h.store.Vehicles().List(r.Context(), params.Filter)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	page, total := params.Page(vehicles)

	result := map[string]any{
		"vehicles": page,
		"pagination": map[string]any{
			"total":  total,
			"limit":  params.Limit,
			"offset": params.Offset,
			"count":  len(page),
		},
	}

	h.cache.Set(cacheKey, result)
	response.OK(w, result)
}

// HandleGetVehicle handles GET /api/v1/vehicles/{vin}.
func (h *Handlers) HandleGetVehicle(w http.ResponseWriter, r *http.Request, vin string) {
	vehicle, err := h.store.Vehicles().Get(r.Context(), vin)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, vehicle)
}

// HandleStats handles GET /api/v1/vehicles/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if cached, found := h.cache.Get("stats"); found {
		response.OK(w, cached)
		return
	}

	snapshot, err := stats.Snapshot(r.Context(), h.store.Vehicles())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.cache.Set("stats", snapshot)
	response.OK(w, snapshot)
}

// HandlePriceHistory handles GET /api/v1/vehicles/{vin}/price-history.
func (h *Handlers) HandlePriceHistory(w http.ResponseWriter, r *http.Request, vin string) {
	vehicle, err := h.store.Vehicles().Get(r.Context(), vin)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	history, err := h.store.Prices().History(r.Context(), vin)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, map[string]any{
		"vin":           vehicle.VIN,
		"title":         vehicle.Title,
		"current_price": vehicle.Price,
		"history":       history,
	})
}

// HandlePredict handles GET /api/v1/vehicles/{vin}/predict. Returns 503
// until a sync has trained the model, and 422 for vehicles missing the
// attributes the model needs.
func (h *Handlers) HandlePredict(w http.ResponseWriter, r *http.Request, vin string) {
	vehicle, err := h.store.Vehicles().Get(r.Context(), vin)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	if h.predictor == nil || !h.predictor.Trained() {
		response.ServiceUnavailable(w, "Price model not trained yet. Run a sync first.")
		return
	}

	predicted, err := h.predictor.Predict(vehicle)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidInput) {
			response.UnprocessableEntity(w, "Unable to generate prediction for this vehicle", err.Error())
			return
		}
		response.ErrorFromType(w, err)
		return
	}

	result := map[string]any{
		"vin":             vehicle.VIN,
		"title":           vehicle.Title,
		"predicted_price": predicted,
	}
	if vehicle.Price != nil {
		result["actual_price"] = *vehicle.Price
		result["difference"] = predicted - float64(*vehicle.Price)
	}

	response.OK(w, result)
}
