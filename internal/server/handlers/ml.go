package handlers

import (
	"net/http"

	"github.com/lotwatch/lotwatch/internal/server/response"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// modelName identifies the fitted model in API responses.
const modelName = "ols_age_mileage"

// HandleModelSummary handles GET /api/v1/ml/summary. Reports whether a
// model is fit and the metrics of the last training pass. Available
// before training; is_trained is false and metrics are omitted.
func (h *Handlers) HandleModelSummary(w http.ResponseWriter, r *http.Request) {
	trained := h.predictor != nil && h.predictor.Trained()

	result := map[string]any{
		"is_trained": trained,
		"model":      modelName,
		"features":   []string{"age", "mileage"},
	}
	if trained {
		metrics, err := h.predictor.Metrics()
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		result["metrics"] = metrics
		result["trained_at"] = metrics.TrainedAt
	}

	response.OK(w, result)
}

// HandleAllPredictions handles GET /api/v1/ml/predictions. Scores every
// active vehicle the model can score. Returns 503 until a sync has
// trained the model.
func (h *Handlers) HandleAllPredictions(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil || !h.predictor.Trained() {
		response.ServiceUnavailable(w, "Price model not trained yet. Run a sync first.")
		return
	}

	vehicles, err := h.store.Vehicles().List(r.Context(), inventory.Filter{Status: inventory.StatusActive})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	predictions := make([]map[string]any, 0, len(vehicles))
	for _, v := range vehicles {
		predicted, err := h.predictor.Predict(v)
		if err != nil {
			continue
		}
		entry := map[string]any{
			"vin":             v.VIN,
			"title":           v.Title,
			"actual_price":    v.Price,
			"predicted_price": predicted,
		}
		if v.Price != nil {
			entry["price_difference"] = predicted - float64(*v.Price)
		}
		predictions = append(predictions, entry)
	}

	response.OK(w, map[string]any{
		"model":             modelName,
		"total_predictions": len(predictions),
		"predictions":       predictions,
	})
}
