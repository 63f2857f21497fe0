package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotwatch/lotwatch/internal/store/memory"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/logging"
	"github.com/lotwatch/lotwatch/pkg/pipeline"
	"github.com/lotwatch/lotwatch/pkg/predict"
	"github.com/lotwatch/lotwatch/pkg/reconcile"
)

type stubProducer struct {
	snapshot []inventory.Vehicle
	err      error
}

func (p *stubProducer) Scrape(_ context.Context) ([]inventory.Vehicle, error) {
	return p.snapshot, p.err
}

func (p *stubProducer) Source() string { return "test-feed" }

func testSnapshot(n int) []inventory.Vehicle {
	vehicles := make([]inventory.Vehicle, 0, n)
	for i := 0; i < n; i++ {
		price := 20000 + i*1000
		mileage := 60000 - i*2000
		year := 2018 + i%6
		vehicles = append(vehicles, inventory.Vehicle{
			VIN:      vin(i),
			Title:    "2020 Toyota Camry SE",
			Make:     "Toyota",
			Model:    "Camry",
			Price:    &price,
			Mileage:  &mileage,
			Year:     &year,
			FuelType: "Gasoline",
		})
	}
	return vehicles
}

func vin(i int) string {
	return "4T1G11AK0MU" + string(rune('A'+i/10)) + string(rune('0'+i%10)) + "000"
}

func newTestServer(t *testing.T, producer *stubProducer) *Server {
	t.Helper()
	store := memory.New()
	rec := reconcile.New(store, reconcile.WithLogger(logging.NewNopLogger()))
	predictor := predict.New()
	pipe := pipeline.New(store, producer, rec,
		pipeline.WithPredictor(predictor),
		pipeline.WithLogger(logging.NewNopLogger()))
	return New(store, pipe, predictor, DefaultConfig(), logging.NewNopLogger())
}

func doRequest(t *testing.T, handler http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubProducer{})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "lotwatch-api", data["service"])
}

func TestSyncRunThenListVehicles(t *testing.T) {
	srv := newTestServer(t, &stubProducer{snapshot: testSnapshot(12)})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(12), data["vehicles_scraped"])
	syncEntry := data["sync"].(map[string]any)
	assert.Equal(t, float64(12), syncEntry["added"])

	w, body = doRequest(t, handler, http.MethodGet, "/api/v1/vehicles")
	require.Equal(t, http.StatusOK, w.Code)

	data = body["data"].(map[string]any)
	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, float64(12), pagination["total"])

	// Filtered search
	w, body = doRequest(t, handler, http.MethodGet, "/api/v1/vehicles/search?price_max=22000")
	require.Equal(t, http.StatusOK, w.Code)
	data = body["data"].(map[string]any)
	pagination = data["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["total"])
}

func TestGetVehicleNotFound(t *testing.T) {
	srv := newTestServer(t, &stubProducer{})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/vehicles/NOPE123")
	require.Equal(t, http.StatusNotFound, w.Code)

	errField := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errField["code"])
}

func TestSearchRejectsMalformedQuery(t *testing.T) {
	srv := newTestServer(t, &stubProducer{})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/vehicles/search?year_min=old")
	require.Equal(t, http.StatusBadRequest, w.Code)

	errField := body["error"].(map[string]any)
	assert.Equal(t, "BAD_REQUEST", errField["code"])
}

func TestPriceHistoryEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubProducer{snapshot: testSnapshot(3)})
	handler := srv.Handler()

	w, _ := doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/vehicles/"+vin(0)+"/price-history")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, vin(0), data["vin"])
	history := data["history"].([]any)
	assert.Len(t, history, 1)
}

func TestPredictEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubProducer{snapshot: testSnapshot(15)})
	handler := srv.Handler()

	// Before any sync the model is untrained.
	w, _ := doRequest(t, handler, http.MethodGet, "/api/v1/vehicles/"+vin(0)+"/predict")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/vehicles/"+vin(0)+"/predict")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, vin(0), data["vin"])
	assert.Contains(t, data, "predicted_price")
	assert.Contains(t, data, "actual_price")
}

func TestModelSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubProducer{snapshot: testSnapshot(15)})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/ml/summary")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["is_trained"])
	assert.NotContains(t, data, "metrics")

	w, _ = doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	w, body = doRequest(t, handler, http.MethodGet, "/api/v1/ml/summary")
	require.Equal(t, http.StatusOK, w.Code)
	data = body["data"].(map[string]any)
	assert.Equal(t, true, data["is_trained"])
	metrics := data["metrics"].(map[string]any)
	assert.Equal(t, float64(15), metrics["samples"])
}

func TestAllPredictionsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubProducer{snapshot: testSnapshot(15)})
	handler := srv.Handler()

	w, _ := doRequest(t, handler, http.MethodGet, "/api/v1/ml/predictions")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/ml/predictions")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, float64(15), data["total_predictions"])
	predictions := data["predictions"].([]any)
	require.Len(t, predictions, 15)
	first := predictions[0].(map[string]any)
	assert.Contains(t, first, "vin")
	assert.Contains(t, first, "predicted_price")
	assert.Contains(t, first, "price_difference")
}

func TestSyncStatusLifecycle(t *testing.T) {
	srv := newTestServer(t, &stubProducer{snapshot: testSnapshot(4)})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/sync/status")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "never_synced", data["status"])

	w, _ = doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	w, body = doRequest(t, handler, http.MethodGet, "/api/v1/sync/status")
	require.Equal(t, http.StatusOK, w.Code)
	data = body["data"].(map[string]any)
	assert.Equal(t, "completed", data["status"])
	lastSync := data["last_sync"].(map[string]any)
	assert.Equal(t, "test-feed", lastSync["source"])
}

func TestSyncProgressIdle(t *testing.T) {
	srv := newTestServer(t, &stubProducer{})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/sync/progress")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["is_syncing"])
}

func TestScrapeFailureMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, &stubProducer{err: context.DeadlineExceeded})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusBadGateway, w.Code)

	errField := body["error"].(map[string]any)
	assert.Equal(t, "UPSTREAM_ERROR", errField["code"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubProducer{})
	handler := srv.Handler()

	w, body := doRequest(t, handler, http.MethodDelete, "/api/v1/vehicles")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	errField := body["error"].(map[string]any)
	assert.Equal(t, "METHOD_NOT_ALLOWED", errField["code"])
}

func TestCacheInvalidatedAfterSync(t *testing.T) {
	producer := &stubProducer{snapshot: testSnapshot(2)}
	srv := newTestServer(t, producer)
	handler := srv.Handler()

	w, _ := doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	// Prime the cache.
	w, body := doRequest(t, handler, http.MethodGet, "/api/v1/vehicles")
	require.Equal(t, http.StatusOK, w.Code)
	pagination := body["data"].(map[string]any)["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])

	// Grow the snapshot and sync again; the listing must reflect it.
	producer.snapshot = testSnapshot(5)
	w, _ = doRequest(t, handler, http.MethodPost, "/api/v1/sync/run")
	require.Equal(t, http.StatusOK, w.Code)

	w, body = doRequest(t, handler, http.MethodGet, "/api/v1/vehicles")
	require.Equal(t, http.StatusOK, w.Code)
	pagination = body["data"].(map[string]any)["pagination"].(map[string]any)
	assert.Equal(t, float64(5), pagination["total"])
}

func TestPeriodicSyncRuns(t *testing.T) {
	producer := &stubProducer{snapshot: testSnapshot(3)}
	srv := newTestServer(t, producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.StartPeriodicSync(ctx, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := srv.store.Syncs().Latest(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
