package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotwatch/lotwatch/pkg/errors"
)

func writeSnapshot(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceYAML(t *testing.T) {
	path := writeSnapshot(t, "snapshot.yaml", `
vehicles:
  - vin: A1
    title: 2022 Audi Q5
    price: 30000
    mileage: 50000
    year: 2022
    fuel_type: Gasoline
  - title: mangled row without vin
`)

	vehicles, err := NewFileSource(path).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)

	assert.Equal(t, "A1", vehicles[0].VIN)
	require.NotNil(t, vehicles[0].Price)
	assert.Equal(t, 30000, *vehicles[0].Price)
	assert.Equal(t, "Gasoline", vehicles[0].FuelType)
	assert.Empty(t, vehicles[1].VIN)
}

func TestFileSourceBareJSONList(t *testing.T) {
	path := writeSnapshot(t, "snapshot.json",
		`[{"vin":"A1","price":30000},{"vin":"B2"}]`)

	vehicles, err := NewFileSource(path).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, "B2", vehicles[1].VIN)
	assert.Nil(t, vehicles[1].Price)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource("/nonexistent/snapshot.yaml").Scrape(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"vehicles":[{"vin":"A1","price":30000,"year":2022}]}`))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL)
	vehicles, err := source.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "A1", vehicles[0].VIN)
	assert.Equal(t, "http", source.Source())
}

func TestHTTPSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL).Scrape(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUpstream(err))
}
