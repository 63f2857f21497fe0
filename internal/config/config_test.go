package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "file", cfg.SnapshotSource)
	assert.Equal(t, DefaultGuardFraction, cfg.GuardFraction)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Zero(t, cfg.SyncInterval)
	assert.Contains(t, cfg.CORSOrigins, "http://localhost:5173")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOTWATCH_PORT", "9001")
	t.Setenv("LOTWATCH_DATABASE_URL", "postgres://localhost/lotwatch")
	t.Setenv("LOTWATCH_SNAPSHOT_SOURCE", "http")
	t.Setenv("LOTWATCH_SNAPSHOT_URL", "http://example.test/inventory.json")
	t.Setenv("LOTWATCH_SYNC_GUARD_FRACTION", "0.5")
	t.Setenv("LOTWATCH_SYNC_INTERVAL", "24h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "postgres://localhost/lotwatch", cfg.DatabaseURL)
	assert.Equal(t, "http", cfg.SnapshotSource)
	assert.Equal(t, 0.5, cfg.GuardFraction)
	assert.Equal(t, 24*time.Hour, cfg.SyncInterval)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lotwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
snapshot:
  source: http
  url: http://example.test/inventory.json
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http", cfg.SnapshotSource)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("LOTWATCH_SYNC_GUARD_FRACTION", "1.5")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv("LOTWATCH_SYNC_GUARD_FRACTION", "0.2")
	t.Setenv("LOTWATCH_SNAPSHOT_SOURCE", "carrier-pigeon")
	_, err = Load("")
	require.Error(t, err)
}
