package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kass/restaurant-map/pkg/models"
	"github.com/kass/restaurant-map/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, store.FloorRatedOnly, cfg.FloorPolicy())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  paths: [a.json, https://example.com/b.json]
map:
  center_lat: 51.5
  center_lon: -0.12
  zoom: 11
filter:
  floor_policy: all
server:
  addr: ":9090"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.json", "https://example.com/b.json"}, cfg.Data.Paths)
	assert.Equal(t, store.FloorAll, cfg.FloorPolicy())
	assert.Equal(t, ":9090", cfg.Server.Addr)

	opts := cfg.MapOptions()
	assert.Equal(t, models.Location{Lat: 51.5, Lon: -0.12}, opts.Center)
	assert.Equal(t, 11, opts.Zoom)
	// Unset keys keep their defaults
	assert.Equal(t, Default().Map.FocusZoom, opts.FocusZoom)
}

func TestLoadExampleFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path+".example", []byte("server:\n  addr: \":7070\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvData, " one.json , two.json,")
	t.Setenv(EnvAddr, ":1234")
	t.Setenv(EnvDatabaseURL, "postgres://localhost/db")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"one.json", "two.json"}, cfg.Data.Paths)
	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/db", cfg.PostGIS.DSN)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("data: [unclosed"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	policy := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("filter:\n  floor_policy: sometimes\n"), 0o644))
	_, err = Load(policy)
	assert.Error(t, err)

	center := filepath.Join(dir, "center.yaml")
	require.NoError(t, os.WriteFile(center, []byte("map:\n  center_lat: 120\n"), 0o644))
	_, err = Load(center)
	assert.Error(t, err)
}
