package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	t.Setenv("ISOMAP_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "isomap.yaml")
	data := `
map:
  name: island
  memory_area: 3
render:
  sorter: depth
  max_sprites: 500
storage:
  backend: badger
  path: /tmp/isomap
  redis:
    addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("ISOMAP_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "island", cfg.Map.Name)
	assert.Equal(t, 3, cfg.Map.MemoryArea)
	assert.Equal(t, int64(12345), cfg.Map.Seed, "Незаданные поля берутся из значений по умолчанию")
	assert.Equal(t, "depth", cfg.Render.Sorter)
	assert.Equal(t, 500, cfg.Render.MaxSprites)
	assert.Equal(t, 1, cfg.Render.Cameras)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Compression)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.GetAddr())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render:\n  sorter: bogus\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sorter")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Map.MemoryArea = 0
	cfg.Storage.Backend = "sqlite"
	cfg.Render.Cameras = 9

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory_area")
	assert.Contains(t, err.Error(), "sqlite")
	assert.Contains(t, err.Error(), "cameras")

	cfg = Default()
	cfg.Storage.Backend = "file"
	cfg.Storage.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "storage.path")

	cfg.Storage.Path = "data"
	assert.NoError(t, cfg.Validate())
}

func TestPortFallbacks(t *testing.T) {
	t.Setenv("ISOMAP_METRICS_PORT", "9100")
	t.Setenv("ISOMAP_DEBUG_PORT", "")
	t.Setenv("ISOMAP_REDIS_ADDR", "")

	m := MetricsConfig{}
	assert.Equal(t, 9100, m.GetPort())
	m.Port = 9200
	assert.Equal(t, 9200, m.GetPort())

	d := DebugAPIConfig{}
	assert.Equal(t, 8088, d.GetPort())

	r := RedisConfig{}
	assert.Equal(t, "localhost:6379", r.GetAddr())
}
