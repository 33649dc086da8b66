package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Index.ShardCount)
	assert.Equal(t, 500, cfg.Index.ChunkSize)
	assert.Equal(t, 50, cfg.Index.ChunkOverlap)
	assert.Equal(t, 0.3, cfg.Search.Threshold)
	assert.Equal(t, 10, cfg.Search.Limit)
	assert.Equal(t, filepath.Join(tmpDir, DataDirName), cfg.Index.CacheDir)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceWindow())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	yaml := `
version: 1
index:
  shard_count: 4
  chunk_size: 800
  chunk_overlap: 80
search:
  limit: 25
  threshold: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yaml), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Index.ShardCount)
	assert.Equal(t, 800, cfg.Index.ChunkSize)
	assert.Equal(t, 25, cfg.Search.Limit)
	assert.Equal(t, 0.5, cfg.Search.Threshold)
	// Untouched fields keep defaults
	assert.Equal(t, "auto", cfg.Embeddings.Provider)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	yaml := "index:\n  shard_count: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(yaml), 0o644))

	t.Setenv("CODESIFT_SHARD_COUNT", "8")
	t.Setenv("CODESIFT_EMBEDDER", "local")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Index.ShardCount)
	assert.Equal(t, "local", cfg.Embeddings.Provider)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("index: ["), 0o644))

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero shards", func(c *Config) { c.Index.ShardCount = 0 }, true},
		{"overlap >= chunk size", func(c *Config) { c.Index.ChunkOverlap = 500 }, true},
		{"threshold above one", func(c *Config) { c.Search.Threshold = 1.5 }, true},
		{"zero limit", func(c *Config) { c.Search.Limit = 0 }, true},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Index.ShardCount = 4
	require.NoError(t, cfg.Save(tmpDir))

	loaded, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Index.ShardCount)
}

func TestEffectiveWorkers_ExplicitWins(t *testing.T) {
	cfg := Default()
	cfg.Index.Workers = 3
	assert.Equal(t, 3, cfg.EffectiveWorkers())

	cfg.Index.Workers = 0
	assert.GreaterOrEqual(t, cfg.EffectiveWorkers(), 1)
}
