// Package config loads and validates codesift configuration.
// Configuration is layered: built-in defaults, then the project config file
// (.codesift.yaml), then CODESIFT_* environment variables (highest priority).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// ConfigFileName is the per-project config file name.
const ConfigFileName = ".codesift.yaml"

// DataDirName is the per-project cache directory name.
const DataDirName = ".codesift"

// Config represents the complete codesift configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PathsConfig configures which paths to include and exclude.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// IndexConfig configures chunking, sharding, and the indexing worker pool.
type IndexConfig struct {
	// CacheDir is the root for shard databases and tracking tables.
	// Defaults to <project root>/.codesift.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ShardCount is the number of independent vector stores.
	// 1 disables sharding. Fixed for the lifetime of an index.
	ShardCount int `yaml:"shard_count" json:"shard_count"`

	// Workers is the parallel indexing worker count.
	// 0 means available CPU cores minus one.
	Workers int `yaml:"workers" json:"workers"`

	// ChunkSize is the target maximum chunk size in characters.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`

	// RespectBoundaries prefers function/class boundaries when splitting.
	RespectBoundaries bool `yaml:"respect_boundaries" json:"respect_boundaries"`

	// MaxFileSize is the maximum file size to index in bytes.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// EmbeddingsConfig configures the embedding backend.
type EmbeddingsConfig struct {
	// Provider selects the backend: "auto", "local", "server", "remote".
	// "auto" probes the inference server first and falls back to local.
	Provider string `yaml:"provider" json:"provider"`

	// Model is the model identifier for server/remote backends.
	Model string `yaml:"model" json:"model"`

	// ServerHost is the local GPU inference server endpoint.
	ServerHost string `yaml:"server_host" json:"server_host"`

	// BatchSize is the embedding sub-batch size.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// MaxConcurrency bounds concurrent remote API requests.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`

	// MaxRetries is the retry attempt count for server/remote calls.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// CacheSize is the query embedding LRU cache size. 0 disables caching.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures search defaults.
type SearchConfig struct {
	// Limit is the default maximum result count.
	Limit int `yaml:"limit" json:"limit"`

	// Threshold is the default minimum similarity (0.0-1.0).
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// ContextLines is the highlight window around the first keyword match.
	ContextLines int `yaml:"context_lines" json:"context_lines"`
}

// WatchConfig configures file-change ingestion.
type WatchConfig struct {
	// Debounce is the window for coalescing rapid events for the same path.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{"."},
			Exclude: []string{
				"node_modules/", "vendor/", ".git/", DataDirName + "/",
				"dist/", "build/", "target/",
			},
		},
		Index: IndexConfig{
			ShardCount:        1,
			Workers:           0, // cores - 1
			ChunkSize:         500,
			ChunkOverlap:      50,
			RespectBoundaries: true,
			MaxFileSize:       10 * 1024 * 1024,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "auto",
			ServerHost:     "http://localhost:11434",
			BatchSize:      32,
			MaxConcurrency: 4,
			MaxRetries:     3,
			CacheSize:      1000,
		},
		Search: SearchConfig{
			Limit:        10,
			Threshold:    0.3,
			ContextLines: 3,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// FindProjectRoot walks up from start looking for a directory containing
// a config file, a cache directory, or a .git directory. Falls back to
// start when nothing is found.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for cur := dir; ; {
		for _, marker := range []string{ConfigFileName, DataDirName, ".git"} {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur, nil
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir, nil
		}
		cur = parent
	}
}

// Load reads configuration from the given project root, applying defaults
// and environment overrides. The project file takes precedence over the
// user-level config; missing files are not errors.
func Load(rootDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(rootDir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if userPath, ok := userConfigPath(); ok {
			path = userPath
		}
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, sifterrors.ConfigError(fmt.Sprintf("parse %s", path), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, sifterrors.ConfigError(fmt.Sprintf("read %s", path), err)
	}

	cfg.applyEnvOverrides()

	if cfg.Index.CacheDir == "" {
		cfg.Index.CacheDir = filepath.Join(rootDir, DataDirName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// userConfigPath returns the user-level config file when it exists.
func userConfigPath() (string, bool) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(dir, "codesift", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Save writes the configuration to the project root atomically.
func (c *Config) Save(rootDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return sifterrors.ConfigError("marshal config", err)
	}

	path := filepath.Join(rootDir, ConfigFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return sifterrors.ConfigError("write config", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return sifterrors.ConfigError("rename config", err)
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Index.ShardCount < 1 {
		return sifterrors.ConfigError(
			fmt.Sprintf("shard_count must be >= 1, got %d", c.Index.ShardCount), nil)
	}
	if c.Index.ChunkSize < 1 {
		return sifterrors.ConfigError(
			fmt.Sprintf("chunk_size must be >= 1, got %d", c.Index.ChunkSize), nil)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return sifterrors.ConfigError(
			fmt.Sprintf("chunk_overlap must be in [0, chunk_size), got %d", c.Index.ChunkOverlap), nil)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return sifterrors.ConfigError(
			fmt.Sprintf("threshold must be in [0.0, 1.0], got %g", c.Search.Threshold), nil)
	}
	if c.Search.Limit < 1 {
		return sifterrors.ConfigError(
			fmt.Sprintf("limit must be >= 1, got %d", c.Search.Limit), nil)
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return sifterrors.ConfigError(
			fmt.Sprintf("invalid watch debounce %q", c.Watch.Debounce), err)
	}
	return nil
}

// DebounceWindow returns the parsed watch debounce duration.
func (c *Config) DebounceWindow() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// EffectiveWorkers resolves the worker count, defaulting to cores minus one.
func (c *Config) EffectiveWorkers() int {
	if c.Index.Workers > 0 {
		return c.Index.Workers
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// applyEnvOverrides applies CODESIFT_* environment variables.
// Environment variables take precedence over the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODESIFT_CACHE_DIR"); v != "" {
		c.Index.CacheDir = v
	}
	if v := os.Getenv("CODESIFT_SHARD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.Index.ShardCount = n
		}
	}
	if v := os.Getenv("CODESIFT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Index.Workers = n
		}
	}
	if v := os.Getenv("CODESIFT_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CODESIFT_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CODESIFT_SERVER_HOST"); v != "" {
		c.Embeddings.ServerHost = v
	}
	if v := os.Getenv("CODESIFT_WATCH_DEBOUNCE"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Watch.Debounce = v
		}
	}
	if v := os.Getenv("CODESIFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
