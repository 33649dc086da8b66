package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/codesift/internal/config"
)

// Provider identifies an embedding backend.
type Provider string

const (
	// ProviderAuto probes the inference server and falls back to local.
	ProviderAuto Provider = "auto"
	// ProviderLocal is the hash-based embedder, no external process.
	ProviderLocal Provider = "local"
	// ProviderServer is the Ollama-compatible inference server.
	ProviderServer Provider = "server"
	// ProviderRemote is the hosted API backend.
	ProviderRemote Provider = "remote"
)

// autoProbeTimeout bounds the server probe when resolving ProviderAuto.
const autoProbeTimeout = 5 * time.Second

// NewEmbedder builds an embedder from configuration.
//
// With ProviderAuto the inference server is probed first; if unreachable the
// local embedder is used so indexing always works offline. Explicit providers
// never fall back. A non-zero cache size wraps the result in a CachedEmbedder.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var inner Embedder
	switch Provider(cfg.Provider) {
	case ProviderLocal:
		inner = NewLocalEmbedder()

	case ProviderServer:
		inner = newServerFromConfig(cfg, logger)

	case ProviderRemote:
		inner = NewRemoteEmbedder(RemoteConfig{
			Model:          cfg.Model,
			MaxConcurrency: cfg.MaxConcurrency,
			Retry:          retryFromConfig(cfg),
		}, logger)

	case ProviderAuto, Provider(""):
		inner = resolveAuto(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(inner, cfg.CacheSize), nil
	}
	return inner, nil
}

// resolveAuto probes the inference server and falls back to local.
func resolveAuto(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) Embedder {
	server := newServerFromConfig(cfg, logger)

	probeCtx, cancel := context.WithTimeout(ctx, autoProbeTimeout)
	defer cancel()

	if err := server.Initialize(probeCtx); err == nil {
		logger.Info("embedder_selected", "provider", "server", "host", cfg.ServerHost)
		return server
	} else {
		logger.Info("embedder_fallback",
			"provider", "local",
			"reason", "inference server unavailable",
			"error", err)
	}

	_ = server.Close()
	return NewLocalEmbedder()
}

// newServerFromConfig builds a server embedder from config values.
func newServerFromConfig(cfg config.EmbeddingsConfig, logger *slog.Logger) *ServerEmbedder {
	return NewServerEmbedder(ServerConfig{
		Host:      cfg.ServerHost,
		Model:     cfg.Model,
		BatchSize: cfg.BatchSize,
		Retry:     retryFromConfig(cfg),
	}, logger)
}

// retryFromConfig maps config retries onto the default backoff curve.
func retryFromConfig(cfg config.EmbeddingsConfig) RetryConfig {
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	return retry
}
