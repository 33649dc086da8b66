package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// Remote embedder defaults
const (
	// DefaultRemoteModel is the default remote embedding model
	DefaultRemoteModel = "gemini-embedding-001"

	// DefaultRemoteMaxTokens is the remote model input budget
	DefaultRemoteMaxTokens = 2048

	// DefaultRemoteConcurrency bounds concurrent API requests
	DefaultRemoteConcurrency = 4

	// apiKeyEnv names the environment variable holding the API key
	apiKeyEnv = "GEMINI_API_KEY"
)

// RemoteConfig configures the remote API embedder.
type RemoteConfig struct {
	// APIKey is the API key. Falls back to GEMINI_API_KEY.
	APIKey string
	// Model is the embedding model identifier.
	Model string
	// MaxConcurrency bounds parallel API requests.
	MaxConcurrency int
	// Retry configures backoff for transient failures.
	Retry RetryConfig
}

// RemoteEmbedder generates embeddings via the Gemini API.
// Requires network access and an API key; intended for machines without a
// local GPU where embedding quality matters more than latency.
type RemoteEmbedder struct {
	config RemoteConfig
	logger *slog.Logger

	gate   initGate
	client *genai.Client
	dims   int
}

var _ Embedder = (*RemoteEmbedder)(nil)

// NewRemoteEmbedder creates a remote embedder. The API client is built
// lazily in Initialize.
func NewRemoteEmbedder(cfg RemoteConfig, logger *slog.Logger) *RemoteEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultRemoteModel
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultRemoteConcurrency
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteEmbedder{config: cfg, logger: logger}
}

// Initialize builds the API client and detects the embedding dimension.
func (e *RemoteEmbedder) Initialize(ctx context.Context) error {
	return e.gate.run(ctx, func(ctx context.Context) error {
		apiKey := e.config.APIKey
		if apiKey == "" {
			apiKey = os.Getenv(apiKeyEnv)
		}
		if apiKey == "" {
			return sifterrors.InitializationError("remote embedder requires an API key", nil).
				WithSuggestion("set " + apiKeyEnv + " or configure embeddings.provider differently")
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return sifterrors.InitializationError("create remote API client", err)
		}
		e.client = client

		vec, err := e.embedOne(ctx, "dimension detection")
		if err != nil {
			return sifterrors.InitializationError("probe remote embedding model", err).
				WithDetail("model", e.config.Model)
		}
		e.dims = len(vec)

		e.logger.Info("remote_embedder_ready",
			"model", e.config.Model,
			"dimensions", e.dims)
		return nil
	})
}

// Embed generates an embedding for a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.gate.closed() {
		return nil, sifterrors.New(sifterrors.ErrCodeEmbedderClosed, "embedder is closed", nil)
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}

	var vec []float32
	err := withRetry(ctx, e.config.Retry, func() error {
		var embErr error
		vec, embErr = e.embedOne(ctx, truncateForModel(text, DefaultRemoteMaxTokens))
		return embErr
	})
	if err != nil {
		return nil, err
	}
	return normalizeVector(vec), nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order.
// Requests run concurrently, bounded by MaxConcurrency.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.gate.closed() {
		return nil, sifterrors.New(sifterrors.ErrCodeEmbedderClosed, "embedder is closed", nil)
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.MaxConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Info returns the model description.
func (e *RemoteEmbedder) Info() ModelInfo {
	return ModelInfo{
		Name:       e.config.Model,
		Dimensions: e.dims,
		MaxTokens:  DefaultRemoteMaxTokens,
	}
}

// Close releases resources.
func (e *RemoteEmbedder) Close() error {
	e.gate.close()
	return nil
}

// embedOne performs a single EmbedContent call.
func (e *RemoteEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{{Text: text}}},
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.config.Model, contents, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sifterrors.EmbeddingError("remote embed request failed", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, sifterrors.EmbeddingError("remote API returned empty embedding", nil)
	}

	return resp.Embeddings[0].Values, nil
}
