package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// Server embedder defaults
const (
	// DefaultServerHost is the default inference server endpoint
	DefaultServerHost = "http://localhost:11434"

	// DefaultServerModel is the preferred embedding model
	DefaultServerModel = "nomic-embed-text"

	// serverConnectTimeout bounds the health-check probe
	serverConnectTimeout = 5 * time.Second

	// serverPoolSize is the HTTP connection pool size
	serverPoolSize = 4

	// DefaultServerMaxTokens is the assumed input budget for server models
	DefaultServerMaxTokens = 2048
)

// fallbackServerModels are tried when the configured model is absent.
var fallbackServerModels = []string{
	"nomic-embed-text",
	"mxbai-embed-large",
	"all-minilm",
}

// ServerConfig configures the inference server embedder.
type ServerConfig struct {
	// Host is the server base URL.
	Host string
	// Model is the preferred model name. Fallbacks are tried if absent.
	Model string
	// BatchSize is the sub-batch size for batch requests.
	BatchSize int
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Retry configures backoff for transient failures.
	Retry RetryConfig
}

// ServerEmbedder generates embeddings via an Ollama-compatible HTTP API.
// Initialization probes the server, resolves the model, and detects the
// embedding dimension with a test request.
type ServerEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    ServerConfig
	logger    *slog.Logger

	gate      initGate
	modelName string
	dims      int
}

var _ Embedder = (*ServerEmbedder)(nil)

// NewServerEmbedder creates a server embedder. No network I/O happens until
// Initialize (or the first Embed call).
func NewServerEmbedder(cfg ServerConfig, logger *slog.Logger) *ServerEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultServerHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultServerModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Short idle timeout keeps connections from lingering after CLI exit.
	transport := &http.Transport{
		MaxIdleConns:        serverPoolSize,
		MaxIdleConnsPerHost: serverPoolSize,
		MaxConnsPerHost:     serverPoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	// No client-level timeout: per-request contexts control deadlines.
	return &ServerEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		logger:    logger,
	}
}

// Initialize probes the server, resolves the model name, and detects the
// embedding dimension. Concurrent callers share one probe.
func (e *ServerEmbedder) Initialize(ctx context.Context) error {
	return e.gate.run(ctx, func(ctx context.Context) error {
		model, err := e.findAvailableModel(ctx)
		if err != nil {
			return sifterrors.InitializationError("probe inference server", err).
				WithDetail("host", e.config.Host).
				WithSuggestion("start the inference server or set embeddings.provider to \"local\"")
		}
		e.modelName = model

		dims, err := e.detectDimensions(ctx)
		if err != nil {
			return sifterrors.InitializationError("detect embedding dimensions", err).
				WithDetail("model", model)
		}
		e.dims = dims

		e.logger.Info("server_embedder_ready",
			"host", e.config.Host,
			"model", e.modelName,
			"dimensions", e.dims)
		return nil
	})
}

// Embed generates an embedding for a single text.
func (e *ServerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order.
// Large inputs are split into sub-batches of BatchSize.
func (e *ServerEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.gate.closed() {
		return nil, sifterrors.New(sifterrors.ErrCodeEmbedderClosed, "embedder is closed", nil)
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, end-start)
		for i, t := range texts[start:end] {
			batch[i] = truncateForModel(t, DefaultServerMaxTokens)
		}

		var vecs [][]float32
		err := withRetry(ctx, e.config.Retry, func() error {
			var embErr error
			vecs, embErr = e.embedRequest(ctx, batch)
			return embErr
		})
		if err != nil {
			return nil, err
		}
		results = append(results, vecs...)
	}

	return results, nil
}

// Info returns the model description. Before initialization the configured
// model name is reported with zero dimensions.
func (e *ServerEmbedder) Info() ModelInfo {
	name := e.modelName
	if name == "" {
		name = e.config.Model
	}
	return ModelInfo{
		Name:       name,
		Dimensions: e.dims,
		MaxTokens:  DefaultServerMaxTokens,
	}
}

// Close releases HTTP connections.
func (e *ServerEmbedder) Close() error {
	e.gate.close()
	e.transport.CloseIdleConnections()
	return nil
}

// serverModelList is the /api/tags response.
type serverModelList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// serverEmbedRequest is the /api/embed request body.
type serverEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// serverEmbedResponse is the /api/embed response body.
type serverEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// listModels gets available models from the server.
func (e *ServerEmbedder) listModels(ctx context.Context) ([]string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, serverConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", e.config.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result serverModelList
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}

// findAvailableModel resolves the configured model against what the server
// actually has, trying fallbacks by full name and by base name without tag.
func (e *ServerEmbedder) findAvailableModel(ctx context.Context) (string, error) {
	names, err := e.listModels(ctx)
	if err != nil {
		return "", err
	}

	available := make(map[string]string) // normalized -> actual
	for _, name := range names {
		lower := strings.ToLower(name)
		available[lower] = name
		base := strings.Split(lower, ":")[0]
		if _, exists := available[base]; !exists {
			available[base] = name
		}
	}

	candidates := append([]string{e.config.Model}, fallbackServerModels...)
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		if actual, ok := available[lower]; ok {
			return actual, nil
		}
		base := strings.Split(lower, ":")[0]
		if actual, ok := available[base]; ok {
			return actual, nil
		}
	}

	return "", fmt.Errorf("no embedding model available (tried %s and %v)", e.config.Model, fallbackServerModels)
}

// detectDimensions embeds a test string to learn the vector size.
func (e *ServerEmbedder) detectDimensions(ctx context.Context) (int, error) {
	vecs, err := e.embedRequest(ctx, []string{"dimension detection"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("server returned empty embedding")
	}
	return len(vecs[0]), nil
}

// embedRequest performs one /api/embed call.
func (e *ServerEmbedder) embedRequest(ctx context.Context, inputs []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(serverEmbedRequest{Model: e.modelName, Input: inputs})
	if err != nil {
		return nil, sifterrors.InternalError("marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, sifterrors.InternalError("create embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sifterrors.EmbeddingError("embed request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
		if resp.StatusCode >= 500 {
			return nil, sifterrors.EmbeddingError("server error", err)
		}
		return nil, sifterrors.New(sifterrors.ErrCodeInvalidInput, "embed request rejected", err)
	}

	var result serverEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, sifterrors.EmbeddingError("decode embed response", err)
	}

	if len(result.Embeddings) != len(inputs) {
		return nil, sifterrors.EmbeddingError(
			fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(result.Embeddings)), nil)
	}

	for i, v := range result.Embeddings {
		result.Embeddings[i] = normalizeVector(v)
	}
	return result.Embeddings, nil
}
