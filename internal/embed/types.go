// Package embed generates vector embeddings for text chunks.
// Three backends are provided: a local hash-based embedder that needs no
// external process, an inference server client, and a remote API client.
package embed

import (
	"context"
	"math"
	"sync"
	"time"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the default sub-batch size for embedding requests
	DefaultBatchSize = 32

	// DefaultRequestTimeout is the per-request timeout for server/remote calls
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3

	// charsPerToken approximates the character-to-token ratio for code.
	// Used to truncate inputs before they exceed a model's token budget.
	charsPerToken = 4
)

// Local embedder constants
const (
	// LocalDimensions is the embedding dimension for the local embedder
	LocalDimensions = 384
)

// ModelInfo describes an embedding model.
type ModelInfo struct {
	// Name is the model identifier.
	Name string
	// Dimensions is the embedding vector size.
	Dimensions int
	// MaxTokens is the model's input token budget.
	MaxTokens int
}

// Embedder generates vector embeddings for text.
//
// Implementations are safe for concurrent use. Initialize is idempotent:
// concurrent callers share a single in-flight initialization, and Embed and
// EmbedBatch initialize lazily when needed.
type Embedder interface {
	// Initialize prepares the backend (model load, server probe).
	Initialize(ctx context.Context) error

	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Info returns the model description. Valid after Initialize.
	Info() ModelInfo

	// Close releases resources. Further calls fail with a closed error.
	Close() error
}

// initState tracks the embedder lifecycle.
type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateReady
	stateClosed
)

// initGate serializes initialization across goroutines. The first caller
// runs fn; concurrent callers block and share its result. A failed
// initialization resets the gate so a later call can retry.
type initGate struct {
	mu    sync.Mutex
	state initState
	done  chan struct{} // non-nil while initializing
}

// run drives fn through the state machine.
func (g *initGate) run(ctx context.Context, fn func(context.Context) error) error {
	for {
		g.mu.Lock()
		switch g.state {
		case stateReady:
			g.mu.Unlock()
			return nil
		case stateClosed:
			g.mu.Unlock()
			return sifterrors.New(sifterrors.ErrCodeEmbedderClosed, "embedder is closed", nil)
		case stateInitializing:
			done := g.done
			g.mu.Unlock()
			select {
			case <-done:
				// Re-check: the in-flight attempt may have failed.
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		case stateUninitialized:
			g.state = stateInitializing
			g.done = make(chan struct{})
			done := g.done
			g.mu.Unlock()

			err := fn(ctx)

			g.mu.Lock()
			if err != nil {
				g.state = stateUninitialized
			} else if g.state == stateInitializing {
				g.state = stateReady
			}
			g.done = nil
			g.mu.Unlock()
			close(done)
			return err
		}
	}
}

// ready reports whether initialization has completed.
func (g *initGate) ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateReady
}

// close transitions to the terminal closed state.
func (g *initGate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = stateClosed
}

// closed reports whether Close has been called.
func (g *initGate) closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateClosed
}

// truncateForModel trims text to fit a model's token budget, using a
// conservative characters-per-token approximation.
func truncateForModel(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	maxChars := maxTokens * charsPerToken
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
