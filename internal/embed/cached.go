package embed

import (
	"context"
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default query embedding cache capacity.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache keyed by content hash.
// Useful for repeated queries and re-indexing of unchanged chunks.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[[32]byte, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with a cache of the given capacity.
// A non-positive size falls back to DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[[32]byte, []float32](size)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Initialize initializes the wrapped embedder.
func (e *CachedEmbedder) Initialize(ctx context.Context) error {
	return e.inner.Initialize(ctx)
}

// Embed returns a cached embedding or delegates to the wrapped embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := sha256.Sum256([]byte(text))
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch embeds texts, serving cache hits and batching only the misses.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		key := sha256.Sum256([]byte(text))
		if vec, ok := e.cache.Get(key); ok {
			results[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	vecs, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range vecs {
		i := missIdx[j]
		results[i] = vec
		e.cache.Add(sha256.Sum256([]byte(texts[i])), vec)
	}
	return results, nil
}

// Info returns the wrapped embedder's model description.
func (e *CachedEmbedder) Info() ModelInfo {
	return e.inner.Info()
}

// Close closes the wrapped embedder and drops the cache.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}
