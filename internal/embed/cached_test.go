package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesift/internal/config"
)

// countingEmbedder wraps LocalEmbedder and counts inner calls.
type countingEmbedder struct {
	LocalEmbedder
	embeds atomic.Int32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds.Add(1)
	return c.LocalEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.embeds.Add(int32(len(texts)))
	return c.LocalEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_HitsSkipInner(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, "repeated query")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.embeds.Load())
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := e.Embed(ctx, "cached")
	require.NoError(t, err)
	inner.embeds.Store(0)

	vecs, err := e.EmbedBatch(ctx, []string{"cached", "fresh one", "fresh two"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, int32(2), inner.embeds.Load())

	// Batch results match direct embedding, order preserved.
	want, _ := inner.LocalEmbedder.Embed(ctx, "fresh two")
	assert.Equal(t, want, vecs[2])
}

func TestCachedEmbedder_EvictionBeyondCapacity(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, _ = e.Embed(ctx, "one")
	_, _ = e.Embed(ctx, "two")
	_, _ = e.Embed(ctx, "three") // evicts "one"
	inner.embeds.Store(0)

	_, _ = e.Embed(ctx, "one")
	assert.Equal(t, int32(1), inner.embeds.Load())
}

// configWith builds an embeddings config for factory tests.
func configWith(provider, host string) config.EmbeddingsConfig {
	cfg := config.Default().Embeddings
	cfg.Provider = provider
	if host != "" {
		cfg.ServerHost = host
	}
	cfg.CacheSize = 0
	return cfg
}
