package embed

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, "func handleRequest(w http.ResponseWriter)")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "func handleRequest(w http.ResponseWriter)")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, LocalDimensions)
}

func TestLocalEmbedder_Normalized(t *testing.T) {
	e := NewLocalEmbedder()

	vec, err := e.Embed(context.Background(), "database connection pooling with retries")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestLocalEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewLocalEmbedder()

	vec, err := e.Embed(context.Background(), "   \n\t ")
	require.NoError(t, err)

	require.Len(t, vec, LocalDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestLocalEmbedder_SimilarTextsCloserThanUnrelated(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	query, _ := e.Embed(ctx, "open database connection")
	related, _ := e.Embed(ctx, "func openDatabaseConnection(dsn string)")
	unrelated, _ := e.Embed(ctx, "render svg polygon vertices")

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
}

func TestLocalEmbedder_ClosedFails(t *testing.T) {
	e := NewLocalEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "anything")
	assert.Equal(t, sifterrors.ErrCodeEmbedderClosed, sifterrors.GetCode(err))

	_, err = e.EmbedBatch(context.Background(), []string{"anything"})
	assert.Error(t, err)
}

func TestLocalEmbedder_BatchPreservesOrder(t *testing.T) {
	e := NewLocalEmbedder()
	ctx := context.Background()

	texts := []string{"first chunk", "second chunk", "third chunk"}
	vecs, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	for i, text := range texts {
		want, _ := e.Embed(ctx, text)
		assert.Equal(t, want, vecs[i], "batch result %d", i)
	}
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"parseHTTPResponse", []string{"parse", "HTTP", "Response"}},
		{"simpleCase", []string{"simple", "Case"}},
		{"ALLCAPS", []string{"ALLCAPS"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCamelCase(tt.in), "input %q", tt.in)
	}
}

func TestTruncateForModel(t *testing.T) {
	long := make([]byte, 10000)
	for i := range long {
		long[i] = 'a'
	}

	got := truncateForModel(string(long), 100)
	assert.Len(t, got, 400)

	assert.Equal(t, "short", truncateForModel("short", 100))
	assert.Equal(t, string(long), truncateForModel(string(long), 0))
}

func TestInitGate_ConcurrentCallersShareOneInit(t *testing.T) {
	var calls atomic.Int32
	gate := &initGate{}

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.run(context.Background(), func(context.Context) error {
				calls.Add(1)
				close(started)
				<-release
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, gate.ready())
}

func TestInitGate_FailureAllowsRetry(t *testing.T) {
	var calls atomic.Int32
	gate := &initGate{}
	ctx := context.Background()

	err := gate.run(ctx, func(context.Context) error {
		calls.Add(1)
		return assert.AnError
	})
	assert.Error(t, err)
	assert.False(t, gate.ready())

	err = gate.run(ctx, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, gate.ready())
	assert.Equal(t, int32(2), calls.Load())
}

func TestInitGate_ClosedIsTerminal(t *testing.T) {
	gate := &initGate{}
	gate.close()

	err := gate.run(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Equal(t, sifterrors.ErrCodeEmbedderClosed, sifterrors.GetCode(err))
}

// cosine computes cosine similarity between two unit-ish vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
