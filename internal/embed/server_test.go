package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// fakeServer mimics the inference server's /api/tags and /api/embed routes.
func fakeServer(t *testing.T, models []string, dims int, embedCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		resp := struct {
			Models []model `json:"models"`
		}{}
		for _, m := range models {
			resp.Models = append(resp.Models, model{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		if embedCalls != nil {
			embedCalls.Add(1)
		}
		var req serverEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[i%dims] = 1.0
			embeddings[i] = vec
		}
		_ = json.NewEncoder(w).Encode(serverEmbedResponse{Embeddings: embeddings})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestServerEmbedder_InitializeResolvesModelAndDims(t *testing.T) {
	srv := fakeServer(t, []string{"nomic-embed-text:latest"}, 768, nil)

	e := NewServerEmbedder(ServerConfig{Host: srv.URL, Model: "nomic-embed-text"}, nil)
	defer func() { _ = e.Close() }()

	require.NoError(t, e.Initialize(context.Background()))

	info := e.Info()
	assert.Equal(t, "nomic-embed-text:latest", info.Name)
	assert.Equal(t, 768, info.Dimensions)
}

func TestServerEmbedder_FallbackModel(t *testing.T) {
	srv := fakeServer(t, []string{"all-minilm:latest"}, 384, nil)

	e := NewServerEmbedder(ServerConfig{Host: srv.URL, Model: "missing-model"}, nil)
	defer func() { _ = e.Close() }()

	require.NoError(t, e.Initialize(context.Background()))
	assert.Equal(t, "all-minilm:latest", e.Info().Name)
}

func TestServerEmbedder_NoModelAvailable(t *testing.T) {
	srv := fakeServer(t, []string{"llama3:8b"}, 0, nil)

	e := NewServerEmbedder(ServerConfig{Host: srv.URL}, nil)
	defer func() { _ = e.Close() }()

	err := e.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, sifterrors.IsInitialization(err))
}

func TestServerEmbedder_UnreachableHost(t *testing.T) {
	e := NewServerEmbedder(ServerConfig{Host: "http://127.0.0.1:1"}, nil)
	defer func() { _ = e.Close() }()

	err := e.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, sifterrors.IsInitialization(err))

	// Embedding surfaces the same initialization failure.
	_, err = e.Embed(context.Background(), "query")
	assert.True(t, sifterrors.IsInitialization(err))
}

func TestServerEmbedder_BatchSplitsIntoSubBatches(t *testing.T) {
	var embedCalls atomic.Int32
	srv := fakeServer(t, []string{"nomic-embed-text"}, 8, &embedCalls)

	e := NewServerEmbedder(ServerConfig{Host: srv.URL, BatchSize: 2}, nil)
	defer func() { _ = e.Close() }()

	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)

	// 1 dimension probe + ceil(5/2) sub-batches
	assert.Equal(t, int32(1+3), embedCalls.Load())
}

func TestServerEmbedder_ClosedFails(t *testing.T) {
	srv := fakeServer(t, []string{"nomic-embed-text"}, 8, nil)

	e := NewServerEmbedder(ServerConfig{Host: srv.URL}, nil)
	require.NoError(t, e.Initialize(context.Background()))
	require.NoError(t, e.Close())

	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	assert.Equal(t, sifterrors.ErrCodeEmbedderClosed, sifterrors.GetCode(err))
}

func TestNewEmbedder_AutoFallsBackToLocal(t *testing.T) {
	cfg := configWith("auto", "http://127.0.0.1:1")

	e, err := NewEmbedder(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	// Falls back to the local embedder, which always works offline.
	vec, err := e.Embed(context.Background(), "offline query")
	require.NoError(t, err)
	assert.Len(t, vec, LocalDimensions)
}

func TestNewEmbedder_AutoPrefersServer(t *testing.T) {
	srv := fakeServer(t, []string{"nomic-embed-text"}, 16, nil)
	cfg := configWith("auto", srv.URL)

	e, err := NewEmbedder(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, 16, e.Info().Dimensions)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	cfg := configWith("quantum", "")

	_, err := NewEmbedder(context.Background(), cfg, nil)
	assert.Error(t, err)
}
