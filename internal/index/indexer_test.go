package index

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesift/internal/embed"
	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
	"github.com/Aman-CERP/codesift/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.NewStore(filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestIndexer(t *testing.T, s *store.Store) *Indexer {
	t.Helper()
	return NewIndexer(s, embed.NewLocalEmbedder(), nil, nil)
}

const sampleGo = `package auth

// authenticateUser validates credentials against the user store.
func authenticateUser(username, password string) (bool, error) {
	if username == "" {
		return false, errInvalidUser
	}
	return checkPassword(username, password)
}
`

func TestIndexFile_StoresChunksAndTracks(t *testing.T) {
	s := openTestStore(t)
	ix := newTestIndexer(t, s)
	ctx := context.Background()

	count, err := ix.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)
	require.Positive(t, count)

	vectors, err := s.GetVectorsForFile(ctx, "auth.go")
	require.NoError(t, err)
	assert.Len(t, vectors, count)

	// Chunk indices are contiguous from zero.
	for i, v := range vectors {
		assert.Equal(t, i, v.ChunkIndex)
		assert.Equal(t, "go", v.Metadata.Language)
	}

	hash, err := s.GetFileHash(ctx, "auth.go")
	require.NoError(t, err)
	assert.Equal(t, ContentHash(sampleGo), hash)
}

func TestIndexFile_IdempotentReindex(t *testing.T) {
	// Given an already-indexed file
	s := openTestStore(t)
	ix := newTestIndexer(t, s)
	ctx := context.Background()

	first, err := ix.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)
	before, err := s.GetVectorsForFile(ctx, "auth.go")
	require.NoError(t, err)

	// When the identical content is indexed again
	second, err := ix.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)

	// Then it is a no-op: zero chunks, stored vectors untouched
	assert.Positive(t, first)
	assert.Zero(t, second)

	after, err := s.GetVectorsForFile(ctx, "auth.go")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestIndexFile_EditReplacesVectors(t *testing.T) {
	s := openTestStore(t)
	ix := newTestIndexer(t, s)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)

	edited := strings.Replace(sampleGo, "errInvalidUser", "errMissingUser", 1)
	count, err := ix.IndexFile(ctx, "auth.go", edited)
	require.NoError(t, err)
	require.Positive(t, count)

	vectors, err := s.GetVectorsForFile(ctx, "auth.go")
	require.NoError(t, err)
	require.Len(t, vectors, count)

	var joined strings.Builder
	for _, v := range vectors {
		joined.WriteString(v.Content)
	}
	assert.Contains(t, joined.String(), "errMissingUser")
	assert.NotContains(t, joined.String(), "errInvalidUser")

	hash, err := s.GetFileHash(ctx, "auth.go")
	require.NoError(t, err)
	assert.Equal(t, ContentHash(edited), hash)
}

func TestIndexFile_EmptyContentClearsStaleVectors(t *testing.T) {
	s := openTestStore(t)
	ix := newTestIndexer(t, s)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "notes.txt", "some indexed text\n")
	require.NoError(t, err)

	count, err := ix.IndexFile(ctx, "notes.txt", "   \n")
	require.NoError(t, err)
	assert.Zero(t, count)

	vectors, err := s.GetVectorsForFile(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

// failingEmbedder rejects initialization, like an unreachable backend.
type failingEmbedder struct{}

func (failingEmbedder) Initialize(context.Context) error {
	return sifterrors.InitializationError("model load failed", nil)
}

func (f failingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	return nil, f.Initialize(ctx)
}

func (f failingEmbedder) EmbedBatch(ctx context.Context, _ []string) ([][]float32, error) {
	return nil, f.Initialize(ctx)
}

func (failingEmbedder) Info() embed.ModelInfo { return embed.ModelInfo{Name: "failing"} }
func (failingEmbedder) Close() error          { return nil }

func TestIndexFile_InitFailureLeavesTrackingUnchanged(t *testing.T) {
	// Given a file indexed with a working embedder
	s := openTestStore(t)
	ctx := context.Background()

	working := newTestIndexer(t, s)
	_, err := working.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)
	originalHash, err := s.GetFileHash(ctx, "auth.go")
	require.NoError(t, err)

	// When re-indexing changed content fails at embedder initialization
	broken := NewIndexer(s, failingEmbedder{}, nil, nil)
	_, err = broken.IndexFile(ctx, "auth.go", sampleGo+"\n// changed\n")

	// Then the error is an initialization error and no partial hash was written
	require.Error(t, err)
	assert.True(t, sifterrors.IsInitialization(err))

	hash, err := s.GetFileHash(ctx, "auth.go")
	require.NoError(t, err)
	assert.Equal(t, originalHash, hash)

	vectors, err := s.GetVectorsForFile(ctx, "auth.go")
	require.NoError(t, err)
	assert.NotEmpty(t, vectors)
}

func TestDeleteFile_RemovesVectorsAndTracking(t *testing.T) {
	s := openTestStore(t)
	ix := newTestIndexer(t, s)
	ctx := context.Background()

	_, err := ix.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)

	require.NoError(t, ix.DeleteFile(ctx, "auth.go"))

	vectors, err := s.GetVectorsForFile(ctx, "auth.go")
	require.NoError(t, err)
	assert.Empty(t, vectors)

	// Re-adding identical content indexes fresh (no stale hash short circuit).
	count, err := ix.IndexFile(ctx, "auth.go", sampleGo)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestIndexFiles_ProgressAndTotals(t *testing.T) {
	s := openTestStore(t)
	ix := newTestIndexer(t, s)
	ctx := context.Background()

	files := []FileContent{
		{Path: "a.go", Content: "package a\n\nfunc A() {}\n"},
		{Path: "b.go", Content: "package b\n\nfunc B() {}\n"},
	}

	var phases []Phase
	var lastFile string
	result, err := ix.IndexFiles(ctx, files, func(p Progress) {
		phases = append(phases, p.Phase)
		assert.Equal(t, 2, p.Total)
		lastFile = p.CurrentFile
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesProcessed)
	assert.Positive(t, result.TotalChunks)
	assert.Equal(t, []Phase{PhaseChunking, PhaseEmbedding, PhaseChunking, PhaseEmbedding}, phases)
	assert.Equal(t, "b.go", lastFile)
}

func TestContentHash_Stable(t *testing.T) {
	assert.Equal(t, ContentHash("x"), ContentHash("x"))
	assert.NotEqual(t, ContentHash("x"), ContentHash("y"))
	assert.Len(t, ContentHash(""), 64)
}
