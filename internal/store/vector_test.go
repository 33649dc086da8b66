package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/codesift/internal/chunk"
	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// unit returns a 4-dim unit vector pointing along the given axis.
func unit(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1.0
	return v
}

// blend returns a normalized mix of two axes.
func blend(a, b int, wa, wb float32) []float32 {
	v := make([]float32, 4)
	v[a] = wa
	v[b] = wb
	normalizeInPlace(v)
	return v
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insert(t *testing.T, s *Store, path string, idx int, content string, vec []float32) {
	t.Helper()
	_, err := s.Insert(context.Background(), VectorInsert{
		FilePath:   path,
		ChunkIndex: idx,
		Content:    content,
		Embedding:  vec,
		Metadata:   chunk.Metadata{StartLine: 1, EndLine: 3, Language: "go"},
	})
	require.NoError(t, err)
}

func TestStore_InsertAndSearch(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	insert(t, s, "auth.go", 0, "func authenticateUser()", unit(0))
	insert(t, s, "render.go", 0, "func drawPolygon()", unit(1))

	results, err := s.Search(ctx, unit(0), 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "auth.go", results[0].FilePath)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, "func authenticateUser()", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.Equal(t, "go", results[0].Metadata.Language)
}

func TestStore_SearchOrderingAndLimit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	insert(t, s, "a.go", 0, "exact", unit(0))
	insert(t, s, "b.go", 0, "close", blend(0, 1, 0.9, 0.1))
	insert(t, s, "c.go", 0, "far", blend(0, 1, 0.5, 0.5))
	insert(t, s, "d.go", 0, "orthogonal", unit(2))

	results, err := s.Search(ctx, unit(0), 2, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a.go", results[0].FilePath)
	assert.Equal(t, "b.go", results[1].FilePath)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestStore_ThresholdFilters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	insert(t, s, "a.go", 0, "match", unit(0))
	insert(t, s, "b.go", 0, "weak", blend(0, 1, 0.3, 0.95))

	results, err := s.Search(ctx, unit(0), 10, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].FilePath)
}

func TestStore_EmptySearch(t *testing.T) {
	s := openStore(t)

	results, err := s.Search(context.Background(), unit(0), 10, 0.3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_DimensionFixedAfterFirstInsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	insert(t, s, "a.go", 0, "x", unit(0))

	_, err := s.Insert(ctx, VectorInsert{
		FilePath: "b.go", Content: "y", Embedding: make([]float32, 8),
	})
	require.Error(t, err)
	assert.Equal(t, sifterrors.ErrCodeDimensionMismatch, sifterrors.GetCode(err))

	_, err = s.Search(ctx, make([]float32, 8), 10, 0.3)
	assert.Equal(t, sifterrors.ErrCodeDimensionMismatch, sifterrors.GetCode(err))
}

func TestStore_FileHashTracking(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	hash, err := s.GetFileHash(ctx, "unknown.go")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, s.TrackFile(ctx, "main.go", "abc123", "go", 4))

	hash, err = s.GetFileHash(ctx, "main.go")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	records, err := s.GetTrackedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "main.go", records[0].FilePath)
	assert.Equal(t, 4, records[0].ChunkCount)
	assert.Equal(t, "go", records[0].Language)
	assert.False(t, records[0].IndexedAt.IsZero())
}

func TestStore_DeleteVectorsForFile(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	insert(t, s, "gone.go", 0, "first", unit(0))
	insert(t, s, "gone.go", 1, "second", blend(0, 1, 0.8, 0.2))
	insert(t, s, "kept.go", 0, "other", unit(1))
	require.NoError(t, s.TrackFile(ctx, "gone.go", "h1", "go", 2))

	deleted, err := s.DeleteVectorsForFile(ctx, "gone.go")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// Deletion completeness: no vectors, no tracking, no search hits.
	vectors, err := s.GetVectorsForFile(ctx, "gone.go")
	require.NoError(t, err)
	assert.Empty(t, vectors)

	hash, err := s.GetFileHash(ctx, "gone.go")
	require.NoError(t, err)
	assert.Empty(t, hash)

	results, err := s.Search(ctx, unit(0), 10, 0.0)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "gone.go", r.FilePath)
	}
	assert.Equal(t, 1, s.Count())
}

func TestStore_ReplaceFileVectors(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFileVectors(ctx, "f.go", []VectorInsert{
		{FilePath: "f.go", ChunkIndex: 0, Content: "old a", Embedding: unit(0)},
		{FilePath: "f.go", ChunkIndex: 1, Content: "old b", Embedding: unit(1)},
		{FilePath: "f.go", ChunkIndex: 2, Content: "old c", Embedding: unit(2)},
	}, "hash-v1", "go")
	require.NoError(t, err)

	_, err = s.ReplaceFileVectors(ctx, "f.go", []VectorInsert{
		{FilePath: "f.go", ChunkIndex: 0, Content: "new a", Embedding: unit(0)},
		{FilePath: "f.go", ChunkIndex: 1, Content: "new b", Embedding: unit(3)},
	}, "hash-v2", "go")
	require.NoError(t, err)

	vectors, err := s.GetVectorsForFile(ctx, "f.go")
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, "new a", vectors[0].Content)
	assert.Equal(t, "new b", vectors[1].Content)
	assert.Equal(t, []int{0, 1}, []int{vectors[0].ChunkIndex, vectors[1].ChunkIndex})

	hash, err := s.GetFileHash(ctx, "f.go")
	require.NoError(t, err)
	assert.Equal(t, "hash-v2", hash)

	// The stale chunk 2 no longer surfaces in search.
	results, err := s.Search(ctx, unit(2), 10, 0.5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 2, s.Count())
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")
	ctx := context.Background()

	s1 := NewStore(path, nil)
	require.NoError(t, s1.Initialize(ctx))
	_, err := s1.Insert(ctx, VectorInsert{
		FilePath: "keep.go", ChunkIndex: 0, Content: "persisted chunk", Embedding: unit(0),
	})
	require.NoError(t, err)
	require.NoError(t, s1.TrackFile(ctx, "keep.go", "h", "go", 1))
	require.NoError(t, s1.Close())

	s2 := NewStore(path, nil)
	require.NoError(t, s2.Initialize(ctx))
	defer func() { _ = s2.Close() }()

	assert.Equal(t, 1, s2.Count())

	results, err := s2.Search(ctx, unit(0), 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted chunk", results[0].Content)

	hash, err := s2.GetFileHash(ctx, "keep.go")
	require.NoError(t, err)
	assert.Equal(t, "h", hash)
}

func TestStore_Clear(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	insert(t, s, "a.go", 0, "x", unit(0))
	require.NoError(t, s.TrackFile(ctx, "a.go", "h", "go", 1))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Count())

	// Dimension resets: a different model size is accepted after Clear.
	_, err := s.Insert(ctx, VectorInsert{
		FilePath: "b.go", Content: "y", Embedding: make([]float32, 8),
	})
	assert.NoError(t, err)
}

func TestStore_StatsAndCentroid(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.ReplaceFileVectors(ctx, "a.go", []VectorInsert{
		{FilePath: "a.go", ChunkIndex: 0, Content: "x", Embedding: unit(0)},
	}, "h1", "go")
	require.NoError(t, err)
	_, err = s.ReplaceFileVectors(ctx, "b.go", []VectorInsert{
		{FilePath: "b.go", ChunkIndex: 0, Content: "y", Embedding: unit(1)},
	}, "h2", "go")
	require.NoError(t, err)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Positive(t, stats.DatabaseSize)
	assert.False(t, stats.LastIndexedAt.IsZero())

	centroid, fileCount, chunkCount, err := s.Centroid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fileCount)
	assert.Equal(t, 2, chunkCount)
	require.Len(t, centroid, 4)
	assert.InDelta(t, 0.5, centroid[0], 1e-5)
	assert.InDelta(t, 0.5, centroid[1], 1e-5)
}

func TestStore_ClosedFails(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Close())

	_, err := s.Search(context.Background(), unit(0), 10, 0.3)
	assert.Equal(t, sifterrors.ErrCodeStoreClosed, sifterrors.GetCode(err))
}

func TestVectorID_Stable(t *testing.T) {
	a := VectorID("src/main.go", 3)
	b := VectorID("src/main.go", 3)
	c := VectorID("src/main.go", 4)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
