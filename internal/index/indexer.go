// Package index orchestrates chunking, embedding, and storage.
// The Indexer drives a single logical store; the ShardedIndexer groups
// files by shard and optionally runs a worker pool.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/Aman-CERP/codesift/internal/chunk"
	"github.com/Aman-CERP/codesift/internal/embed"
	"github.com/Aman-CERP/codesift/internal/store"
)

// Phase identifies an indexing stage for progress reporting.
type Phase string

const (
	PhaseChunking  Phase = "chunking"
	PhaseEmbedding Phase = "embedding"
)

// Progress reports indexing state to the caller.
type Progress struct {
	Phase       Phase
	Current     int
	Total       int
	CurrentFile string

	// Shard fields are populated by the ShardedIndexer only.
	ShardID        int
	ShardsComplete int
	TotalShards    int
}

// ProgressFunc receives progress updates during bulk indexing.
type ProgressFunc func(Progress)

// FileContent pairs a file path with its raw content.
type FileContent struct {
	Path    string
	Content string
}

// IndexResult summarizes a sequential bulk-indexing run.
type IndexResult struct {
	TotalChunks    int
	FilesProcessed int
}

// FileStore is the storage surface the Indexer needs. Both a single-shard
// store and the sharded store satisfy it.
type FileStore interface {
	GetFileHash(ctx context.Context, filePath string) (string, error)
	ReplaceFileVectors(ctx context.Context, filePath string, vectors []store.VectorInsert, hash, language string) ([]string, error)
	DeleteVectorsForFile(ctx context.Context, filePath string) (int, error)
}

// Indexer drives the chunk -> embed -> store pipeline for one store.
type Indexer struct {
	chunker  *chunk.Chunker
	embedder embed.Embedder
	store    FileStore
	logger   *slog.Logger
}

// NewIndexer creates an indexer over the given store and embedder.
func NewIndexer(fs FileStore, embedder embed.Embedder, chunker *chunk.Chunker, logger *slog.Logger) *Indexer {
	if chunker == nil {
		chunker = chunk.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		chunker:  chunker,
		embedder: embedder,
		store:    fs,
		logger:   logger,
	}
}

// IndexFile indexes one file's content, returning the number of chunks
// stored. Unchanged content (by hash) is a no-op returning 0.
//
// Embedding happens before any store mutation, so an embedder failure
// leaves both vectors and the tracking record untouched. The replace
// itself is a single store transaction.
func (ix *Indexer) IndexFile(ctx context.Context, filePath, content string) (int, error) {
	hash := ContentHash(content)

	stored, err := ix.store.GetFileHash(ctx, filePath)
	if err != nil {
		return 0, err
	}
	if stored == hash {
		ix.logger.Debug("index_skip_unchanged", "file", filePath)
		return 0, nil
	}

	chunks := ix.chunker.Chunk(content, filePath)
	if len(chunks) == 0 {
		// Nothing embeddable. Drop any stale vectors and track the new
		// hash so the next pass short-circuits.
		if _, err := ix.store.ReplaceFileVectors(ctx, filePath, nil, hash,
			chunk.DetectLanguage(filePath, content)); err != nil {
			return 0, err
		}
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	vectors := make([]store.VectorInsert, len(chunks))
	for i, c := range chunks {
		vectors[i] = store.VectorInsert{
			FilePath:   filePath,
			ChunkIndex: i,
			Content:    c.Content,
			Embedding:  embeddings[i],
			Metadata:   c.Metadata,
		}
	}

	language := chunks[0].Metadata.Language
	if _, err := ix.store.ReplaceFileVectors(ctx, filePath, vectors, hash, language); err != nil {
		return 0, err
	}

	ix.logger.Debug("file_indexed",
		"file", filePath,
		"chunks", len(chunks),
		"language", language)
	return len(chunks), nil
}

// DeleteFile removes a file's vectors and tracking record.
func (ix *Indexer) DeleteFile(ctx context.Context, filePath string) error {
	deleted, err := ix.store.DeleteVectorsForFile(ctx, filePath)
	if err != nil {
		return err
	}
	ix.logger.Debug("file_deleted", "file", filePath, "vectors", deleted)
	return nil
}

// IndexFiles indexes files sequentially, reporting per-file progress.
// A file's error aborts the run (fail-fast); batch-level partial-failure
// tolerance lives in the ShardedIndexer.
func (ix *Indexer) IndexFiles(ctx context.Context, files []FileContent, onProgress ProgressFunc) (IndexResult, error) {
	var result IndexResult
	total := len(files)

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		report(onProgress, Progress{
			Phase: PhaseChunking, Current: i + 1, Total: total, CurrentFile: f.Path,
		})
		report(onProgress, Progress{
			Phase: PhaseEmbedding, Current: i + 1, Total: total, CurrentFile: f.Path,
		})

		count, err := ix.IndexFile(ctx, f.Path, f.Content)
		if err != nil {
			return result, err
		}
		result.TotalChunks += count
		result.FilesProcessed++
	}

	return result, nil
}

// report invokes the progress callback when set.
func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

// ContentHash returns the hex SHA-256 of content, the incremental-indexing
// short-circuit key.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
