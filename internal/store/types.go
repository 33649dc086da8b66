// Package store persists embedding vectors and file tracking records.
// Each shard is one SQLite database plus an in-memory HNSW graph mirroring
// its vector set for k-NN search. SQLite is the source of truth; the graph
// is rebuilt from it on open.
package store

import (
	"context"
	"time"

	"github.com/Aman-CERP/codesift/internal/chunk"
)

// Vector is one embedded chunk as persisted in a shard.
type Vector struct {
	ID         string
	FilePath   string
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   chunk.Metadata
	CreatedAt  time.Time
}

// VectorInsert is the input for inserting one vector.
// The ID is derived from FilePath and ChunkIndex by the store.
type VectorInsert struct {
	FilePath   string
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   chunk.Metadata
}

// SearchResult is a ranked match. Derived, never persisted.
type SearchResult struct {
	FilePath   string         `json:"filePath"`
	ChunkIndex int            `json:"chunkIndex"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   chunk.Metadata `json:"metadata"`
	Highlight  string         `json:"highlight,omitempty"`
}

// FileTrackingRecord tracks one indexed file for incremental re-indexing.
type FileTrackingRecord struct {
	FilePath    string
	ContentHash string
	Language    string
	ChunkCount  int
	IndexedAt   time.Time
}

// IndexStats summarizes a store's contents.
type IndexStats struct {
	TotalFiles      int       `json:"totalFiles"`
	TotalChunks     int       `json:"totalChunks"`
	TotalEmbeddings int       `json:"totalEmbeddings"`
	DatabaseSize    int64     `json:"databaseSize"`
	LastIndexedAt   time.Time `json:"lastIndexedAt"`
}

// ShardDescriptor summarizes one shard for stats and query routing.
// The centroid is the mean embedding of the shard's current vectors.
type ShardDescriptor struct {
	ShardID    int       `json:"shardId"`
	Centroid   []float32 `json:"centroid,omitempty"`
	FileCount  int       `json:"fileCount"`
	ChunkCount int       `json:"chunkCount"`
}

// VectorStore is the persistence contract for one logical store.
// The store is the sole owner of its on-disk data.
type VectorStore interface {
	// Initialize opens the database and rebuilds the search graph.
	Initialize(ctx context.Context) error

	// Insert adds one vector, replacing any vector with the same identity.
	Insert(ctx context.Context, v VectorInsert) (string, error)

	// InsertBatch adds vectors in one transaction, returning their IDs.
	InsertBatch(ctx context.Context, vectors []VectorInsert) ([]string, error)

	// Search returns up to limit results with similarity >= threshold,
	// ordered by similarity descending.
	Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error)

	// GetVectorsForFile returns a file's vectors ordered by chunk index.
	GetVectorsForFile(ctx context.Context, filePath string) ([]Vector, error)

	// DeleteVectorsForFile removes a file's vectors and tracking record,
	// returning the number of vectors removed.
	DeleteVectorsForFile(ctx context.Context, filePath string) (int, error)

	// GetFileHash returns the tracked content hash, or "" if untracked.
	GetFileHash(ctx context.Context, filePath string) (string, error)

	// TrackFile records a file's hash, language, and chunk count.
	TrackFile(ctx context.Context, filePath, hash, language string, chunkCount int) error

	// ReplaceFileVectors atomically swaps a file's vectors and tracking
	// record in one transaction.
	ReplaceFileVectors(ctx context.Context, filePath string, vectors []VectorInsert, hash, language string) ([]string, error)

	// GetTrackedFiles lists all tracking records.
	GetTrackedFiles(ctx context.Context) ([]FileTrackingRecord, error)

	// GetStats summarizes the store.
	GetStats(ctx context.Context) (IndexStats, error)

	// Centroid computes the mean embedding of all vectors, with counts.
	// Returns a nil centroid for an empty store.
	Centroid(ctx context.Context) ([]float32, int, int, error)

	// Count returns the number of stored vectors.
	Count() int

	// Clear removes all data.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
