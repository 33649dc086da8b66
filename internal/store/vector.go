package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"
	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// stateKeyDimensions records the embedding dimension the store was built
// with. The dimension is fixed for the lifetime of a store.
const stateKeyDimensions = "embedding_dimensions"

// HNSW graph parameters.
const (
	hnswM        = 16
	hnswEfSearch = 20
)

// Store is a single-shard vector store: one SQLite database for vectors and
// file tracking, mirrored by an in-memory HNSW graph for k-NN search.
// If path is empty the database is in-memory (tests).
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	logger *slog.Logger

	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64 // vector ID -> graph key
	keyMap  map[uint64]string // graph key -> vector ID
	nextKey uint64

	dims        int
	initialized bool
	closed      bool
}

var _ VectorStore = (*Store)(nil)

// NewStore creates a store for the given database path. No I/O happens
// until Initialize.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Initialize opens the database, applies the schema, and rebuilds the HNSW
// graph from the persisted vectors. Idempotent.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return sifterrors.New(sifterrors.ErrCodeStoreClosed, "store is closed", nil)
	}
	if s.initialized {
		return nil
	}

	dsn := ":memory:"
	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return sifterrors.StorageError("create store directory", err)
		}
		if err := s.validateIntegrity(); err != nil {
			// Auto-clear a corrupted shard database. The caller must reindex.
			s.logger.Warn("store_corrupted",
				"path", s.path,
				"error", err)
			_ = os.Remove(s.path)
			_ = os.Remove(s.path + "-wal")
			_ = os.Remove(s.path + "-shm")
		}
		dsn = s.path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return sifterrors.StorageError("open database", err)
	}

	// Single writer: SQLite serializes writes anyway, and one connection
	// avoids lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return sifterrors.StorageError("set pragma", err)
		}
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db

	if err := s.loadState(ctx); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.resetGraph()
	if err := s.loadGraph(ctx); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.initialized = true
	s.logger.Debug("store_opened",
		"path", s.path,
		"vectors", len(s.idMap),
		"dimensions", s.dims)
	return nil
}

// validateIntegrity runs a quick integrity check on an existing database.
func (s *Store) validateIntegrity() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", s.path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// initSchema creates the tables.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS vectors (
	id          TEXT PRIMARY KEY,
	file_path   TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	embedding   BLOB NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_file_path ON vectors(file_path);

CREATE TABLE IF NOT EXISTS files (
	file_path    TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	language     TEXT NOT NULL DEFAULT '',
	chunk_count  INTEGER NOT NULL DEFAULT 0,
	indexed_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS store_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return sifterrors.StorageError("initialize schema", err)
	}
	return nil
}

// loadState reads the persisted embedding dimension.
func (s *Store) loadState(ctx context.Context) error {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM store_state WHERE key = ?`, stateKeyDimensions).Scan(&value)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return sifterrors.StorageError("read store state", err)
	}

	var dims int
	if _, err := fmt.Sscanf(value, "%d", &dims); err != nil {
		return sifterrors.New(sifterrors.ErrCodeCorruptIndex,
			fmt.Sprintf("invalid stored dimension %q", value), err)
	}
	s.dims = dims
	return nil
}

// resetGraph builds an empty HNSW graph.
func (s *Store) resetGraph() {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = hnswM
	graph.EfSearch = hnswEfSearch
	graph.Ml = 0.25

	s.graph = graph
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.nextKey = 0
}

// loadGraph rebuilds the HNSW graph from all persisted vectors.
func (s *Store) loadGraph(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM vectors`)
	if err != nil {
		return sifterrors.StorageError("load vectors", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return sifterrors.StorageError("scan vector", err)
		}
		s.graphAdd(id, decodeEmbedding(blob))
	}
	if err := rows.Err(); err != nil {
		return sifterrors.StorageError("iterate vectors", err)
	}
	return nil
}

// Insert adds one vector.
func (s *Store) Insert(ctx context.Context, v VectorInsert) (string, error) {
	ids, err := s.InsertBatch(ctx, []VectorInsert{v})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertBatch adds vectors in one transaction. Vectors with the same
// identity (file path + chunk index) are replaced.
func (s *Store) InsertBatch(ctx context.Context, vectors []VectorInsert) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []string{}, nil
	}
	if err := s.ensureDims(ctx, len(vectors[0].Embedding)); err != nil {
		return nil, err
	}
	for _, v := range vectors {
		if len(v.Embedding) != s.dims {
			return nil, dimensionMismatch(s.dims, len(v.Embedding))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sifterrors.StorageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids, err := insertVectorsTx(ctx, tx, vectors)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, sifterrors.StorageError("commit insert", err)
	}

	for i, v := range vectors {
		s.graphAdd(ids[i], v.Embedding)
	}
	return ids, nil
}

// insertVectorsTx inserts vector rows inside an open transaction.
func insertVectorsTx(ctx context.Context, tx *sql.Tx, vectors []VectorInsert) ([]string, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO vectors (id, file_path, chunk_index, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, sifterrors.StorageError("prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().Unix()
	ids := make([]string, len(vectors))
	for i, v := range vectors {
		id := VectorID(v.FilePath, v.ChunkIndex)
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return nil, sifterrors.StorageError("marshal metadata", err)
		}
		if _, err := stmt.ExecContext(ctx, id, v.FilePath, v.ChunkIndex, v.Content,
			encodeEmbedding(v.Embedding), string(meta), now); err != nil {
			return nil, sifterrors.StorageError("insert vector", err)
		}
		ids[i] = id
	}
	return ids, nil
}

// Search returns up to limit results with similarity >= threshold, ordered
// by similarity descending.
func (s *Store) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []SearchResult{}, nil
	}
	if len(s.idMap) == 0 {
		return []SearchResult{}, nil
	}
	if len(embedding) != s.dims {
		return nil, dimensionMismatch(s.dims, len(embedding))
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)
	normalizeInPlace(query)

	// Lazy deletion leaves orphan nodes in the graph. Over-fetch by the
	// orphan count so valid neighbors are not crowded out.
	k := limit + (s.graph.Len() - len(s.idMap))
	if k > s.graph.Len() {
		k = s.graph.Len()
	}

	nodes := s.graph.Search(query, k)

	type hit struct {
		id  string
		sim float64
	}
	hits := make([]hit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // orphaned by lazy deletion
		}
		sim := similarityFromDistance(s.graph.Distance(query, node.Value))
		if sim >= threshold {
			hits = append(hits, hit{id: id, sim: sim})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if len(hits) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		v, err := s.getVectorByID(ctx, h.id)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{
			FilePath:   v.FilePath,
			ChunkIndex: v.ChunkIndex,
			Content:    v.Content,
			Similarity: h.sim,
			Metadata:   v.Metadata,
		})
	}
	return results, nil
}

// getVectorByID fetches one vector row without its embedding.
func (s *Store) getVectorByID(ctx context.Context, id string) (*Vector, error) {
	var v Vector
	var meta string
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, file_path, chunk_index, content, metadata, created_at
		FROM vectors WHERE id = ?`, id).
		Scan(&v.ID, &v.FilePath, &v.ChunkIndex, &v.Content, &meta, &createdAt)
	if err != nil {
		return nil, sifterrors.StorageError("load vector row", err)
	}
	if err := json.Unmarshal([]byte(meta), &v.Metadata); err != nil {
		return nil, sifterrors.StorageError("decode vector metadata", err)
	}
	v.CreatedAt = time.Unix(createdAt, 0)
	return &v, nil
}

// GetVectorsForFile returns a file's vectors ordered by chunk index.
func (s *Store) GetVectorsForFile(ctx context.Context, filePath string) ([]Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, chunk_index, content, embedding, metadata, created_at
		FROM vectors WHERE file_path = ? ORDER BY chunk_index`, filePath)
	if err != nil {
		return nil, sifterrors.StorageError("query vectors for file", err)
	}
	defer func() { _ = rows.Close() }()

	var vectors []Vector
	for rows.Next() {
		var v Vector
		var blob []byte
		var meta string
		var createdAt int64
		if err := rows.Scan(&v.ID, &v.FilePath, &v.ChunkIndex, &v.Content, &blob, &meta, &createdAt); err != nil {
			return nil, sifterrors.StorageError("scan vector", err)
		}
		if err := json.Unmarshal([]byte(meta), &v.Metadata); err != nil {
			return nil, sifterrors.StorageError("decode vector metadata", err)
		}
		v.Embedding = decodeEmbedding(blob)
		v.CreatedAt = time.Unix(createdAt, 0)
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}

// DeleteVectorsForFile removes a file's vectors and its tracking record in
// one transaction, returning the number of vectors removed.
func (s *Store) DeleteVectorsForFile(ctx context.Context, filePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, sifterrors.StorageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	oldIDs, err := fileVectorIDsTx(ctx, tx, filePath)
	if err != nil {
		return 0, err
	}
	if err := deleteFileTx(ctx, tx, filePath); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, sifterrors.StorageError("commit delete", err)
	}

	s.graphDelete(oldIDs)
	return len(oldIDs), nil
}

// fileVectorIDsTx lists a file's vector IDs inside a transaction.
func fileVectorIDsTx(ctx context.Context, tx *sql.Tx, filePath string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM vectors WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, sifterrors.StorageError("query file vector ids", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, sifterrors.StorageError("scan vector id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// deleteFileTx removes a file's vector rows and tracking record.
func deleteFileTx(ctx context.Context, tx *sql.Tx, filePath string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE file_path = ?`, filePath); err != nil {
		return sifterrors.StorageError("delete vectors", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file_path = ?`, filePath); err != nil {
		return sifterrors.StorageError("delete tracking record", err)
	}
	return nil
}

// GetFileHash returns the tracked content hash, or "" if untracked.
func (s *Store) GetFileHash(ctx context.Context, filePath string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return "", err
	}

	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM files WHERE file_path = ?`, filePath).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", sifterrors.StorageError("read file hash", err)
	}
	return hash, nil
}

// TrackFile records a file's hash, language, and chunk count.
func (s *Store) TrackFile(ctx context.Context, filePath, hash, language string, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO files (file_path, content_hash, language, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?)`,
		filePath, hash, language, chunkCount, time.Now().Unix())
	if err != nil {
		return sifterrors.StorageError("track file", err)
	}
	return nil
}

// ReplaceFileVectors atomically swaps a file's vectors and tracking record.
// Old rows are deleted, new rows inserted, and the tracking record updated
// inside one transaction, so a crash never leaves the file half-indexed.
func (s *Store) ReplaceFileVectors(ctx context.Context, filePath string, vectors []VectorInsert, hash, language string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if len(vectors) > 0 {
		if err := s.ensureDims(ctx, len(vectors[0].Embedding)); err != nil {
			return nil, err
		}
		for _, v := range vectors {
			if len(v.Embedding) != s.dims {
				return nil, dimensionMismatch(s.dims, len(v.Embedding))
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sifterrors.StorageError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	oldIDs, err := fileVectorIDsTx(ctx, tx, filePath)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE file_path = ?`, filePath); err != nil {
		return nil, sifterrors.StorageError("delete old vectors", err)
	}

	ids, err := insertVectorsTx(ctx, tx, vectors)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO files (file_path, content_hash, language, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?)`,
		filePath, hash, language, len(vectors), time.Now().Unix()); err != nil {
		return nil, sifterrors.StorageError("update tracking record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, sifterrors.StorageError("commit replace", err)
	}

	s.graphDelete(oldIDs)
	for i, v := range vectors {
		s.graphAdd(ids[i], v.Embedding)
	}
	return ids, nil
}

// GetTrackedFiles lists all tracking records.
func (s *Store) GetTrackedFiles(ctx context.Context) ([]FileTrackingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, content_hash, language, chunk_count, indexed_at
		FROM files ORDER BY file_path`)
	if err != nil {
		return nil, sifterrors.StorageError("query tracked files", err)
	}
	defer func() { _ = rows.Close() }()

	var records []FileTrackingRecord
	for rows.Next() {
		var r FileTrackingRecord
		var indexedAt int64
		if err := rows.Scan(&r.FilePath, &r.ContentHash, &r.Language, &r.ChunkCount, &indexedAt); err != nil {
			return nil, sifterrors.StorageError("scan tracking record", err)
		}
		r.IndexedAt = time.Unix(indexedAt, 0)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetStats summarizes the store.
func (s *Store) GetStats(ctx context.Context) (IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return IndexStats{}, err
	}

	var stats IndexStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return IndexStats{}, sifterrors.StorageError("count files", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&stats.TotalChunks); err != nil {
		return IndexStats{}, sifterrors.StorageError("count vectors", err)
	}
	stats.TotalEmbeddings = stats.TotalChunks

	var lastIndexed sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(indexed_at) FROM files`).Scan(&lastIndexed); err != nil {
		return IndexStats{}, sifterrors.StorageError("read last indexed", err)
	}
	if lastIndexed.Valid {
		stats.LastIndexedAt = time.Unix(lastIndexed.Int64, 0)
	}

	if s.path != "" {
		for _, p := range []string{s.path, s.path + "-wal"} {
			if info, err := os.Stat(p); err == nil {
				stats.DatabaseSize += info.Size()
			}
		}
	}
	return stats, nil
}

// Centroid computes the mean embedding of all vectors.
func (s *Store) Centroid(ctx context.Context) ([]float32, int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, 0, 0, err
	}

	var fileCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&fileCount); err != nil {
		return nil, 0, 0, sifterrors.StorageError("count files", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT embedding FROM vectors`)
	if err != nil {
		return nil, 0, 0, sifterrors.StorageError("query embeddings", err)
	}
	defer func() { _ = rows.Close() }()

	var sum []float64
	chunkCount := 0
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, 0, 0, sifterrors.StorageError("scan embedding", err)
		}
		vec := decodeEmbedding(blob)
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		chunkCount++
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, sifterrors.StorageError("iterate embeddings", err)
	}

	if chunkCount == 0 {
		return nil, fileCount, 0, nil
	}

	centroid := make([]float32, len(sum))
	for i, v := range sum {
		centroid[i] = float32(v / float64(chunkCount))
	}
	return centroid, fileCount, chunkCount, nil
}

// Count returns the number of stored vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || !s.initialized {
		return 0
	}
	return len(s.idMap)
}

// Clear removes all data and resets the graph. The embedding dimension is
// reset too, so a store can be rebuilt with a different model.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	for _, stmt := range []string{
		`DELETE FROM vectors`,
		`DELETE FROM files`,
		`DELETE FROM store_state`,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return sifterrors.StorageError("clear store", err)
		}
	}

	s.dims = 0
	s.resetGraph()
	return nil
}

// Close releases the database and graph.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return sifterrors.StorageError("close database", err)
		}
		s.db = nil
	}
	return nil
}

// checkOpen verifies the store is initialized and not closed.
// Callers hold at least a read lock.
func (s *Store) checkOpen() error {
	if s.closed {
		return sifterrors.New(sifterrors.ErrCodeStoreClosed, "store is closed", nil)
	}
	if !s.initialized {
		return sifterrors.StorageError("store not initialized", nil)
	}
	return nil
}

// ensureDims fixes the embedding dimension on first insert and persists it.
// Callers hold the write lock.
func (s *Store) ensureDims(ctx context.Context, dims int) error {
	if dims == 0 {
		return dimensionMismatch(s.dims, 0)
	}
	if s.dims == 0 {
		if _, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO store_state (key, value) VALUES (?, ?)`,
			stateKeyDimensions, fmt.Sprintf("%d", dims)); err != nil {
			return sifterrors.StorageError("persist dimension", err)
		}
		s.dims = dims
		return nil
	}
	if dims != s.dims {
		return dimensionMismatch(s.dims, dims)
	}
	return nil
}

// graphAdd inserts a normalized copy of the embedding into the HNSW graph,
// lazily orphaning any previous node for the same ID.
func (s *Store) graphAdd(id string, embedding []float32) {
	if existing, ok := s.idMap[id]; ok {
		delete(s.keyMap, existing)
		delete(s.idMap, id)
	}

	key := s.nextKey
	s.nextKey++

	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	normalizeInPlace(vec)

	s.graph.Add(hnsw.MakeNode(key, vec))
	s.idMap[id] = key
	s.keyMap[key] = id
}

// graphDelete lazily removes IDs from the graph mappings. The nodes remain
// in the graph but are skipped at search time.
func (s *Store) graphDelete(ids []string) {
	for _, id := range ids {
		if key, ok := s.idMap[id]; ok {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
}

// VectorID derives a stable vector ID from file path and chunk index.
func VectorID(filePath string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", filePath, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

// encodeEmbedding packs a vector as little-endian float32 bytes.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian float32 blob.
func decodeEmbedding(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// normalizeInPlace scales a vector to unit length.
func normalizeInPlace(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	mag := math.Sqrt(sum)
	if mag == 0 {
		return
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / mag)
	}
}

// similarityFromDistance converts cosine distance to similarity in [0, 1].
func similarityFromDistance(distance float32) float64 {
	sim := 1.0 - float64(distance)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// dimensionMismatch builds the standard dimension error.
func dimensionMismatch(expected, got int) error {
	return sifterrors.New(sifterrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil).
		WithSuggestion("run 'codesift clear' and reindex with the current embedding model")
}

// ShardDBName returns the database file name for a shard.
func ShardDBName(shardID int) string {
	return fmt.Sprintf("shard-%d.db", shardID)
}
