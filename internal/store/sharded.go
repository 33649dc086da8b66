package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
)

// ProgressFunc receives merged results after each shard completes during a
// progressive search. results is the merged top-limit set so far.
type ProgressFunc func(results []SearchResult, shardID int, isLast bool)

// ShardedStore owns N independent single-shard stores and routes each file
// to exactly one of them by a deterministic hash of its path.
//
// Centroids are recomputed after indexing passes but are not used to prune
// query fan-out: every search queries all shards.
type ShardedStore struct {
	shards     []*Store
	shardCount int
	logger     *slog.Logger

	mu          sync.RWMutex
	descriptors []ShardDescriptor
}

// NewShardedStore creates a sharded store rooted at cacheDir, one database
// file per shard. shardCount must be >= 1 and is fixed for the lifetime of
// an index.
func NewShardedStore(cacheDir string, shardCount int, logger *slog.Logger) (*ShardedStore, error) {
	if shardCount < 1 {
		return nil, sifterrors.New(sifterrors.ErrCodeShardCount,
			fmt.Sprintf("shard count must be >= 1, got %d", shardCount), nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	shards := make([]*Store, shardCount)
	descriptors := make([]ShardDescriptor, shardCount)
	for i := range shards {
		path := ""
		if cacheDir != "" {
			path = filepath.Join(cacheDir, ShardDBName(i))
		}
		shards[i] = NewStore(path, logger.With("shard", i))
		descriptors[i] = ShardDescriptor{ShardID: i}
	}

	return &ShardedStore{
		shards:      shards,
		shardCount:  shardCount,
		logger:      logger,
		descriptors: descriptors,
	}, nil
}

// Initialize opens every shard.
func (s *ShardedStore) Initialize(ctx context.Context) error {
	for i, shard := range s.shards {
		if err := shard.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize shard %d: %w", i, err)
		}
	}
	return nil
}

// ShardCount returns the number of shards.
func (s *ShardedStore) ShardCount() int {
	return s.shardCount
}

// GetShardID routes a file path to its owning shard. Pure and stable:
// identical input always yields the identical shard, across process
// restarts and across single- vs multi-worker runs.
func (s *ShardedStore) GetShardID(filePath string) int {
	return ShardIDFor(filePath, s.shardCount)
}

// ShardIDFor is the routing function: FNV-1a of the path mod shard count.
func ShardIDFor(filePath string, shardCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(filePath))
	return int(h.Sum32() % uint32(shardCount))
}

// Shard returns the store for a shard ID.
func (s *ShardedStore) Shard(shardID int) (*Store, error) {
	if shardID < 0 || shardID >= s.shardCount {
		return nil, sifterrors.ShardRoutingError(
			fmt.Sprintf("shard id %d out of range [0, %d)", shardID, s.shardCount))
	}
	return s.shards[shardID], nil
}

// ShardFor returns the store owning a file path.
func (s *ShardedStore) ShardFor(filePath string) *Store {
	return s.shards[s.GetShardID(filePath)]
}

// InsertBatch routes each vector to its owning shard.
func (s *ShardedStore) InsertBatch(ctx context.Context, vectors []VectorInsert) ([]string, error) {
	byShard := make(map[int][]VectorInsert)
	order := make(map[int][]int)
	for i, v := range vectors {
		id := s.GetShardID(v.FilePath)
		byShard[id] = append(byShard[id], v)
		order[id] = append(order[id], i)
	}

	ids := make([]string, len(vectors))
	for shardID, batch := range byShard {
		batchIDs, err := s.shards[shardID].InsertBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", shardID, err)
		}
		for j, idx := range order[shardID] {
			ids[idx] = batchIDs[j]
		}
	}
	return ids, nil
}

// ReplaceFileVectors delegates to the file's owning shard.
func (s *ShardedStore) ReplaceFileVectors(ctx context.Context, filePath string, vectors []VectorInsert, hash, language string) ([]string, error) {
	return s.ShardFor(filePath).ReplaceFileVectors(ctx, filePath, vectors, hash, language)
}

// DeleteVectorsForFile delegates to the file's owning shard.
func (s *ShardedStore) DeleteVectorsForFile(ctx context.Context, filePath string) (int, error) {
	return s.ShardFor(filePath).DeleteVectorsForFile(ctx, filePath)
}

// GetVectorsForFile delegates to the file's owning shard.
func (s *ShardedStore) GetVectorsForFile(ctx context.Context, filePath string) ([]Vector, error) {
	return s.ShardFor(filePath).GetVectorsForFile(ctx, filePath)
}

// GetFileHash delegates to the file's owning shard.
func (s *ShardedStore) GetFileHash(ctx context.Context, filePath string) (string, error) {
	return s.ShardFor(filePath).GetFileHash(ctx, filePath)
}

// TrackFile delegates to the file's owning shard.
func (s *ShardedStore) TrackFile(ctx context.Context, filePath, hash, language string, chunkCount int) error {
	return s.ShardFor(filePath).TrackFile(ctx, filePath, hash, language, chunkCount)
}

// Search queries all shards sequentially and merges the top-limit results.
func (s *ShardedStore) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	merged := make([]SearchResult, 0, limit)
	for i, shard := range s.shards {
		results, err := shard.Search(ctx, embedding, limit, threshold)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		merged = mergeResults(merged, results, limit)
	}
	return merged, nil
}

// SearchParallel queries all shards concurrently. Completion order across
// shards is undefined; the merged result is deterministic up to score ties.
func (s *ShardedStore) SearchParallel(ctx context.Context, embedding []float32, limit int, threshold float64) ([]SearchResult, error) {
	perShard := make([][]SearchResult, s.shardCount)

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range s.shards {
		g.Go(func() error {
			results, err := shard.Search(gctx, embedding, limit, threshold)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			perShard[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]SearchResult, 0, limit)
	for _, results := range perShard {
		merged = mergeResults(merged, results, limit)
	}
	return merged, nil
}

// SearchProgressive queries shards one at a time, invoking onProgress with
// the merged results so far after each shard. Trades latency-to-first-result
// for reduced peak concurrency.
func (s *ShardedStore) SearchProgressive(ctx context.Context, embedding []float32, limit int, threshold float64, onProgress ProgressFunc) ([]SearchResult, error) {
	merged := make([]SearchResult, 0, limit)
	for i, shard := range s.shards {
		results, err := shard.Search(ctx, embedding, limit, threshold)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		merged = mergeResults(merged, results, limit)
		if onProgress != nil {
			onProgress(merged, i, i == s.shardCount-1)
		}
	}
	return merged, nil
}

// UpdateCentroids recomputes each shard's descriptor after an indexing
// pass. Never runs concurrently with shard writes for the same shard; the
// orchestrating indexer calls it once at the end of a pass.
func (s *ShardedStore) UpdateCentroids(ctx context.Context) error {
	descriptors := make([]ShardDescriptor, s.shardCount)
	for i, shard := range s.shards {
		centroid, fileCount, chunkCount, err := shard.Centroid(ctx)
		if err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
		descriptors[i] = ShardDescriptor{
			ShardID:    i,
			Centroid:   centroid,
			FileCount:  fileCount,
			ChunkCount: chunkCount,
		}
	}

	s.mu.Lock()
	s.descriptors = descriptors
	s.mu.Unlock()

	s.logger.Debug("centroids_updated", "shards", s.shardCount)
	return nil
}

// Descriptors returns the shard descriptors from the last centroid update.
func (s *ShardedStore) Descriptors() []ShardDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ShardDescriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

// GetTrackedFiles merges tracking records from all shards.
func (s *ShardedStore) GetTrackedFiles(ctx context.Context) ([]FileTrackingRecord, error) {
	var all []FileTrackingRecord
	for i, shard := range s.shards {
		records, err := shard.GetTrackedFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		all = append(all, records...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FilePath < all[j].FilePath })
	return all, nil
}

// GetStats aggregates stats across shards.
func (s *ShardedStore) GetStats(ctx context.Context) (IndexStats, error) {
	var total IndexStats
	for i, shard := range s.shards {
		stats, err := shard.GetStats(ctx)
		if err != nil {
			return IndexStats{}, fmt.Errorf("shard %d: %w", i, err)
		}
		total.TotalFiles += stats.TotalFiles
		total.TotalChunks += stats.TotalChunks
		total.TotalEmbeddings += stats.TotalEmbeddings
		total.DatabaseSize += stats.DatabaseSize
		if stats.LastIndexedAt.After(total.LastIndexedAt) {
			total.LastIndexedAt = stats.LastIndexedAt
		}
	}
	return total, nil
}

// Count sums vector counts across shards.
func (s *ShardedStore) Count() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Count()
	}
	return total
}

// Clear wipes every shard.
func (s *ShardedStore) Clear(ctx context.Context) error {
	for i, shard := range s.shards {
		if err := shard.Clear(ctx); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}

	s.mu.Lock()
	for i := range s.descriptors {
		s.descriptors[i] = ShardDescriptor{ShardID: i}
	}
	s.mu.Unlock()
	return nil
}

// Close closes every shard.
func (s *ShardedStore) Close() error {
	var firstErr error
	for i, shard := range s.shards {
		if err := shard.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close shard %d: %w", i, err)
		}
	}
	return firstErr
}

// mergeResults merges two descending-sorted result sets into the top limit.
func mergeResults(a, b []SearchResult, limit int) []SearchResult {
	merged := make([]SearchResult, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
