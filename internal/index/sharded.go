package index

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Aman-CERP/codesift/internal/chunk"
	"github.com/Aman-CERP/codesift/internal/embed"
	"github.com/Aman-CERP/codesift/internal/store"
)

// IndexBatchResult summarizes one shard's indexing pass.
type IndexBatchResult struct {
	ShardID       int
	FilesIndexed  int
	ChunksCreated int
	Errors        int
	Duration      time.Duration
}

// BatchSummary aggregates all shard results.
type BatchSummary struct {
	Shards        []IndexBatchResult
	FilesIndexed  int
	ChunksCreated int
	Errors        int
	Duration      time.Duration
}

// EmbedderFactory builds one Embedder per worker so workers never share
// backend state.
type EmbedderFactory func(ctx context.Context) (embed.Embedder, error)

// ShardedIndexer groups files by owning shard and indexes each group,
// sequentially or with a worker pool.
type ShardedIndexer struct {
	store      *store.ShardedStore
	newEmbed   EmbedderFactory
	chunkOpts  chunk.Options
	maxWorkers int
	logger     *slog.Logger
}

// NewShardedIndexer creates a sharded indexer. maxWorkers <= 0 means
// available CPU cores minus one.
func NewShardedIndexer(st *store.ShardedStore, factory EmbedderFactory, chunkOpts chunk.Options, maxWorkers int, logger *slog.Logger) *ShardedIndexer {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() - 1
		if maxWorkers < 1 {
			maxWorkers = 1
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ShardedIndexer{
		store:      st,
		newEmbed:   factory,
		chunkOpts:  chunkOpts,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// groupByShard partitions files by owning shard, preserving input order
// within each shard.
func (si *ShardedIndexer) groupByShard(files []FileContent) map[int][]FileContent {
	groups := make(map[int][]FileContent)
	for _, f := range files {
		id := si.store.GetShardID(f.Path)
		groups[id] = append(groups[id], f)
	}
	return groups
}

// indexShard indexes one shard's files with the given embedder. Per-file
// errors are counted and logged but do not abort the remaining files.
func (si *ShardedIndexer) indexShard(ctx context.Context, shardID int, files []FileContent, embedder embed.Embedder, onFile func(Progress)) IndexBatchResult {
	started := time.Now()
	result := IndexBatchResult{ShardID: shardID}

	shard, err := si.store.Shard(shardID)
	if err != nil {
		result.Errors = len(files)
		return result
	}

	ix := NewIndexer(shard, embedder, chunk.NewWithOptions(si.chunkOpts), si.logger.With("shard", shardID))

	for i, f := range files {
		if ctx.Err() != nil {
			result.Errors += len(files) - i
			break
		}

		if onFile != nil {
			onFile(Progress{
				Phase:       PhaseEmbedding,
				Current:     i + 1,
				Total:       len(files),
				CurrentFile: f.Path,
				ShardID:     shardID,
				TotalShards: si.store.ShardCount(),
			})
		}

		count, err := ix.IndexFile(ctx, f.Path, f.Content)
		if err != nil {
			result.Errors++
			si.logger.Warn("index_file_failed",
				"shard", shardID,
				"file", f.Path,
				"error", err)
			continue
		}
		result.FilesIndexed++
		result.ChunksCreated += count
	}

	result.Duration = time.Since(started)
	return result
}

// IndexFiles indexes all files shard by shard on the calling goroutine.
// Centroids are updated once at the end.
func (si *ShardedIndexer) IndexFiles(ctx context.Context, files []FileContent, onProgress ProgressFunc) (BatchSummary, error) {
	groups := si.groupByShard(files)
	shardIDs := sortedShardIDs(groups)

	embedder, err := si.newEmbed(ctx)
	if err != nil {
		return BatchSummary{}, err
	}
	defer func() { _ = embedder.Close() }()

	started := time.Now()
	summary := BatchSummary{}

	for done, shardID := range shardIDs {
		result := si.indexShard(ctx, shardID, groups[shardID], embedder, func(p Progress) {
			p.ShardsComplete = done
			report(onProgress, p)
		})
		summary.Shards = append(summary.Shards, result)
	}

	si.finishSummary(&summary, started)

	if err := si.store.UpdateCentroids(ctx); err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

// workerMsg is the only communication channel between pool workers and the
// coordinating goroutine. Workers share no mutable state.
type workerMsg struct {
	progress *Progress
	result   *IndexBatchResult
}

// IndexFilesParallel dispatches shard groups to a fixed-size worker pool.
// Each worker owns a disjoint set of shards and its own Embedder instance;
// all coordination happens over channels.
func (si *ShardedIndexer) IndexFilesParallel(ctx context.Context, files []FileContent, onProgress ProgressFunc) (BatchSummary, error) {
	groups := si.groupByShard(files)
	shardIDs := sortedShardIDs(groups)

	workers := si.maxWorkers
	if workers > len(shardIDs) {
		workers = len(shardIDs)
	}
	if workers <= 1 {
		return si.IndexFiles(ctx, files, onProgress)
	}

	tasks := make(chan int)
	msgs := make(chan workerMsg)

	var wg sync.WaitGroup
	var factoryErr error
	var factoryOnce sync.Once

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			embedder, err := si.newEmbed(ctx)
			if err != nil {
				factoryOnce.Do(func() { factoryErr = err })
				for shardID := range tasks {
					msgs <- workerMsg{result: &IndexBatchResult{
						ShardID: shardID,
						Errors:  len(groups[shardID]),
					}}
				}
				return
			}
			defer func() { _ = embedder.Close() }()

			for shardID := range tasks {
				result := si.indexShard(ctx, shardID, groups[shardID], embedder, func(p Progress) {
					msgs <- workerMsg{progress: &p}
				})
				msgs <- workerMsg{result: &result}
			}
		}()
	}

	go func() {
		for _, shardID := range shardIDs {
			tasks <- shardID
		}
		close(tasks)
		wg.Wait()
		close(msgs)
	}()

	started := time.Now()
	summary := BatchSummary{}
	shardsComplete := 0

	for msg := range msgs {
		switch {
		case msg.progress != nil:
			p := *msg.progress
			p.ShardsComplete = shardsComplete
			report(onProgress, p)
		case msg.result != nil:
			summary.Shards = append(summary.Shards, *msg.result)
			shardsComplete++
		}
	}

	sort.Slice(summary.Shards, func(i, j int) bool {
		return summary.Shards[i].ShardID < summary.Shards[j].ShardID
	})
	si.finishSummary(&summary, started)

	if factoryErr != nil {
		return summary, factoryErr
	}
	if err := si.store.UpdateCentroids(ctx); err != nil {
		return summary, err
	}
	return summary, ctx.Err()
}

// DeleteFile removes a file from its owning shard.
func (si *ShardedIndexer) DeleteFile(ctx context.Context, filePath string) error {
	_, err := si.store.DeleteVectorsForFile(ctx, filePath)
	return err
}

// finishSummary computes aggregate totals.
func (si *ShardedIndexer) finishSummary(summary *BatchSummary, started time.Time) {
	for _, r := range summary.Shards {
		summary.FilesIndexed += r.FilesIndexed
		summary.ChunksCreated += r.ChunksCreated
		summary.Errors += r.Errors
	}
	summary.Duration = time.Since(started)

	si.logger.Info("index_batch_complete",
		"files", summary.FilesIndexed,
		"chunks", summary.ChunksCreated,
		"errors", summary.Errors,
		"duration_ms", summary.Duration.Milliseconds())
}

// sortedShardIDs returns the shard IDs with work, ascending.
func sortedShardIDs(groups map[int][]FileContent) []int {
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
