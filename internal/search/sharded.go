package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/codesift/internal/embed"
	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
	"github.com/Aman-CERP/codesift/internal/store"
)

// DefaultSimilarThreshold is the minimum similarity for code-to-code
// search. Higher than the query default because chunk embeddings of
// related code score well above prose queries.
const DefaultSimilarThreshold = 0.5

// ShardStats captures timing for one shard of a fan-out query.
type ShardStats struct {
	ShardID  int           `json:"shard_id"`
	Results  int           `json:"results"`
	Duration time.Duration `json:"duration"`
}

// SearchStats summarizes a fan-out query across all shards.
type SearchStats struct {
	Shards        []ShardStats  `json:"shards"`
	TotalDuration time.Duration `json:"total_duration"`
	EmbedDuration time.Duration `json:"embed_duration"`
}

// ShardedSearcher fans queries out over a sharded store. Parallel fan-out
// is the default; progressive mode reports merged results after each shard.
type ShardedSearcher struct {
	store    *store.ShardedStore
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewShardedSearcher creates a searcher over a sharded store.
func NewShardedSearcher(s *store.ShardedStore, embedder embed.Embedder, logger *slog.Logger) *ShardedSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShardedSearcher{store: s, embedder: embedder, logger: logger}
}

// Search embeds the query and fans out to all shards in parallel. With a
// non-nil onProgress, shards are queried one at a time and the callback
// receives the merged top-limit set after each.
func (s *ShardedSearcher) Search(ctx context.Context, query string, opts Options, onProgress store.ProgressFunc) ([]store.SearchResult, error) {
	opts = opts.normalized()
	if query == "" {
		return nil, sifterrors.New(sifterrors.ErrCodeInvalidInput, "query must not be empty", nil)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.fanOut(ctx, embedding, opts.Limit, opts.Threshold, onProgress)
	if err != nil {
		return nil, err
	}

	if opts.Highlight {
		attachHighlights(results, ExtractKeywords(query), opts.ContextLines)
	}
	return results, nil
}

// HybridSearch applies keyword boosting on top of the sharded fan-out.
// Candidates are over-fetched from every shard at a lowered threshold and
// re-ranked after the merge. In progressive mode onProgress sees the
// boosted merged set after each shard.
func (s *ShardedSearcher) HybridSearch(ctx context.Context, query string, opts Options, onProgress store.ProgressFunc) ([]store.SearchResult, error) {
	opts = opts.normalized()
	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return s.Search(ctx, query, opts, onProgress)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidateLimit := opts.Limit * hybridCandidateFactor
	candidateThreshold := opts.Threshold * hybridThresholdScale

	boosted := func(candidates []store.SearchResult) []store.SearchResult {
		return rerankByKeywords(candidates, keywords, opts.Limit)
	}

	var candidates []store.SearchResult
	if onProgress != nil {
		candidates, err = s.store.SearchProgressive(ctx, embedding, candidateLimit, candidateThreshold,
			func(partial []store.SearchResult, shardID int, isLast bool) {
				onProgress(boosted(partial), shardID, isLast)
			})
	} else {
		candidates, err = s.store.SearchParallel(ctx, embedding, candidateLimit, candidateThreshold)
	}
	if err != nil {
		return nil, err
	}

	results := boosted(candidates)
	if opts.Highlight {
		attachHighlights(results, keywords, opts.ContextLines)
	}
	return results, nil
}

// SearchWithStats runs a progressive fan-out and records per-shard timing.
func (s *ShardedSearcher) SearchWithStats(ctx context.Context, query string, opts Options) ([]store.SearchResult, SearchStats, error) {
	opts = opts.normalized()
	if query == "" {
		return nil, SearchStats{}, sifterrors.New(sifterrors.ErrCodeInvalidInput, "query must not be empty", nil)
	}

	start := time.Now()
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, SearchStats{}, err
	}
	stats := SearchStats{EmbedDuration: time.Since(start)}

	shardStart := time.Now()
	results, err := s.store.SearchProgressive(ctx, embedding, opts.Limit, opts.Threshold,
		func(merged []store.SearchResult, shardID int, isLast bool) {
			now := time.Now()
			stats.Shards = append(stats.Shards, ShardStats{
				ShardID:  shardID,
				Results:  len(merged),
				Duration: now.Sub(shardStart),
			})
			shardStart = now
		})
	if err != nil {
		return nil, SearchStats{}, err
	}
	stats.TotalDuration = time.Since(start)

	if opts.Highlight {
		attachHighlights(results, ExtractKeywords(query), opts.ContextLines)
	}

	s.logger.Debug("search_stats",
		"shards", len(stats.Shards),
		"results", len(results),
		"duration", stats.TotalDuration)
	return results, stats, nil
}

// FindSimilar finds code similar to an already-indexed file. The file's
// stored chunk embeddings are averaged into a probe vector; results from
// the file itself are dropped.
func (s *ShardedSearcher) FindSimilar(ctx context.Context, filePath string, opts Options) ([]store.SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultSimilarThreshold
	}

	vectors, err := s.store.GetVectorsForFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, sifterrors.New(sifterrors.ErrCodeInvalidInput,
			fmt.Sprintf("file not indexed: %s", filePath), nil)
	}

	probe := averageEmbeddings(vectors)

	// Over-fetch so dropping the file's own chunks still fills the limit.
	raw, err := s.store.SearchParallel(ctx, probe, opts.Limit+len(vectors), opts.Threshold)
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, 0, opts.Limit)
	for _, r := range raw {
		if r.FilePath == filePath {
			continue
		}
		results = append(results, r)
		if len(results) == opts.Limit {
			break
		}
	}
	return results, nil
}

func (s *ShardedSearcher) fanOut(ctx context.Context, embedding []float32, limit int, threshold float64, onProgress store.ProgressFunc) ([]store.SearchResult, error) {
	if onProgress != nil {
		return s.store.SearchProgressive(ctx, embedding, limit, threshold, onProgress)
	}
	return s.store.SearchParallel(ctx, embedding, limit, threshold)
}

// averageEmbeddings computes the mean of a file's chunk embeddings.
func averageEmbeddings(vectors []store.Vector) []float32 {
	dims := len(vectors[0].Embedding)
	sum := make([]float64, dims)
	for _, v := range vectors {
		for i, x := range v.Embedding {
			sum[i] += float64(x)
		}
	}

	probe := make([]float32, dims)
	n := float64(len(vectors))
	for i := range probe {
		probe[i] = float32(sum[i] / n)
	}
	return probe
}
