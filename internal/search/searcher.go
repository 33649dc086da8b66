package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Aman-CERP/codesift/internal/embed"
	sifterrors "github.com/Aman-CERP/codesift/internal/errors"
	"github.com/Aman-CERP/codesift/internal/store"
)

const (
	// DefaultLimit is the default maximum result count.
	DefaultLimit = 10

	// DefaultThreshold is the default minimum similarity.
	DefaultThreshold = 0.3

	// keywordBoost is the per-keyword similarity bonus in hybrid mode.
	keywordBoost = 0.1

	// hybridThresholdScale lowers the candidate threshold in hybrid mode so
	// keyword boosting can rescue near-miss chunks.
	hybridThresholdScale = 0.8

	// hybridCandidateFactor over-fetches candidates before re-ranking.
	hybridCandidateFactor = 2
)

// Options control a single search.
type Options struct {
	// Limit is the maximum result count. 0 means DefaultLimit.
	Limit int

	// Threshold is the minimum similarity. 0 means DefaultThreshold;
	// pass a small positive value to effectively disable filtering.
	Threshold float64

	// Highlight attaches a keyword-highlighted context window to results.
	Highlight bool

	// ContextLines is the highlight window size. 0 means DefaultContextLines.
	ContextLines int
}

func (o Options) normalized() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.ContextLines <= 0 {
		o.ContextLines = DefaultContextLines
	}
	return o
}

// VectorSearcher is the store surface the searcher needs. Both a single
// store and a sharded store satisfy it.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]store.SearchResult, error)
}

// Searcher runs semantic queries against one vector store.
type Searcher struct {
	store    VectorSearcher
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewSearcher creates a searcher over the given store and embedder.
func NewSearcher(s VectorSearcher, embedder embed.Embedder, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{store: s, embedder: embedder, logger: logger}
}

// Search embeds the query and returns the most similar chunks, best first.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]store.SearchResult, error) {
	opts = opts.normalized()
	if query == "" {
		return nil, sifterrors.New(sifterrors.ErrCodeInvalidInput, "query must not be empty", nil)
	}

	start := time.Now()
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.store.Search(ctx, embedding, opts.Limit, opts.Threshold)
	if err != nil {
		return nil, err
	}

	if opts.Highlight {
		attachHighlights(results, ExtractKeywords(query), opts.ContextLines)
	}

	s.logger.Debug("search_complete",
		"query_len", len(query),
		"results", len(results),
		"duration", time.Since(start))
	return results, nil
}

// HybridSearch combines semantic similarity with literal keyword matching.
// It fetches extra candidates at a lowered threshold, boosts each by 0.1
// per distinct query keyword found in its content (similarity capped at
// 1.0), then re-ranks. A query with no usable keywords degrades to a
// plain semantic search.
func (s *Searcher) HybridSearch(ctx context.Context, query string, opts Options) ([]store.SearchResult, error) {
	opts = opts.normalized()
	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return s.Search(ctx, query, opts)
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Search(ctx, embedding,
		opts.Limit*hybridCandidateFactor, opts.Threshold*hybridThresholdScale)
	if err != nil {
		return nil, err
	}

	results := rerankByKeywords(candidates, keywords, opts.Limit)
	if opts.Highlight {
		attachHighlights(results, keywords, opts.ContextLines)
	}

	s.logger.Debug("hybrid_search_complete",
		"keywords", len(keywords),
		"candidates", len(candidates),
		"results", len(results))
	return results, nil
}

// rerankByKeywords applies the keyword boost and returns the top limit
// results in descending boosted order.
func rerankByKeywords(candidates []store.SearchResult, keywords []string, limit int) []store.SearchResult {
	boosted := make([]store.SearchResult, len(candidates))
	copy(boosted, candidates)

	for i := range boosted {
		matches := countMatches(boosted[i].Content, keywords)
		if matches == 0 {
			continue
		}
		boosted[i].Similarity += float64(matches) * keywordBoost
		if boosted[i].Similarity > 1.0 {
			boosted[i].Similarity = 1.0
		}
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Similarity > boosted[j].Similarity
	})
	if len(boosted) > limit {
		boosted = boosted[:limit]
	}
	return boosted
}

func attachHighlights(results []store.SearchResult, keywords []string, contextLines int) {
	for i := range results {
		results[i].Highlight = buildHighlight(results[i].Content, keywords, contextLines)
	}
}
