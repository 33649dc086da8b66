package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesift/internal/search"
	"github.com/Aman-CERP/codesift/internal/store"
	"github.com/Aman-CERP/codesift/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	threshold float64
	hybrid    bool
	stats     bool
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search answers a natural-language query against the indexed codebase.

Hybrid mode additionally boosts chunks containing the query's literal
keywords, which helps when searching for identifiers.

Examples:
  codesift search "authentication middleware"
  codesift search "retry with backoff" --hybrid
  codesift search "error handling" --format json --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "Minimum similarity (0.0-1.0)")
	cmd.Flags().BoolVar(&opts.hybrid, "hybrid", false, "Boost literal keyword matches")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Show per-shard query timing")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	a, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.requireIndex(ctx); err != nil {
		return err
	}

	embedder, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	searcher := search.NewShardedSearcher(a.store, embedder, a.logger)
	searchOpts := search.Options{
		Limit:        firstPositive(opts.limit, a.cfg.Search.Limit),
		Threshold:    opts.threshold,
		Highlight:    opts.format == "text",
		ContextLines: a.cfg.Search.ContextLines,
	}
	if searchOpts.Threshold == 0 {
		searchOpts.Threshold = a.cfg.Search.Threshold
	}

	slog.Info("search_started", "query_len", len(query), "hybrid", opts.hybrid)

	var results []store.SearchResult
	var stats search.SearchStats
	switch {
	case opts.stats:
		results, stats, err = searcher.SearchWithStats(ctx, query, searchOpts)
	case opts.hybrid:
		results, err = searcher.HybridSearch(ctx, query, searchOpts, nil)
	default:
		results, err = searcher.Search(ctx, query, searchOpts, nil)
	}
	if err != nil {
		return err
	}
	slog.Info("search_complete", "results", len(results))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	formatter := ui.NewResultFormatter(cmd.OutOrStdout(), noColor)
	formatter.RenderResults(results)

	if opts.stats {
		for _, shard := range stats.Shards {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shard %d: %d results in %s\n",
				shard.ShardID, shard.Results, shard.Duration)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "embed %s, total %s\n",
			stats.EmbedDuration, stats.TotalDuration)
	}
	return nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
