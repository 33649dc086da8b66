package cmd

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesift/internal/search"
	"github.com/Aman-CERP/codesift/internal/ui"
)

func newSimilarCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "similar <file>",
		Short: "Find code similar to an indexed file",
		Long: `Similar finds chunks resembling the given file's content, useful for
spotting duplicated logic or related implementations.

The file must already be indexed. Its path is interpreted relative to
the project root.

Example:
  codesift similar internal/auth/login.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimilar(cmd.Context(), cmd, args[0], limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSimilar(ctx context.Context, cmd *cobra.Command, file string, limit int, format string) error {
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

	// Normalize to the slash-relative form used at indexing time.
	if abs, absErr := filepath.Abs(file); absErr == nil {
		if rel, relErr := filepath.Rel(a.root, abs); relErr == nil {
			file = rel
		}
	}
	file = filepath.ToSlash(file)

	searcher := search.NewShardedSearcher(a.store, embedder, a.logger)
	results, err := searcher.FindSimilar(ctx, file, search.Options{
		Limit: firstPositive(limit, a.cfg.Search.Limit),
	})
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	ui.NewResultFormatter(cmd.OutOrStdout(), noColor).RenderResults(results)
	return nil
}
