package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesift/internal/index"
	"github.com/Aman-CERP/codesift/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	workers int
	plain   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the project for semantic search",
		Long: `Index walks the project, chunks every source file, embeds the chunks,
and stores them in local shard databases under .codesift/.

Re-running is incremental: files whose content is unchanged are skipped.

Examples:
  codesift index
  codesift index --workers 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Parallel indexing workers (0 = cores - 1)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain text progress output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	a, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	lock, err := index.AcquireLock(ctx, a.cfg.Index.CacheDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	files, err := index.CollectFiles(a.root, a.cfg.Paths, a.cfg.Index.MaxFileSize)
	if err != nil {
		return err
	}
	slog.Info("index_started", "root", a.root, "files", len(files), "shards", a.cfg.Index.ShardCount)

	renderer := ui.NewRenderer(ui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: opts.plain,
		NoColor:    noColor,
	})

	workers := opts.workers
	if workers == 0 {
		workers = a.cfg.EffectiveWorkers()
	}

	indexer := index.NewShardedIndexer(a.store, a.embedderFactory(), a.chunkOptions(), workers, a.logger)

	onProgress := func(p index.Progress) {
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       stageFor(p.Phase),
			Current:     p.Current,
			Total:       p.Total,
			CurrentFile: p.CurrentFile,
			ShardID:     p.ShardID,
			TotalShards: p.TotalShards,
		})
	}

	var summary index.BatchSummary
	if workers > 1 && a.cfg.Index.ShardCount > 1 {
		summary, err = indexer.IndexFilesParallel(ctx, files, onProgress)
	} else {
		summary, err = indexer.IndexFiles(ctx, files, onProgress)
	}
	if err != nil {
		return err
	}

	renderer.Complete(ui.CompletionStats{
		Files:    summary.FilesIndexed,
		Chunks:   summary.ChunksCreated,
		Errors:   summary.Errors,
		Shards:   a.cfg.Index.ShardCount,
		Duration: summary.Duration,
	})
	return nil
}

// stageFor maps indexing phases onto display stages.
func stageFor(phase index.Phase) ui.Stage {
	if phase == index.PhaseChunking {
		return ui.StageChunking
	}
	return ui.StageEmbedding
}
