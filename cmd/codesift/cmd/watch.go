package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesift/internal/index"
	"github.com/Aman-CERP/codesift/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the project and keep the index current",
		Long: `Watch observes file changes and re-indexes modified files after a
debounce window, so rapid edit bursts cost one embedding pass.

Runs until interrupted.

Example:
  codesift watch --initial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), initial)
		},
	}

	cmd.Flags().BoolVar(&initial, "initial", false, "Run a full index pass before watching")
	return cmd
}

func runWatch(ctx context.Context, initial bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	indexer := index.NewShardedIndexer(a.store, a.embedderFactory(), a.chunkOptions(), a.cfg.EffectiveWorkers(), a.logger)

	if initial {
		files, err := index.CollectFiles(a.root, a.cfg.Paths, a.cfg.Index.MaxFileSize)
		if err != nil {
			return err
		}
		summary, err := indexer.IndexFiles(ctx, files, nil)
		if err != nil {
			return err
		}
		slog.Info("initial_index_complete",
			"files", summary.FilesIndexed,
			"chunks", summary.ChunksCreated,
			"errors", summary.Errors)
	}

	filter := func(path string, isDir bool) bool {
		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			return rel == "." || !index.Excluded(rel+"/", a.cfg.Paths.Exclude)
		}
		return !index.Excluded(rel, a.cfg.Paths.Exclude)
	}

	w, err := watcher.New(a.root, filter, a.logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	debouncer := watcher.NewDebouncer(a.cfg.DebounceWindow())

	go w.Run(ctx)
	go debouncer.Run(ctx, w.Events())

	slog.Info("watch_started", "root", a.root, "debounce", a.cfg.Watch.Debounce)

	coordinator := index.NewCoordinator(indexer, a.root, a.cfg.Index.MaxFileSize, a.logger)
	if err := coordinator.Run(ctx, debouncer.Events()); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
