package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/codesift/internal/chunk"
	"github.com/Aman-CERP/codesift/internal/config"
	"github.com/Aman-CERP/codesift/internal/embed"
	"github.com/Aman-CERP/codesift/internal/index"
	"github.com/Aman-CERP/codesift/internal/store"
)

// app bundles the wiring every command needs: resolved project root,
// configuration, and the opened sharded store.
type app struct {
	root   string
	cfg    *config.Config
	store  *store.ShardedStore
	logger *slog.Logger
}

// openApp resolves the project root, loads config, and opens the store.
// The returned cleanup closes the store.
func openApp(ctx context.Context) (*app, func(), error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.Default()

	st, err := store.NewShardedStore(cfg.Index.CacheDir, cfg.Index.ShardCount, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Initialize(ctx); err != nil {
		return nil, nil, err
	}

	cleanup := func() { _ = st.Close() }
	return &app{root: root, cfg: cfg, store: st, logger: logger}, cleanup, nil
}

// requireIndex fails with guidance when no files have been indexed yet.
func (a *app) requireIndex(ctx context.Context) error {
	stats, err := a.store.GetStats(ctx)
	if err != nil {
		return err
	}
	if stats.TotalFiles == 0 {
		return fmt.Errorf("no index found. Run 'codesift index' first")
	}
	return nil
}

// embedderFactory builds per-worker embedders from the loaded config.
func (a *app) embedderFactory() index.EmbedderFactory {
	return func(ctx context.Context) (embed.Embedder, error) {
		return embed.NewEmbedder(ctx, a.cfg.Embeddings, a.logger)
	}
}

// newEmbedder builds a single embedder for query-side commands.
func (a *app) newEmbedder(ctx context.Context) (embed.Embedder, error) {
	return embed.NewEmbedder(ctx, a.cfg.Embeddings, a.logger)
}

// chunkOptions maps index config onto chunker options.
func (a *app) chunkOptions() chunk.Options {
	return chunk.Options{
		MaxChunkSize:      a.cfg.Index.ChunkSize,
		Overlap:           a.cfg.Index.ChunkOverlap,
		RespectBoundaries: a.cfg.Index.RespectBoundaries,
	}
}
