package index

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/codesift/internal/watcher"
)

// DefaultMaxFileSize is the largest file the coordinator will index.
const DefaultMaxFileSize = 10 * 1024 * 1024

// binarySniffLen is how many leading bytes are checked for binary content.
const binarySniffLen = 8000

// Coordinator consumes debounced file events and keeps the index current.
// Paths are stored relative to the project root so routing stays stable
// regardless of where the process runs.
type Coordinator struct {
	indexer     *ShardedIndexer
	rootDir     string
	maxFileSize int64
	logger      *slog.Logger
}

// NewCoordinator wires a sharded indexer to a watch event stream.
func NewCoordinator(indexer *ShardedIndexer, rootDir string, maxFileSize int64, logger *slog.Logger) *Coordinator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		indexer:     indexer,
		rootDir:     rootDir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Run processes events until the stream closes or ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, events <-chan watcher.FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(ctx, ev)
		}
	}
}

// handle applies one event. Failures are logged, never fatal: the watch
// loop must survive individual bad files.
func (c *Coordinator) handle(ctx context.Context, ev watcher.FileEvent) {
	relPath, err := filepath.Rel(c.rootDir, ev.FilePath)
	if err != nil {
		relPath = ev.FilePath
	}
	relPath = filepath.ToSlash(relPath)

	switch ev.Type {
	case watcher.EventDeleted:
		if err := c.indexer.DeleteFile(ctx, relPath); err != nil {
			c.logger.Warn("watch_delete_failed", "file", relPath, "error", err)
			return
		}
		c.logger.Info("watch_file_removed", "file", relPath)

	case watcher.EventAdded, watcher.EventModified:
		content, ok := c.readIndexable(ev.FilePath, relPath)
		if !ok {
			return
		}
		summary, err := c.indexer.IndexFiles(ctx, []FileContent{{Path: relPath, Content: content}}, nil)
		if err != nil {
			c.logger.Warn("watch_index_failed", "file", relPath, "error", err)
			return
		}
		c.logger.Info("watch_file_indexed",
			"file", relPath,
			"chunks", summary.ChunksCreated,
			"errors", summary.Errors)
	}
}

// readIndexable loads a file's content, skipping oversized and binary files.
func (c *Coordinator) readIndexable(absPath, relPath string) (string, bool) {
	info, err := os.Stat(absPath)
	if err != nil {
		c.logger.Warn("watch_stat_failed", "file", relPath, "error", err)
		return "", false
	}
	if info.Size() > c.maxFileSize {
		c.logger.Debug("watch_skip_large", "file", relPath, "size", info.Size())
		return "", false
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		c.logger.Warn("watch_read_failed", "file", relPath, "error", err)
		return "", false
	}
	if isBinary(data) {
		c.logger.Debug("watch_skip_binary", "file", relPath)
		return "", false
	}
	return string(data), true
}

// isBinary reports whether content looks binary (NUL byte in the head).
func isBinary(data []byte) bool {
	head := data
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0
}
