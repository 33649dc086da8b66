// Package watcher turns filesystem notifications into debounced file
// change events for the indexer.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a file change.
type EventType string

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
)

// FileEvent is one observed change, the shape consumed by the indexer.
type FileEvent struct {
	FilePath  string
	Type      EventType
	Timestamp time.Time
}

// FilterFunc decides whether a path is watched. Returning false skips the
// path (and, for directories, the whole subtree).
type FilterFunc func(path string, isDir bool) bool

// Watcher recursively watches a directory tree and emits raw file events.
// Pair it with a Debouncer to coalesce rapid edit bursts.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	filter FilterFunc
	logger *slog.Logger

	events chan FileEvent
	done   chan struct{}
}

// New creates a recursive watcher rooted at root. filter may be nil.
func New(root string, filter FilterFunc, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = func(string, bool) bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		fsw:    fsw,
		root:   root,
		filter: filter,
		logger: logger,
		events: make(chan FileEvent, 64),
		done:   make(chan struct{}),
	}

	if err := w.watchTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Events is the stream of raw file events.
func (w *Watcher) Events() <-chan FileEvent {
	return w.events
}

// Run pumps fsnotify events until ctx is cancelled or the watcher closes.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch_error", "error", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// handle maps one fsnotify event onto the FileEvent stream.
func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	path := ev.Name

	switch {
	case ev.Op.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if w.filter(path, true) {
				if err := w.watchTree(path); err != nil {
					w.logger.Warn("watch_subtree_failed", "path", path, "error", err)
				}
			}
			return
		}
		if !w.filter(path, false) {
			return
		}
		w.emit(ctx, FileEvent{FilePath: path, Type: EventAdded, Timestamp: time.Now()})

	case ev.Op.Has(fsnotify.Write):
		if !w.filter(path, false) {
			return
		}
		w.emit(ctx, FileEvent{FilePath: path, Type: EventModified, Timestamp: time.Now()})

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if !w.filter(path, false) {
			return
		}
		w.emit(ctx, FileEvent{FilePath: path, Type: EventDeleted, Timestamp: time.Now()})
	}
}

// emit delivers an event without blocking past cancellation.
func (w *Watcher) emit(ctx context.Context, ev FileEvent) {
	select {
	case w.events <- ev:
	case <-ctx.Done():
	case <-w.done:
	}
}

// watchTree adds watches for root and all nested directories passing the
// filter.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !w.filter(path, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
