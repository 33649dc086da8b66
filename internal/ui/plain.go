package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per update, suitable for CI and pipes.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

var _ Renderer = (*PlainRenderer)(nil)

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}

	switch {
	case event.TotalShards > 1 && event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] shard %d/%d %d/%d - %s\n",
			event.Stage.Icon(), event.ShardID+1, event.TotalShards, event.Current, event.Total, msg)
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n",
			event.Stage.Icon(), event.Current, event.Total, msg)
	case msg != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), msg)
	}
}

// ReportError implements Renderer.
func (r *PlainRenderer) ReportError(file string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if file != "" {
		_, _ = fmt.Fprintf(r.out, "ERROR: %s: %v\n", file, err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "ERROR: %v\n", err)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d files, %d chunks indexed in %s",
		stats.Files, stats.Chunks, stats.Duration.Round(100*time.Millisecond))
	if stats.Errors > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors)", stats.Errors)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.Shards > 1 {
		_, _ = fmt.Fprintf(r.out, "Shards: %d\n", stats.Shards)
	}
	if stats.EmbedderName != "" {
		_, _ = fmt.Fprintf(r.out, "Embedder: %s (%d dims)\n", stats.EmbedderName, stats.Dimensions)
	}
}
