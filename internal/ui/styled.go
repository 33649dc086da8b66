package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// StyledRenderer draws an in-place progress line with lipgloss styling.
// Falls back to whole lines for errors so they are not overdrawn.
type StyledRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	styles   Styles
	lastLine int
}

// NewStyledRenderer creates a renderer for interactive terminals.
func NewStyledRenderer(cfg Config) *StyledRenderer {
	return &StyledRenderer{
		out:    cfg.Output,
		styles: GetStyles(cfg.NoColor || DetectNoColor()),
	}
}

var _ Renderer = (*StyledRenderer)(nil)

// UpdateProgress implements Renderer.
func (r *StyledRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(r.styles.Stage.Render(fmt.Sprintf("%-9s", event.Stage.String())))
	if event.TotalShards > 1 {
		b.WriteString(r.styles.Label.Render(fmt.Sprintf(" shard %d/%d", event.ShardID+1, event.TotalShards)))
	}
	if event.Total > 0 {
		b.WriteString(fmt.Sprintf(" %s %d/%d", progressBar(event.Current, event.Total, 20), event.Current, event.Total))
	}
	if event.CurrentFile != "" {
		b.WriteString(" ")
		b.WriteString(r.styles.Dim.Render(truncatePath(event.CurrentFile, 48)))
	}

	r.redrawLine(b.String())
}

// ReportError implements Renderer.
func (r *StyledRenderer) ReportError(file string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearLine()
	if file != "" {
		_, _ = fmt.Fprintf(r.out, "%s %s: %v\n", r.styles.Error.Render("error"), file, err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "%s %v\n", r.styles.Error.Render("error"), err)
}

// Complete implements Renderer.
func (r *StyledRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearLine()
	summary := fmt.Sprintf("Indexed %d files (%d chunks) in %s",
		stats.Files, stats.Chunks, stats.Duration.Round(100*time.Millisecond))
	_, _ = fmt.Fprintln(r.out, r.styles.Success.Render("✓")+" "+r.styles.Header.Render(summary))

	if stats.Errors > 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Warning.Render(fmt.Sprintf("  %d files failed", stats.Errors)))
	}
	if stats.EmbedderName != "" {
		_, _ = fmt.Fprintln(r.out, r.styles.Label.Render(
			fmt.Sprintf("  embedder %s, %d dims, %d shards", stats.EmbedderName, stats.Dimensions, stats.Shards)))
	}
}

// redrawLine overwrites the current progress line in place.
func (r *StyledRenderer) redrawLine(line string) {
	r.clearLine()
	_, _ = fmt.Fprint(r.out, line)
	r.lastLine = len(line)
}

func (r *StyledRenderer) clearLine() {
	if r.lastLine == 0 {
		return
	}
	_, _ = fmt.Fprint(r.out, "\r\033[K")
	r.lastLine = 0
}

// progressBar renders a fixed-width unicode bar.
func progressBar(current, total, width int) string {
	if total <= 0 {
		total = 1
	}
	filled := current * width / total
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// truncatePath shortens long paths from the left, keeping the file name.
func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "…" + path[len(path)-max+1:]
}
