package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aman-CERP/codesift/internal/store"
)

// ResultFormatter renders search results and index stats.
type ResultFormatter struct {
	out    io.Writer
	styles Styles
}

// NewResultFormatter creates a formatter. Color is dropped automatically
// for non-TTY writers.
func NewResultFormatter(out io.Writer, noColor bool) *ResultFormatter {
	if !IsTTY(out) || DetectNoColor() {
		noColor = true
	}
	return &ResultFormatter{out: out, styles: GetStyles(noColor)}
}

// RenderResults prints ranked search results with location, score, and
// an optional highlight snippet.
func (f *ResultFormatter) RenderResults(results []store.SearchResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(f.out, f.styles.Dim.Render("No results."))
		return
	}

	for i, r := range results {
		location := fmt.Sprintf("%s:%d-%d", r.FilePath, r.Metadata.StartLine, r.Metadata.EndLine)
		_, _ = fmt.Fprintf(f.out, "%2d. %s  %s\n",
			i+1,
			f.styles.Path.Render(location),
			f.styles.Score.Render(fmt.Sprintf("%.2f", r.Similarity)))

		if name := symbolName(r); name != "" {
			_, _ = fmt.Fprintf(f.out, "    %s\n", f.styles.Label.Render(name))
		}

		snippet := r.Highlight
		if snippet == "" {
			snippet = firstLines(r.Content, 3)
		}
		for _, line := range strings.Split(snippet, "\n") {
			_, _ = fmt.Fprintf(f.out, "    %s\n", f.renderMatches(line))
		}
		_, _ = fmt.Fprintln(f.out)
	}
}

// RenderStats prints index statistics.
func (f *ResultFormatter) RenderStats(stats store.IndexStats, shards []store.ShardDescriptor) {
	_, _ = fmt.Fprintln(f.out, f.styles.Header.Render("Index statistics"))
	_, _ = fmt.Fprintf(f.out, "  %s %d\n", f.styles.Label.Render("files:      "), stats.TotalFiles)
	_, _ = fmt.Fprintf(f.out, "  %s %d\n", f.styles.Label.Render("chunks:     "), stats.TotalChunks)
	_, _ = fmt.Fprintf(f.out, "  %s %d\n", f.styles.Label.Render("embeddings: "), stats.TotalEmbeddings)
	_, _ = fmt.Fprintf(f.out, "  %s %s\n", f.styles.Label.Render("on disk:    "), formatBytes(stats.DatabaseSize))
	if !stats.LastIndexedAt.IsZero() {
		_, _ = fmt.Fprintf(f.out, "  %s %s\n", f.styles.Label.Render("last index: "),
			stats.LastIndexedAt.Format(time.RFC3339))
	}

	if len(shards) > 1 {
		_, _ = fmt.Fprintln(f.out, f.styles.Header.Render("Shards"))
		for _, d := range shards {
			_, _ = fmt.Fprintf(f.out, "  %s %d files, %d chunks\n",
				f.styles.Label.Render(fmt.Sprintf("shard %d:", d.ShardID)), d.FileCount, d.ChunkCount)
		}
	}
}

// renderMatches converts **keyword** markers into styled text.
func (f *ResultFormatter) renderMatches(line string) string {
	var sb strings.Builder
	for {
		open := strings.Index(line, "**")
		if open < 0 {
			sb.WriteString(line)
			break
		}
		rest := line[open+2:]
		closing := strings.Index(rest, "**")
		if closing < 0 {
			sb.WriteString(line)
			break
		}
		sb.WriteString(line[:open])
		sb.WriteString(f.styles.Match.Render(rest[:closing]))
		line = rest[closing+2:]
	}
	return sb.String()
}

func symbolName(r store.SearchResult) string {
	switch {
	case r.Metadata.FunctionName != "":
		return "func " + r.Metadata.FunctionName
	case r.Metadata.ClassScope != "":
		return "in " + r.Metadata.ClassScope
	default:
		return ""
	}
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
