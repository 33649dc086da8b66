package search

import (
	"strings"
)

// DefaultContextLines is the highlight window around the first keyword hit.
const DefaultContextLines = 3

// buildHighlight extracts a context window around the first line containing
// any keyword, wrapping keyword occurrences in ** markers. Without a match
// the window covers the first lines of the chunk.
func buildHighlight(content string, keywords []string, contextLines int) string {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}

	lines := strings.Split(content, "\n")
	matchLine := -1
	for i, line := range lines {
		if countMatches(line, keywords) > 0 {
			matchLine = i
			break
		}
	}

	start, end := 0, len(lines)
	if matchLine >= 0 {
		start = matchLine - contextLines/2
		if start < 0 {
			start = 0
		}
	}
	if end > start+contextLines {
		end = start + contextLines
	}

	window := lines[start:end]
	highlighted := make([]string, len(window))
	for i, line := range window {
		highlighted[i] = boldKeywords(line, keywords)
	}
	return strings.Join(highlighted, "\n")
}

// boldKeywords wraps case-insensitive keyword occurrences in ** markers,
// preserving the original casing of the matched text.
func boldKeywords(line string, keywords []string) string {
	for _, kw := range keywords {
		line = boldOccurrences(line, kw)
	}
	return line
}

func boldOccurrences(line, keyword string) string {
	var sb strings.Builder
	lower := strings.ToLower(line)
	kw := strings.ToLower(keyword)

	for {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			sb.WriteString(line)
			break
		}
		sb.WriteString(line[:idx])
		sb.WriteString("**")
		sb.WriteString(line[idx : idx+len(kw)])
		sb.WriteString("**")
		line = line[idx+len(kw):]
		lower = lower[idx+len(kw):]
	}
	return sb.String()
}
