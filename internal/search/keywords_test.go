package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"plain words", "database connection pool", []string{"database", "connection", "pool"}},
		{"stop words removed", "how do I open a database", []string{"open", "database"}},
		{"lowercased", "HandleRequest ERROR", []string{"handlerequest", "error"}},
		{"punctuation split", "retry.with-backoff()", []string{"retry", "backoff"}},
		{"duplicates removed", "retry retry retry", []string{"retry"}},
		{"short tokens dropped", "x y parse", []string{"parse"}},
		{"all stop words", "the a of in on", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.query))
		})
	}
}

func TestCountMatches(t *testing.T) {
	content := "func OpenDatabase(dsn string) error { return connect(dsn) }"

	// Distinct keywords present, not total occurrences.
	assert.Equal(t, 2, countMatches(content, []string{"database", "connect"}))
	assert.Equal(t, 1, countMatches(content, []string{"dsn"}))
	assert.Equal(t, 0, countMatches(content, []string{"missing"}))
	assert.Equal(t, 0, countMatches(content, nil))
}

func TestBuildHighlight_WindowAroundFirstMatch(t *testing.T) {
	content := "line one\nline two\nfunc openDatabase() {\n\treturn nil\n}\nline six"

	got := buildHighlight(content, []string{"database"}, 3)

	// Window centers near the matching line and wraps the keyword.
	assert.Contains(t, got, "**Database**")
	assert.NotContains(t, got, "line six")
	assert.LessOrEqual(t, lineCount(got), 3)
}

func TestBuildHighlight_NoMatchShowsHead(t *testing.T) {
	content := "alpha\nbeta\ngamma\ndelta"

	got := buildHighlight(content, []string{"missing"}, 2)

	assert.Equal(t, "alpha\nbeta", got)
}

func TestBoldKeywords_PreservesCasing(t *testing.T) {
	assert.Equal(t, "open**Database**Connection",
		boldKeywords("openDatabaseConnection", []string{"database"}))
	assert.Equal(t, "**retry** and **Retry**",
		boldKeywords("retry and Retry", []string{"retry"}))
}

func lineCount(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
