// Package search answers natural-language queries against the vector
// store, with an optional hybrid mode that boosts literal keyword matches.
package search

import (
	"strings"
	"unicode"
)

// minKeywordLength drops tokens too short to carry meaning.
const minKeywordLength = 2

// stopWords are common English and query filler words excluded from
// keyword matching.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "with": true,
	"and": true, "or": true, "is": true, "are": true, "was": true,
	"be": true, "by": true, "as": true, "it": true, "that": true,
	"this": true, "from": true, "how": true, "what": true, "where": true,
	"do": true, "does": true, "can": true, "i": true, "my": true,
}

// ExtractKeywords lowercases the query, splits on whitespace and
// punctuation, and drops stop words and short tokens. Duplicates are
// removed; order follows first appearance.
func ExtractKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var keywords []string
	for _, f := range fields {
		if len(f) < minKeywordLength || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	return keywords
}

// countMatches returns how many distinct keywords occur in content
// (case-insensitive substring match).
func countMatches(content string, keywords []string) int {
	lower := strings.ToLower(content)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}
