package resolver

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityScorer rates how alike two normalized strings are.
// Implementations must return a value in [0, 1] and 1 for identical input.
type SimilarityScorer interface {
	Similarity(a, b string) float64
}

// LevenshteinScorer scores by rune edit distance: 1 - distance/longer length
type LevenshteinScorer struct{}

// Similarity implements SimilarityScorer
func (LevenshteinScorer) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}

	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(maxLen)
}
