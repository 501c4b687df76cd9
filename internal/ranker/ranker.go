// Package ranker orders merged repair guides for a query.
package ranker

import (
	"errors"
	"sort"

	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Result limits
const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// ErrInvalidWeights is returned for negative or all-zero weights
var ErrInvalidWeights = errors.New("ranker weights must be non-negative with a positive sum")

// Weights balance the three score components
type Weights struct {
	Device  float64 // device-match confidence
	Quality float64 // success rate and difficulty
	Keyword float64 // issue keyword overlap
}

// DefaultWeights returns the standard 0.5 / 0.2 / 0.3 split
func DefaultWeights() Weights {
	return Weights{Device: 0.5, Quality: 0.2, Keyword: 0.3}
}

// Validate checks the weights are usable
func (w Weights) Validate() error {
	if w.Device < 0 || w.Quality < 0 || w.Keyword < 0 {
		return ErrInvalidWeights
	}
	if w.Device+w.Quality+w.Keyword <= 0 {
		return ErrInvalidWeights
	}
	return nil
}

// Ranker scores and orders guides
type Ranker struct {
	weights Weights
}

// New creates a Ranker. Invalid weights fall back to DefaultWeights.
func New(w Weights) *Ranker {
	if w.Validate() != nil {
		w = DefaultWeights()
	}
	return &Ranker{weights: w}
}

// Weights returns the weights in use
func (r *Ranker) Weights() Weights {
	return r.weights
}

// Rank scores every guide and returns them best first. The input slice is
// not modified. Equal scores keep input order, so identical inputs always
// produce identical output.
func (r *Ranker) Rank(guides []types.RepairGuide, device types.ResolvedDevice, keywords []string) []types.RepairGuide {
	out := types.CloneGuides(guides)
	if len(out) == 0 {
		return out
	}

	deviceKey := ""
	if device.Resolved() {
		deviceKey = normalizer.Key(device.Canonical)
	}
	terms := significant(keywords)

	for i := range out {
		g := &out[i]
		var deviceMatch float64
		if deviceKey != "" && normalizer.Key(g.DeviceID) == deviceKey {
			deviceMatch = device.Confidence
		}
		g.Score = r.weights.Device*deviceMatch +
			r.weights.Quality*quality(g) +
			r.weights.Keyword*overlap(g, terms)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Limit clamps n to [1, MaxLimit], with 0 selecting DefaultLimit
func Limit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// quality blends success rate with how approachable the repair is
func quality(g *types.RepairGuide) float64 {
	return 0.7*g.SuccessRate + 0.3*ease(g.Difficulty)
}

func ease(difficulty string) float64 {
	switch difficulty {
	case types.DifficultyEasy:
		return 1.0
	case types.DifficultyModerate:
		return 0.75
	case types.DifficultyDifficult:
		return 0.5
	case types.DifficultyVeryHard:
		return 0.25
	default:
		return 0.5
	}
}

// overlap is the fraction of keywords found in the guide's title or category
func overlap(g *types.RepairGuide, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, text := range []string{g.Title, g.Category} {
		for _, tok := range normalizer.Normalize(text).Tokens {
			have[tok] = struct{}{}
		}
	}
	var n int
	for _, t := range terms {
		if _, ok := have[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(terms))
}

// significant drops stopwords and duplicates, keeping first occurrence order
func significant(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if normalizer.IsStopword(kw) {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
