package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

const (
	// DefaultMaxNgram is the longest token phrase tried against the table
	DefaultMaxNgram = 4

	// DefaultThreshold is the minimum fuzzy similarity accepted by Resolve
	DefaultThreshold = 0.6

	// DefaultSuggestThreshold is the minimum similarity reported by Candidates
	DefaultSuggestThreshold = 0.3

	// minFuzzyRunes is the shortest candidate phrase worth fuzzing
	minFuzzyRunes = 3
)

// ErrReloadInProgress is returned when a reload is already running
var ErrReloadInProgress = errors.New("alias reload already in progress")

// AliasSource supplies the aliases for a table reload
type AliasSource interface {
	ListAliases(ctx context.Context) ([]types.DeviceAlias, error)
}

// Suggestion is a possible device match for an ambiguous query
type Suggestion struct {
	Canonical string
	Alias     string
	Score     float64
}

// Resolver maps query tokens to canonical device ids
type Resolver struct {
	table atomic.Pointer[AliasTable]
	lock  reloadLock

	scorer           SimilarityScorer
	threshold        float64
	suggestThreshold float64
	maxNgram         int
	logger           *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithScorer replaces the default Levenshtein scorer
func WithScorer(s SimilarityScorer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithThreshold sets the minimum fuzzy similarity
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		if threshold > 0 && threshold <= 1 {
			r.threshold = threshold
		}
	}
}

// WithMaxNgram sets the longest phrase length tried
func WithMaxNgram(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxNgram = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver over table
func New(table *AliasTable, opts ...Option) *Resolver {
	r := &Resolver{
		scorer:           LevenshteinScorer{},
		threshold:        DefaultThreshold,
		suggestThreshold: DefaultSuggestThreshold,
		maxNgram:         DefaultMaxNgram,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if table == nil {
		table, _ = NewAliasTable(nil)
	}
	r.table.Store(table)
	return r
}

// Table returns the current alias snapshot
func (r *Resolver) Table() *AliasTable {
	return r.table.Load()
}

// Reload rebuilds the alias table from src and swaps it in atomically.
// Concurrent Resolve calls keep using the previous table until the swap.
func (r *Resolver) Reload(ctx context.Context, src AliasSource) (int, error) {
	if !r.lock.TryAcquire() {
		return 0, ErrReloadInProgress
	}
	defer r.lock.Release()

	aliases, err := src.ListAliases(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load aliases: %w", err)
	}

	table, err := NewAliasTable(aliases)
	if err != nil {
		return 0, fmt.Errorf("failed to build alias table: %w", err)
	}

	r.table.Store(table)
	r.logger.Info("alias table reloaded", "aliases", len(aliases), "keys", table.Len())
	return table.Len(), nil
}

// match is an internal resolution candidate
type match struct {
	entry aliasEntry
	score float64
	start int
	n     int
}

// Resolve maps tokens to a device. Exact phrase matches always win; fuzzy
// matching runs only when no phrase matches exactly. No match is not an error.
func (r *Resolver) Resolve(tokens []string) types.ResolvedDevice {
	table := r.table.Load()
	if len(tokens) == 0 || table.Len() == 0 {
		return types.NoDevice()
	}

	if m, ok := r.exact(table, tokens); ok {
		return m.resolved(types.MatchExact)
	}

	if m, ok := r.fuzzy(table, tokens, r.threshold); ok {
		return m.resolved(types.MatchFuzzy)
	}

	return types.NoDevice()
}

// exact tries the longest phrases first. Within one length the higher
// priority wins, then the leftmost position.
func (r *Resolver) exact(table *AliasTable, tokens []string) (match, bool) {
	for n := min(r.maxNgram, len(tokens)); n >= 1; n-- {
		var best match
		found := false

		for i := 0; i+n <= len(tokens); i++ {
			e, ok := table.byKey[strings.Join(tokens[i:i+n], " ")]
			if !ok {
				continue
			}
			if !found || e.priority > best.entry.priority {
				best = match{entry: e, score: 1.0, start: i, n: n}
				found = true
			}
		}

		if found {
			return best, true
		}
	}
	return match{}, false
}

// fuzzy scores every candidate phrase against every alias key and returns
// the best one at or above threshold.
func (r *Resolver) fuzzy(table *AliasTable, tokens []string, threshold float64) (match, bool) {
	var best match
	found := false

	r.eachCandidate(tokens, func(phrase string, start, n int) {
		for _, e := range table.entries {
			score := r.scorer.Similarity(phrase, e.key)
			if score < threshold {
				continue
			}
			m := match{entry: e, score: score, start: start, n: n}
			if !found || m.beats(best) {
				best = m
				found = true
			}
		}
	})

	return best, found
}

// Candidates returns up to n devices that the tokens may refer to, best first.
// Exact hits are reported with score 1.
func (r *Resolver) Candidates(tokens []string, n int) []Suggestion {
	table := r.table.Load()
	if n <= 0 || len(tokens) == 0 || table.Len() == 0 {
		return nil
	}

	best := make(map[string]match)
	consider := func(m match) {
		cur, ok := best[m.entry.canonical]
		if !ok || m.beats(cur) {
			best[m.entry.canonical] = m
		}
	}

	for size := 1; size <= min(r.maxNgram, len(tokens)); size++ {
		for i := 0; i+size <= len(tokens); i++ {
			if e, ok := table.byKey[strings.Join(tokens[i:i+size], " ")]; ok {
				consider(match{entry: e, score: 1.0, start: i, n: size})
			}
		}
	}

	r.eachCandidate(tokens, func(phrase string, start, size int) {
		for _, e := range table.entries {
			score := r.scorer.Similarity(phrase, e.key)
			if score > r.suggestThreshold {
				consider(match{entry: e, score: score, start: start, n: size})
			}
		}
	})

	matches := make([]match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].beats(matches[j])
	})
	if len(matches) > n {
		matches = matches[:n]
	}

	out := make([]Suggestion, len(matches))
	for i, m := range matches {
		out[i] = Suggestion{Canonical: m.entry.canonical, Alias: m.entry.key, Score: m.score}
	}
	return out
}

// SupportedDevices returns every canonical id in the current table
func (r *Resolver) SupportedDevices() []string {
	return r.table.Load().Devices()
}

// Variations returns the alias keys that resolve to canonical
func (r *Resolver) Variations(canonical string) []string {
	return r.table.Load().Variations(canonical)
}

// eachCandidate visits every phrase of up to maxNgram tokens that is long
// enough to fuzz. Stopword unigrams are skipped.
func (r *Resolver) eachCandidate(tokens []string, fn func(phrase string, start, n int)) {
	for n := 1; n <= min(r.maxNgram, len(tokens)); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 && normalizer.IsStopword(tokens[i]) {
				continue
			}
			phrase := strings.Join(tokens[i:i+n], " ")
			if utf8.RuneCountInString(phrase) < minFuzzyRunes {
				continue
			}
			fn(phrase, i, n)
		}
	}
}

// beats orders matches: higher score, higher priority, shorter canonical id,
// lexical canonical id, lexical alias key, then leftmost and longest span.
func (m match) beats(o match) bool {
	if m.score != o.score {
		return m.score > o.score
	}
	if m.entry.priority != o.entry.priority {
		return m.entry.priority > o.entry.priority
	}
	if len(m.entry.canonical) != len(o.entry.canonical) {
		return len(m.entry.canonical) < len(o.entry.canonical)
	}
	if m.entry.canonical != o.entry.canonical {
		return m.entry.canonical < o.entry.canonical
	}
	if m.entry.key != o.entry.key {
		return m.entry.key < o.entry.key
	}
	if m.start != o.start {
		return m.start < o.start
	}
	return m.n > o.n
}

func (m match) resolved(mt types.MatchType) types.ResolvedDevice {
	return types.ResolvedDevice{
		Canonical:    m.entry.canonical,
		Confidence:   m.score,
		MatchType:    mt,
		MatchedAlias: m.entry.key,
		Span:         types.Span{Start: m.start, End: m.start + m.n},
	}
}
