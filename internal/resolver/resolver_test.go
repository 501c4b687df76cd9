package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repairsearch-mcp/internal/catalog"
	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

func smallTable(t *testing.T) *AliasTable {
	t.Helper()
	table, err := NewAliasTable([]types.DeviceAlias{
		{Alias: "switch", Canonical: "Nintendo Switch", Priority: 20},
		{Alias: "スイッチ", Canonical: "Nintendo Switch", Priority: 20},
		{Alias: "switch lite", Canonical: "Nintendo Switch", Priority: 20},
		{Alias: "iphone", Canonical: "iPhone", Priority: 20},
		{Alias: "ps5", Canonical: "PlayStation 5", Priority: 20},
		{Alias: "ps", Canonical: "PlayStation", Priority: 10},
	})
	require.NoError(t, err)
	return table
}

func catalogResolver(t testing.TB) *Resolver {
	t.Helper()
	aliases, err := catalog.Aliases()
	require.NoError(t, err)
	table, err := NewAliasTable(aliases)
	require.NoError(t, err)
	return New(table)
}

func tokens(text string) []string {
	return normalizer.Normalize(text).Tokens
}

func TestResolveExact(t *testing.T) {
	r := New(smallTable(t))

	tests := []struct {
		name      string
		query     string
		canonical string
		alias     string
		span      types.Span
	}{
		{"single token", "switch screen repair", "Nintendo Switch", "switch", types.Span{Start: 0, End: 1}},
		{"japanese", "スイッチ 画面", "Nintendo Switch", "スイッチ", types.Span{Start: 0, End: 1}},
		{"canonical self alias", "nintendo switch battery", "Nintendo Switch", "nintendo switch", types.Span{Start: 0, End: 2}},
		{"longest phrase wins", "my switch lite hinge", "Nintendo Switch", "switch lite", types.Span{Start: 1, End: 3}},
		{"digits in alias", "PS5 overheating", "PlayStation 5", "ps5", types.Span{Start: 0, End: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tokens(tt.query))
			assert.Equal(t, tt.canonical, got.Canonical)
			assert.Equal(t, types.MatchExact, got.MatchType)
			assert.Equal(t, 1.0, got.Confidence)
			assert.Equal(t, tt.alias, got.MatchedAlias)
			assert.Equal(t, tt.span, got.Span)
		})
	}
}

func TestResolveExactPriorityThenLeftmost(t *testing.T) {
	r := New(smallTable(t))

	// ps5 (priority 20) beats ps (priority 10) regardless of position
	got := r.Resolve([]string{"ps", "ps5"})
	assert.Equal(t, "PlayStation 5", got.Canonical)

	// Equal priority: leftmost wins
	got = r.Resolve([]string{"iphone", "switch"})
	assert.Equal(t, "iPhone", got.Canonical)
}

func TestResolveFuzzy(t *testing.T) {
	r := New(smallTable(t))

	tests := []struct {
		name  string
		query string
	}{
		{"typo in phrase", "nintendo swich"},
		{"truncated", "switc"},
		{"extra letter", "swittch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tokens(tt.query))
			assert.Equal(t, "Nintendo Switch", got.Canonical)
			assert.Equal(t, types.MatchFuzzy, got.MatchType)
			assert.GreaterOrEqual(t, got.Confidence, 0.6)
			assert.Less(t, got.Confidence, 1.0)
		})
	}
}

func TestResolveNone(t *testing.T) {
	r := New(smallTable(t))

	for _, q := range []string{"banana bread recipe", "", "the a", "xy"} {
		got := r.Resolve(tokens(q))
		assert.Equal(t, types.NoDevice(), got, q)
		assert.False(t, got.Resolved(), q)
	}
}

type constScorer float64

func (c constScorer) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return float64(c)
}

func TestExactBeatsFuzzy(t *testing.T) {
	table, err := NewAliasTable([]types.DeviceAlias{
		{Alias: "tv", Canonical: "TV", Priority: 1},
		{Alias: "playstation", Canonical: "PlayStation", Priority: 100},
	})
	require.NoError(t, err)

	// Every fuzzy comparison scores 0.99 and the fuzzy alias carries far
	// higher priority, yet the exact hit on "tv" must still win.
	r := New(table, WithScorer(constScorer(0.99)))
	got := r.Resolve([]string{"playstaton", "tv"})
	assert.Equal(t, "TV", got.Canonical)
	assert.Equal(t, types.MatchExact, got.MatchType)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestFuzzyTieBreak(t *testing.T) {
	table, err := NewAliasTable([]types.DeviceAlias{
		{Alias: "alpha", Canonical: "Device Long", Priority: 5},
		{Alias: "bravo", Canonical: "Device B", Priority: 5},
		{Alias: "charlie", Canonical: "Device A", Priority: 5},
		{Alias: "delta", Canonical: "Low", Priority: 1},
	})
	require.NoError(t, err)

	r := New(table, WithScorer(constScorer(0.7)))
	got := r.Resolve([]string{"zzz"})

	// Same score and priority: shortest canonical id, then lexical order
	assert.Equal(t, "Device A", got.Canonical)
	assert.Equal(t, types.MatchFuzzy, got.MatchType)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestResolveDeterministic(t *testing.T) {
	r := catalogResolver(t)

	queries := []string{"nintendo swich", "プレステ5 ファン", "iphon battery", "banana bread"}
	for _, q := range queries {
		first := r.Resolve(tokens(q))
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, r.Resolve(tokens(q)), q)
		}
	}
}

func TestResolveCatalog(t *testing.T) {
	r := catalogResolver(t)

	tests := []struct {
		query     string
		canonical string
		matchType types.MatchType
	}{
		{"Switch screen repair", "Nintendo Switch", types.MatchExact},
		{"ニンテンドーswitch 充電できない", "Nintendo Switch", types.MatchExact},
		{"任天堂スイッチ", "Nintendo Switch", types.MatchExact},
		{"プレステ５ 冷却", "PlayStation 5", types.MatchExact},
		{"apple watch band", "Apple Watch", types.MatchExact},
		{"Nintendo Swtich", "Nintendo Switch", types.MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := r.Resolve(tokens(tt.query))
			assert.Equal(t, tt.canonical, got.Canonical)
			assert.Equal(t, tt.matchType, got.MatchType)
		})
	}
}

// Symbols glued to a script run stay in the token. This pins the current
// behavior: the bare name resolves, the glued form does not.
func TestResolveGluedSymbolsGap(t *testing.T) {
	r := catalogResolver(t)

	bare := r.Resolve(tokens("スイッチ"))
	assert.Equal(t, "Nintendo Switch", bare.Canonical)
	assert.Equal(t, types.MatchExact, bare.MatchType)

	glued := r.Resolve(tokens("スイッチ+=$^"))
	assert.Equal(t, types.MatchNone, glued.MatchType)
	assert.Empty(t, glued.Canonical)

	// One glued symbol still clears the fuzzy threshold
	one := r.Resolve(tokens("スイッチ+"))
	assert.Equal(t, "Nintendo Switch", one.Canonical)
	assert.Equal(t, types.MatchFuzzy, one.MatchType)
	assert.InDelta(t, 0.8, one.Confidence, 1e-9)
}

func TestCandidates(t *testing.T) {
	r := New(smallTable(t))

	got := r.Candidates(tokens("swich"), 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "Nintendo Switch", got[0].Canonical)
	assert.LessOrEqual(t, len(got), 3)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	exact := r.Candidates(tokens("ps5"), 5)
	require.NotEmpty(t, exact)
	assert.Equal(t, "PlayStation 5", exact[0].Canonical)
	assert.Equal(t, 1.0, exact[0].Score)

	assert.Nil(t, r.Candidates(tokens("ps5"), 0))
}

func TestSupportedDevicesAndVariations(t *testing.T) {
	r := New(smallTable(t))

	assert.Equal(t, []string{"Nintendo Switch", "PlayStation", "PlayStation 5", "iPhone"}, r.SupportedDevices())
	assert.Equal(t, []string{"nintendo switch", "switch", "switch lite", "スイッチ"}, r.Variations("Nintendo Switch"))
	assert.Empty(t, r.Variations("Unknown"))
}

func TestNewAliasTableConflict(t *testing.T) {
	_, err := NewAliasTable([]types.DeviceAlias{
		{Alias: "Switch", Canonical: "Nintendo Switch"},
		{Alias: "ＳＷＩＴＣＨ", Canonical: "Light Switch"},
	})
	assert.True(t, errors.Is(err, types.ErrAliasConflict))

	_, err = NewAliasTable([]types.DeviceAlias{{Alias: "!!!", Canonical: "X"}})
	assert.True(t, errors.Is(err, types.ErrEmptyAlias))

	// Same device twice keeps the higher priority
	table, err := NewAliasTable([]types.DeviceAlias{
		{Alias: "switch", Canonical: "Nintendo Switch", Priority: 1},
		{Alias: "SWITCH", Canonical: "Nintendo Switch", Priority: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, table.byKey["switch"].priority)
}

type aliasList []types.DeviceAlias

func (l aliasList) ListAliases(ctx context.Context) ([]types.DeviceAlias, error) {
	return l, nil
}

type failingAliases struct{}

func (failingAliases) ListAliases(ctx context.Context) ([]types.DeviceAlias, error) {
	return nil, errors.New("db closed")
}

func TestReload(t *testing.T) {
	r := New(smallTable(t))
	ctx := context.Background()

	n, err := r.Reload(ctx, aliasList{{Alias: "pixel", Canonical: "Pixel"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Pixel", r.Resolve([]string{"pixel"}).Canonical)
	assert.False(t, r.Resolve([]string{"switch"}).Resolved())

	// A failed reload keeps the previous table
	_, err = r.Reload(ctx, failingAliases{})
	require.Error(t, err)
	assert.Equal(t, "Pixel", r.Resolve([]string{"pixel"}).Canonical)
}

func TestReloadInProgress(t *testing.T) {
	r := New(smallTable(t))
	require.True(t, r.lock.TryAcquire())
	defer r.lock.Release()

	_, err := r.Reload(context.Background(), aliasList{})
	assert.ErrorIs(t, err, ErrReloadInProgress)
}

func TestResolveDuringReload(t *testing.T) {
	r := catalogResolver(t)
	aliases, err := catalog.Aliases()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := r.Resolve([]string{"switch"})
				assert.Equal(t, "Nintendo Switch", got.Canonical)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, _ = r.Reload(context.Background(), aliasList(aliases))
	}
	wg.Wait()
}

func TestLevenshteinScorer(t *testing.T) {
	s := LevenshteinScorer{}
	assert.Equal(t, 1.0, s.Similarity("switch", "switch"))
	assert.Equal(t, 1.0, s.Similarity("", ""))
	assert.InDelta(t, 5.0/6.0, s.Similarity("switc", "switch"), 1e-9)
	assert.InDelta(t, 0.5, s.Similarity("スイッチ+=$^", "スイッチ"), 1e-9)
	assert.Equal(t, 0.0, s.Similarity("abc", ""))
}
