package searcher

import (
	"context"

	"github.com/dshills/repairsearch-mcp/internal/cache"
	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/internal/resolver"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// DefaultSuggestions is how many candidate devices ResolveDevice reports
const DefaultSuggestions = 5

// DeviceResolution is the outcome of resolving free text to a device
type DeviceResolution struct {
	Normalized  types.NormalizedQuery
	Device      types.ResolvedDevice
	Suggestions []resolver.Suggestion
}

// ResolveDevice sanitizes and normalizes text and resolves it against the
// alias table, with up to DefaultSuggestions candidate devices
func (e *SearchEngine) ResolveDevice(text string) (*DeviceResolution, error) {
	clean, err := e.sanitizer.Sanitize(text)
	if err != nil {
		return nil, err
	}
	nq := normalizer.Normalize(clean)
	return &DeviceResolution{
		Normalized:  nq,
		Device:      e.resolver.Resolve(nq.Tokens),
		Suggestions: e.resolver.Candidates(nq.Tokens, DefaultSuggestions),
	}, nil
}

// Invalidate drops the cached results for the request's fingerprint and
// returns the fingerprint
func (e *SearchEngine) Invalidate(ctx context.Context, req SearchRequest) (string, error) {
	q, err := e.BuildQuery(req)
	if err != nil {
		return "", err
	}
	fp := Fingerprint(q)
	return fp, e.cache.Invalidate(ctx, fp)
}

// InvalidateFingerprint drops one cache entry by key
func (e *SearchEngine) InvalidateFingerprint(ctx context.Context, fp string) error {
	return e.cache.Invalidate(ctx, fp)
}

// ReloadAliases rebuilds the alias table from src.
// It returns resolver.ErrReloadInProgress if another reload is running.
func (e *SearchEngine) ReloadAliases(ctx context.Context, src resolver.AliasSource) (int, error) {
	return e.resolver.Reload(ctx, src)
}

// SupportedDevices lists the canonical device ids
func (e *SearchEngine) SupportedDevices() []string {
	return e.resolver.SupportedDevices()
}

// Variations lists the alias keys of a canonical device
func (e *SearchEngine) Variations(canonical string) []string {
	return e.resolver.Variations(canonical)
}

// Status summarizes the engine
type Status struct {
	AliasKeys      int
	Devices        int
	OnlineProvider string
	Cache          cache.Stats
}

// Status reports table sizes, the online provider and cache counters
func (e *SearchEngine) Status() Status {
	provider := "none"
	if e.online != nil {
		provider = e.online.Name()
	}
	return Status{
		AliasKeys:      e.resolver.Table().Len(),
		Devices:        len(e.resolver.SupportedDevices()),
		OnlineProvider: provider,
		Cache:          e.cache.Stats(),
	}
}
