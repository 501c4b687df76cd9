package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/repairsearch-mcp/internal/cache"
	"github.com/dshills/repairsearch-mcp/internal/guidesource"
	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/internal/ranker"
	"github.com/dshills/repairsearch-mcp/internal/resolver"
	"github.com/dshills/repairsearch-mcp/internal/sanitizer"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Defaults
const (
	DefaultOnlineTimeout = 3 * time.Second
	DefaultLanguage      = "en"
)

var (
	ErrResolverRequired = errors.New("resolver is required")
	ErrCacheRequired    = errors.New("cache is required")
	ErrOfflineRequired  = errors.New("offline source is required")
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query      string
	DeviceHint string // Optional explicit device, resolved before the query text
	Language   string // BCP 47 tag; empty selects the engine default
	Limit      int    // 0 selects ranker.DefaultLimit
}

// SearchEngine coordinates sanitization, device resolution, the result
// cache and the two guide sources. Every collaborator is injected.
type SearchEngine struct {
	sanitizer     *sanitizer.Sanitizer
	resolver      *resolver.Resolver
	cache         cache.Cache
	online        guidesource.Online // nil disables online search
	offline       guidesource.Offline
	ranker        *ranker.Ranker
	onlineTimeout time.Duration
	language      string
	logger        *slog.Logger
}

// Option configures a SearchEngine
type Option func(*SearchEngine)

// WithSanitizer replaces the default sanitizer
func WithSanitizer(s *sanitizer.Sanitizer) Option {
	return func(e *SearchEngine) {
		if s != nil {
			e.sanitizer = s
		}
	}
}

// WithRanker replaces the default ranker
func WithRanker(r *ranker.Ranker) Option {
	return func(e *SearchEngine) {
		if r != nil {
			e.ranker = r
		}
	}
}

// WithOnlineTimeout bounds each online source call
func WithOnlineTimeout(d time.Duration) Option {
	return func(e *SearchEngine) {
		if d > 0 {
			e.onlineTimeout = d
		}
	}
}

// WithDefaultLanguage sets the language used when a request has none
func WithDefaultLanguage(lang string) Option {
	return func(e *SearchEngine) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *SearchEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates a SearchEngine. online may be nil, in which case searches use
// the offline source alone and are not marked degraded.
func New(res *resolver.Resolver, c cache.Cache, online guidesource.Online, offline guidesource.Offline, opts ...Option) (*SearchEngine, error) {
	if res == nil {
		return nil, ErrResolverRequired
	}
	if c == nil {
		return nil, ErrCacheRequired
	}
	if offline == nil {
		return nil, ErrOfflineRequired
	}

	e := &SearchEngine{
		sanitizer:     sanitizer.New(sanitizer.DefaultMaxLength),
		resolver:      res,
		cache:         c,
		online:        online,
		offline:       offline,
		ranker:        ranker.New(ranker.DefaultWeights()),
		onlineTimeout: DefaultOnlineTimeout,
		language:      DefaultLanguage,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs a repair guide search. The only error it returns is a
// *types.ValidationError; source failures degrade to offline results and a
// caller deadline yields a best-effort Partial result.
func (e *SearchEngine) Search(ctx context.Context, req SearchRequest) (*types.RankedResults, error) {
	start := time.Now()
	logger := e.logger.With("request_id", uuid.NewString())

	q, err := e.BuildQuery(req)
	if err != nil {
		logger.Info("search rejected", "error", err)
		return nil, err
	}
	limit := ranker.Limit(req.Limit)

	fp := Fingerprint(q)
	logger = logger.With("fingerprint", fp)

	if q.Normalized.Empty() {
		return e.finish(&types.RankedResults{}, q, fp, limit, start), nil
	}

	results, err := e.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (*types.RankedResults, error) {
		return e.fetchAndMerge(ctx, q, logger)
	})

	var te *cache.TransientError
	switch {
	case err == nil:
	case errors.As(err, &te):
		results = te.Results
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		logger.Warn("search deadline reached, returning offline results", "error", err)
		results = e.offlineOnly(q)
		results.Partial = true
	default:
		logger.Error("search computation failed, returning offline results", "error", err)
		results = e.offlineOnly(q)
		results.Degraded = true
	}

	out := e.finish(results, q, fp, limit, start)
	logger.Info("search completed",
		"device", out.Device.Canonical,
		"match_type", out.Device.MatchType,
		"results", len(out.Guides),
		"cache_hit", out.CacheHit,
		"degraded", out.Degraded,
		"partial", out.Partial,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

// BuildQuery validates and analyzes a request without searching.
// A device hint that resolves takes precedence over the query text.
func (e *SearchEngine) BuildQuery(req SearchRequest) (types.SearchQuery, error) {
	text, err := e.sanitizer.Sanitize(req.Query)
	if err != nil {
		return types.SearchQuery{}, err
	}

	var hint string
	if req.DeviceHint != "" {
		if hint, err = e.sanitizer.SanitizeField("device_hint", req.DeviceHint); err != nil {
			return types.SearchQuery{}, err
		}
	}

	lang, err := sanitizer.Language(req.Language, e.language)
	if err != nil {
		return types.SearchQuery{}, err
	}

	if req.Limit < 0 || req.Limit > ranker.MaxLimit {
		return types.SearchQuery{}, types.NewValidationError("limit", types.ReasonInvalidLimit,
			fmt.Sprintf("limit must be between 0 and %d (0 selects the default)", ranker.MaxLimit))
	}

	nq := normalizer.Normalize(text)
	fromQuery := e.resolver.Resolve(nq.Tokens)

	device := fromQuery
	if hint != "" {
		if fromHint := e.resolver.Resolve(normalizer.Normalize(hint).Tokens); fromHint.Resolved() {
			device = fromHint
			// The span refers to the hint's tokens, not the query's
			device.Span = types.Span{}
		}
	}

	// Tokens naming the device are not issue keywords
	var span types.Span
	if fromQuery.Resolved() && fromQuery.Canonical == device.Canonical {
		span = fromQuery.Span
	}

	return types.SearchQuery{
		Normalized:    nq,
		Device:        device,
		Language:      lang,
		IssueKeywords: issueKeywords(nq.Tokens, span),
	}, nil
}

// fetchAndMerge queries both sources concurrently, merges and ranks.
// An online failure yields a *cache.TransientError carrying the offline
// results so they are served but not cached.
func (e *SearchEngine) fetchAndMerge(ctx context.Context, q types.SearchQuery, logger *slog.Logger) (*types.RankedResults, error) {
	lookup := lookupFor(q)

	var online, offline []types.RepairGuide
	var onlineErr error

	var g errgroup.Group
	if e.online != nil {
		g.Go(func() error {
			octx, cancel := context.WithTimeout(ctx, e.onlineTimeout)
			defer cancel()

			online, onlineErr = e.online.SearchOnline(octx, lookup, q.Language)
			if onlineErr != nil && errors.Is(onlineErr, context.DeadlineExceeded) && !errors.Is(onlineErr, types.ErrSourceTimeout) {
				onlineErr = fmt.Errorf("%w: %v", types.ErrSourceTimeout, onlineErr)
			}
			// Source failures degrade rather than fail the group
			return nil
		})
	}
	g.Go(func() error {
		offline = e.offline.SearchOffline(ctx, lookup)
		return nil
	})
	_ = g.Wait()

	merged := merge(online, offline, logger)
	results := &types.RankedResults{
		Guides: e.ranker.Rank(merged, q.Device, q.IssueKeywords),
	}

	if onlineErr != nil {
		logger.Warn("online source failed, degrading to offline results",
			"source", e.online.Name(),
			"error", onlineErr,
			"offline_results", len(offline),
		)
		results.Degraded = true
		return nil, &cache.TransientError{Results: results, Cause: onlineErr}
	}

	logger.Debug("sources merged",
		"online_results", len(online),
		"offline_results", len(offline),
		"merged", len(merged),
	)
	return results, nil
}

// offlineOnly answers from the offline source alone
func (e *SearchEngine) offlineOnly(q types.SearchQuery) *types.RankedResults {
	guides := e.offline.SearchOffline(context.Background(), lookupFor(q))
	return &types.RankedResults{
		Guides: e.ranker.Rank(guides, q.Device, q.IssueKeywords),
	}
}

// finish fills request-specific fields and the empty-result reason
func (e *SearchEngine) finish(r *types.RankedResults, q types.SearchQuery, fp string, limit int, start time.Time) *types.RankedResults {
	if len(r.Guides) > limit {
		r.Guides = r.Guides[:limit]
	}
	r.Device = q.Device
	r.Keywords = append([]string(nil), q.IssueKeywords...)
	r.Fingerprint = fp
	r.Duration = time.Since(start)

	r.Reason = types.ReasonNone
	if r.Empty() {
		switch {
		case r.Partial:
			r.Reason = types.ReasonDeadlineExceeded
		case r.Degraded:
			r.Reason = types.ReasonSourcesUnavailable
		default:
			r.Reason = types.ReasonNoResults
		}
	}
	return r
}

// merge dedupes by CanonicalKey, keeping the online variant on conflict.
// Order is online results first, then new offline results.
func merge(online, offline []types.RepairGuide, logger *slog.Logger) []types.RepairGuide {
	seen := make(map[string]struct{}, len(online)+len(offline))
	out := make([]types.RepairGuide, 0, len(online)+len(offline))

	add := func(g types.RepairGuide) {
		if err := g.Validate(); err != nil {
			logger.Debug("dropping invalid guide", "id", g.ID, "error", err)
			return
		}
		key := g.CanonicalKey()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}

	for _, g := range online {
		add(g)
	}
	for _, g := range offline {
		add(g)
	}
	return out
}

func lookupFor(q types.SearchQuery) guidesource.Lookup {
	lookup := guidesource.Lookup{Keywords: q.IssueKeywords}
	if q.Device.Resolved() {
		lookup.Canonical = q.Device.Canonical
	}
	return lookup
}

// issueKeywords returns the tokens outside the device span with stopwords
// and repeats removed
func issueKeywords(tokens []string, device types.Span) []string {
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for i, tok := range tokens {
		if device.Contains(i) || normalizer.IsStopword(tok) {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
