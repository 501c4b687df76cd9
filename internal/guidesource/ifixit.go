package guidesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// iFixit defaults
const (
	DefaultIFixitBaseURL     = "https://www.ifixit.com/api/2.0"
	DefaultIFixitRatePerHour = 100
	DefaultIFixitLimit       = 20

	userAgent = "repairsearch-mcp/1.0"
)

// IFixitConfig configures an IFixitSource
type IFixitConfig struct {
	BaseURL     string
	APIKey      string
	RatePerHour int
	Limit       int
	Retry       RetryConfig
	Breaker     *BreakerConfig
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// IFixitSource implements Online against the iFixit guide API
type IFixitSource struct {
	baseURL    string
	apiKey     string
	limit      int
	retry      RetryConfig
	limiter    *rate.Limiter
	breaker    *Breaker
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Online = (*IFixitSource)(nil)

// NewIFixitSource creates an iFixit client. Zero config fields select defaults.
func NewIFixitSource(cfg IFixitConfig) (*IFixitSource, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultIFixitBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid iFixit base URL %q: %w", baseURL, err)
	}

	perHour := cfg.RatePerHour
	if perHour <= 0 {
		perHour = DefaultIFixitRatePerHour
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultIFixitLimit
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	breakerCfg := cfg.Breaker
	if breakerCfg == nil {
		breakerCfg = &BreakerConfig{}
	}
	if breakerCfg.Logger == nil {
		breakerCfg.Logger = logger
	}

	return &IFixitSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		limit:      limit,
		retry:      retry,
		limiter:    rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
		breaker:    NewBreaker(breakerCfg),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Name implements Online
func (s *IFixitSource) Name() string {
	return ProviderIFixit
}

// Breaker exposes the circuit breaker for status reporting
func (s *IFixitSource) Breaker() *Breaker {
	return s.breaker
}

// SearchOnline implements Online
func (s *IFixitSource) SearchOnline(ctx context.Context, lookup Lookup, language string) ([]types.RepairGuide, error) {
	term := lookup.Term()
	if term == "" {
		return nil, nil
	}

	if err := s.breaker.Allow(); err != nil {
		return nil, err
	}

	// Each attempt counts against the hourly budget
	guides, err := retryWithBackoff(ctx, s.retry, func() ([]types.RepairGuide, error) {
		if !s.limiter.Allow() {
			return nil, types.ErrRateLimited
		}
		return s.callAPI(ctx, term, language, lookup.Canonical)
	})

	switch {
	case err == nil:
		s.breaker.RecordSuccess()
		return guides, nil
	case errors.Is(err, types.ErrRateLimited), errors.Is(err, context.Canceled):
		// Not the service's fault
		s.breaker.RecordSuccess()
	default:
		s.breaker.RecordFailure()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceTimeout, err)
	}
	if errors.Is(err, types.ErrSourceUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", types.ErrSourceUnavailable, err)
}

func (s *IFixitSource) callAPI(ctx context.Context, term, language, canonical string) ([]types.RepairGuide, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("limit", strconv.Itoa(s.limit))
	if language != "" {
		params.Set("langid", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/guides?"+params.Encode(), nil)
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, types.ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: api error %d", types.ErrSourceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, permanent(fmt.Errorf("%w: api error %d: %s", types.ErrSourceUnavailable, resp.StatusCode, string(bodyBytes)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	raw, err := decodeGuideList(body)
	if err != nil {
		return nil, permanent(fmt.Errorf("%w: decode response: %v", types.ErrSourceUnavailable, err))
	}

	guides := make([]types.RepairGuide, 0, len(raw))
	for _, g := range raw {
		guide, ok := g.toGuide(canonical)
		if !ok {
			continue
		}
		guides = append(guides, guide)
	}

	s.logger.Debug("ifixit search completed",
		"term", term,
		"results", len(guides),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return guides, nil
}

// ifixitGuide is the subset of the iFixit guide object we use
type ifixitGuide struct {
	GuideID      int    `json:"guideid"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Difficulty   string `json:"difficulty"`
	Category     string `json:"category"`
	Subject      string `json:"subject"`
	TimeRequired string `json:"time_required"`
	Tools        []struct {
		Text string `json:"text"`
	} `json:"tools"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
	Image *struct {
		Standard string `json:"standard"`
	} `json:"image"`
}

// decodeGuideList accepts both a bare array and a {"results": [...]} envelope
func decodeGuideList(body []byte) ([]ifixitGuide, error) {
	var list []ifixitGuide
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		Results []ifixitGuide `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

func (g ifixitGuide) toGuide(canonical string) (types.RepairGuide, bool) {
	if g.GuideID == 0 || strings.TrimSpace(g.Title) == "" {
		return types.RepairGuide{}, false
	}

	// Guides about the resolved device carry its canonical id so they merge
	// with offline guides for the same repair
	device := g.Subject
	if canonical != "" {
		device = canonical
	}

	var tools, parts []string
	for _, t := range g.Tools {
		if t.Text != "" {
			tools = append(tools, t.Text)
		}
	}
	for _, p := range g.Parts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}

	guide := types.RepairGuide{
		ID:           "ifixit:" + strconv.Itoa(g.GuideID),
		Title:        g.Title,
		Source:       types.SourceOnline,
		DeviceID:     device,
		Category:     g.Category,
		URL:          g.URL,
		Difficulty:   normalizeDifficulty(g.Difficulty),
		TimeEstimate: g.TimeRequired,
		Tools:        tools,
		Parts:        parts,
	}
	guide.SuccessRate = estimateSuccessRate(guide.Difficulty, len(tools) > 0 && len(parts) > 0, g.Image != nil && g.Image.Standard != "")
	return guide, true
}

func normalizeDifficulty(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "easy", "very easy":
		return types.DifficultyEasy
	case "moderate":
		return types.DifficultyModerate
	case "difficult":
		return types.DifficultyDifficult
	case "very difficult":
		return types.DifficultyVeryHard
	default:
		return types.DifficultyUnknown
	}
}

// estimateSuccessRate derives a success rate from difficulty and how
// complete the guide's metadata is. Capped at 0.95.
func estimateSuccessRate(difficulty string, hasToolsAndParts, hasImage bool) float64 {
	var sr float64
	switch difficulty {
	case types.DifficultyEasy:
		sr = 0.9
	case types.DifficultyModerate:
		sr = 0.75
	case types.DifficultyDifficult:
		sr = 0.6
	default:
		sr = 0.4
	}
	if hasToolsAndParts {
		sr += 0.1
	}
	if hasImage {
		sr += 0.05
	}
	if sr > 0.95 {
		sr = 0.95
	}
	return sr
}
