package guidesource

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// BreakerState represents the state of the circuit breaker.
type BreakerState int

const (
	// BreakerClosed is the normal state - every call goes through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown has elapsed.
	BreakerOpen
	// BreakerHalfOpen lets a single probe call through.
	BreakerHalfOpen
)

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	// Default: 5
	FailureThreshold int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30 seconds
	Cooldown time.Duration

	// Logger for logging breaker transitions.
	Logger *slog.Logger

	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Breaker stops calling a failing online source for a cooldown period so
// that searches degrade to offline results immediately instead of waiting
// for a timeout on every request.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	totalRejected int64
	totalTrips    int64
}

// NewBreaker creates a Breaker with the given configuration.
func NewBreaker(cfg *BreakerConfig) *Breaker {
	if cfg == nil {
		cfg = &BreakerConfig{}
	}

	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 5
	}

	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		now:       now,
		state:     BreakerClosed,
	}
}

// Allow returns types.ErrCircuitOpen when the call must not be made.
// A nil return obliges the caller to report the outcome with RecordSuccess
// or RecordFailure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.totalRejected++
			return types.ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.probing = true
		b.logger.Info("circuit breaker half-open: probing online source")
		return nil

	case BreakerHalfOpen:
		if b.probing {
			b.totalRejected++
			return types.ErrCircuitOpen
		}
		b.probing = true
		return nil
	}

	return nil
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerClosed {
		b.logger.Info("circuit breaker closed: online source recovered")
	}
	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failed call and opens the breaker at the threshold.
// A failed probe reopens it immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probing = false

	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		if b.state != BreakerOpen {
			b.totalTrips++
			b.logger.Warn("circuit breaker opened",
				"consecutive_failures", b.failures,
				"threshold", b.threshold,
				"cooldown", b.cooldown,
			)
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current state of the breaker.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerStats holds circuit breaker statistics.
type BreakerStats struct {
	State         BreakerState
	Failures      int
	TotalRejected int64
	TotalTrips    int64
}

// Stats returns breaker statistics.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:         b.state,
		Failures:      b.failures,
		TotalRejected: b.totalRejected,
		TotalTrips:    b.totalTrips,
	}
}

// Reset manually closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}

// String returns a human-readable state description.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
