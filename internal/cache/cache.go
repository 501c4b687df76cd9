package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// DefaultTTL is how long a populated entry stays fresh
const DefaultTTL = time.Hour

// ComputeFunc produces the results for a fingerprint on a cache miss
type ComputeFunc func(ctx context.Context) (*types.RankedResults, error)

// Cache is a fingerprinted result cache with single-flight computation.
// Callers always receive copies; stored payloads are never shared.
type Cache interface {
	// Get returns a fresh entry. Expired entries are dropped and reported as a miss.
	Get(ctx context.Context, fp string) (*types.RankedResults, bool)

	// GetOrCompute returns the cached results or runs fn. At most one fn runs
	// per fingerprint at a time; concurrent callers join it and receive its
	// outcome. A failed fn is never stored.
	GetOrCompute(ctx context.Context, fp string, fn ComputeFunc) (*types.RankedResults, error)

	// Put stores results under fp. A non-positive ttl selects the default.
	Put(ctx context.Context, fp string, results *types.RankedResults, ttl time.Duration) error

	// Invalidate removes fp
	Invalidate(ctx context.Context, fp string) error

	// State reports the lifecycle state of fp
	State(ctx context.Context, fp string) State

	// Stats returns counters since creation
	Stats() Stats
}

// State is the lifecycle of a cache entry: absent -> in-flight -> populated -> expired -> absent
type State string

const (
	StateAbsent    State = "absent"
	StateInFlight  State = "in-flight"
	StatePopulated State = "populated"
	StateExpired   State = "expired"
)

// Entry is one stored result set
type Entry struct {
	Fingerprint string
	Results     *types.RankedResults
	InsertedAt  time.Time
	TTL         time.Duration
	Hits        int64
}

// ExpiresAt returns when the entry stops being served
func (e *Entry) ExpiresAt() time.Time {
	return e.InsertedAt.Add(e.TTL)
}

// Expired reports whether the entry is stale at now
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}

// Store is the persistence behind a Manager.
// Load returns (nil, false, nil) on a miss.
type Store interface {
	Load(ctx context.Context, fp string) (*Entry, bool, error)
	Save(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, fp string) error
	Len(ctx context.Context) (int, error)
	Name() string
}

// Sweeper is implemented by stores that can drop expired entries in bulk
type Sweeper interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Stats holds cache counters
type Stats struct {
	Backend  string
	Entries  int
	Hits     int64
	Misses   int64
	Computes int64
	Joins    int64 // deliveries from a computation shared by several callers
	Failures int64
	Expired  int64
}

// HitRate returns hits / (hits + misses)
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// TransientError carries usable results that must not be stored, such as
// offline-only results produced while the online source was failing.
type TransientError struct {
	Results *types.RankedResults
	Cause   error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient results: %v", e.Cause)
}

// Unwrap returns the underlying cause
func (e *TransientError) Unwrap() error {
	return e.Cause
}

// AsTransient extracts transient results from a GetOrCompute error
func AsTransient(err error) (*TransientError, bool) {
	var te *TransientError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// cloneResults deep-copies a result set
func cloneResults(r *types.RankedResults) *types.RankedResults {
	if r == nil {
		return nil
	}
	dst := *r
	dst.Guides = types.CloneGuides(r.Guides)
	dst.Keywords = append([]string(nil), r.Keywords...)
	return &dst
}
