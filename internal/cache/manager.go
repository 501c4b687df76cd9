package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Manager implements Cache over a Store
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	group    singleflight.Group
	inflight sync.Map // fingerprint -> struct{}

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
	joins    atomic.Int64
	failures atomic.Int64
	expired  atomic.Int64
}

var _ Cache = (*Manager)(nil)

// Option configures a Manager
type Option func(*Manager)

// WithTTL sets the default entry lifetime
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager backed by store
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Cache
func (m *Manager) Get(ctx context.Context, fp string) (*types.RankedResults, bool) {
	results, ok := m.lookup(ctx, fp)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	results.CacheHit = true
	return results, true
}

// lookup loads a fresh entry without touching hit counters.
// Expired entries are deleted on sight.
func (m *Manager) lookup(ctx context.Context, fp string) (*types.RankedResults, bool) {
	e, ok, err := m.store.Load(ctx, fp)
	if err != nil {
		m.logger.Warn("cache load failed", "fingerprint", fp, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if e.Expired(m.now()) {
		m.expired.Add(1)
		if err := m.store.Delete(ctx, fp); err != nil {
			m.logger.Warn("cache delete failed", "fingerprint", fp, "error", err)
		}
		return nil, false
	}
	return cloneResults(e.Results), true
}

// GetOrCompute implements Cache.
// fn runs on a context detached from the caller's cancellation so that one
// caller leaving does not fail the computation for the others. The caller
// stops waiting when its own ctx is done.
func (m *Manager) GetOrCompute(ctx context.Context, fp string, fn ComputeFunc) (*types.RankedResults, error) {
	if results, ok := m.Get(ctx, fp); ok {
		return results, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(fp, func() (interface{}, error) {
		m.inflight.Store(fp, struct{}{})
		defer m.inflight.Delete(fp)

		// A flight that finished between our miss and this one may have
		// already populated the entry
		if results, ok := m.lookup(detached, fp); ok {
			results.CacheHit = true
			return results, nil
		}

		m.computes.Add(1)
		results, err := fn(detached)
		if err != nil {
			m.failures.Add(1)
			return nil, err
		}
		if results == nil {
			results = &types.RankedResults{}
		}

		if err := m.Put(detached, fp, results, 0); err != nil {
			m.logger.Warn("cache store failed", "fingerprint", fp, "error", err)
		}
		return results, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.joins.Add(1)
		}
		if res.Err != nil {
			// Joined callers each get their own copy of transient results
			if te, ok := AsTransient(res.Err); ok {
				res.Err = &TransientError{Results: cloneResults(te.Results), Cause: te.Cause}
			}
			return nil, fmt.Errorf("%w: %w", types.ErrCacheCompute, res.Err)
		}
		return cloneResults(res.Val.(*types.RankedResults)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put implements Cache
func (m *Manager) Put(ctx context.Context, fp string, results *types.RankedResults, ttl time.Duration) error {
	if results == nil {
		return fmt.Errorf("cannot cache nil results for %s", fp)
	}
	if ttl <= 0 {
		ttl = m.ttl
	}
	stored := cloneResults(results)
	stored.CacheHit = false
	return m.store.Save(ctx, &Entry{
		Fingerprint: fp,
		Results:     stored,
		InsertedAt:  m.now(),
		TTL:         ttl,
	})
}

// Invalidate implements Cache
func (m *Manager) Invalidate(ctx context.Context, fp string) error {
	if err := m.store.Delete(ctx, fp); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", fp, err)
	}
	return nil
}

// State implements Cache
func (m *Manager) State(ctx context.Context, fp string) State {
	if _, ok := m.inflight.Load(fp); ok {
		return StateInFlight
	}
	e, ok, err := m.store.Load(ctx, fp)
	if err != nil || !ok {
		return StateAbsent
	}
	if e.Expired(m.now()) {
		return StateExpired
	}
	return StatePopulated
}

// Sweep drops expired entries when the store supports it and returns how
// many were removed. Stores without bulk expiry rely on lazy deletion in Get.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	sw, ok := m.store.(Sweeper)
	if !ok {
		return 0, nil
	}
	n, err := sw.PurgeExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep cache: %w", err)
	}
	if n > 0 {
		m.expired.Add(int64(n))
		m.logger.Debug("cache swept", "removed", n)
	}
	return n, nil
}

// Stats implements Cache
func (m *Manager) Stats() Stats {
	n, err := m.store.Len(context.Background())
	if err != nil {
		n = -1
	}
	return Stats{
		Backend:  m.store.Name(),
		Entries:  n,
		Hits:     m.hits.Load(),
		Misses:   m.misses.Load(),
		Computes: m.computes.Load(),
		Joins:    m.joins.Load(),
		Failures: m.failures.Load(),
		Expired:  m.expired.Load(),
	}
}
