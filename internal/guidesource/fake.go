package guidesource

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Fake is a scripted Online source for tests and offline development.
// It answers from its own guide list after an optional delay.
type Fake struct {
	data  *Dataset
	delay time.Duration
	err   error
	calls atomic.Int64
}

var _ Online = (*Fake)(nil)

// FakeOption configures a Fake
type FakeOption func(*Fake)

// WithDelay makes every call wait d, or until the context is done
func WithDelay(d time.Duration) FakeOption {
	return func(f *Fake) {
		f.delay = d
	}
}

// WithError makes every call fail with err
func WithError(err error) FakeOption {
	return func(f *Fake) {
		f.err = err
	}
}

// NewFake creates a Fake answering from guides. Returned guides are marked
// as online.
func NewFake(guides []types.RepairGuide, opts ...FakeOption) *Fake {
	online := types.CloneGuides(guides)
	for i := range online {
		online[i].Source = types.SourceOnline
	}
	f := &Fake{data: NewDataset(online)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Online
func (f *Fake) Name() string {
	return ProviderFake
}

// Calls returns how many times SearchOnline was invoked
func (f *Fake) Calls() int64 {
	return f.calls.Load()
}

// SearchOnline implements Online
func (f *Fake) SearchOnline(ctx context.Context, lookup Lookup, language string) ([]types.RepairGuide, error) {
	f.calls.Add(1)

	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", types.ErrSourceTimeout, ctx.Err())
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return f.data.SearchOffline(ctx, lookup), nil
}
