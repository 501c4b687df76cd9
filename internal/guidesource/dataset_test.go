package guidesource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repairsearch-mcp/internal/catalog"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

func catalogDataset(t *testing.T) *Dataset {
	t.Helper()
	guides, err := catalog.Guides()
	require.NoError(t, err)
	return NewDataset(guides)
}

func ids(guides []types.RepairGuide) []string {
	out := make([]string, len(guides))
	for i, g := range guides {
		out[i] = g.ID
	}
	return out
}

func TestDatasetByDevice(t *testing.T) {
	d := catalogDataset(t)
	ctx := context.Background()

	got := d.SearchOffline(ctx, Lookup{Canonical: "Nintendo Switch", Keywords: []string{"screen"}})
	assert.Equal(t, []string{"switch_screen_replacement", "switch_joycon_drift", "switch_battery_replacement"}, ids(got))

	// Canonical matching ignores case and spacing
	got = d.SearchOffline(ctx, Lookup{Canonical: "playstation  5"})
	assert.Equal(t, []string{"ps5_overheating_fix"}, ids(got))
}

func TestDatasetByKeyword(t *testing.T) {
	d := catalogDataset(t)
	ctx := context.Background()

	got := d.SearchOffline(ctx, Lookup{Keywords: []string{"the", "battery"}})
	assert.Equal(t, []string{"switch_battery_replacement", "iphone_battery_replacement"}, ids(got))

	// Unknown device falls back to keywords
	got = d.SearchOffline(ctx, Lookup{Canonical: "Smart Watch", Keywords: []string{"keyboard"}})
	assert.Equal(t, []string{"macbook_keyboard_cleaning"}, ids(got))

	assert.Empty(t, d.SearchOffline(ctx, Lookup{Keywords: []string{"the", "my"}}))
	assert.Empty(t, d.SearchOffline(ctx, Lookup{}))
}

func TestDatasetReturnsCopies(t *testing.T) {
	d := catalogDataset(t)
	ctx := context.Background()

	first := d.SearchOffline(ctx, Lookup{Canonical: "iPhone"})
	require.NotEmpty(t, first)
	first[0].Title = "changed"
	first[0].Tools[0] = "changed"

	second := d.SearchOffline(ctx, Lookup{Canonical: "iPhone"})
	assert.NotEqual(t, "changed", second[0].Title)
	assert.NotEqual(t, "changed", second[0].Tools[0])
}

func TestFake(t *testing.T) {
	guides := []types.RepairGuide{{
		ID: "fake-1", Title: "Switch Screen Repair", Source: types.SourceOffline, DeviceID: "Nintendo Switch",
	}}
	ctx := context.Background()

	f := NewFake(guides)
	got, err := f.SearchOnline(ctx, Lookup{Canonical: "Nintendo Switch"}, "en")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.SourceOnline, got[0].Source)
	assert.Equal(t, int64(1), f.Calls())
	assert.Equal(t, ProviderFake, f.Name())

	boom := errors.New("boom")
	failing := NewFake(guides, WithError(boom))
	_, err = failing.SearchOnline(ctx, Lookup{Canonical: "Nintendo Switch"}, "en")
	assert.ErrorIs(t, err, boom)

	slow := NewFake(guides, WithDelay(time.Second))
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = slow.SearchOnline(tctx, Lookup{Canonical: "Nintendo Switch"}, "en")
	assert.ErrorIs(t, err, types.ErrSourceTimeout)
}

func TestLookupTerm(t *testing.T) {
	assert.Equal(t, "Nintendo Switch screen cracked", Lookup{Canonical: "Nintendo Switch", Keywords: []string{"screen", "cracked"}}.Term())
	assert.Equal(t, "battery", Lookup{Keywords: []string{"battery"}}.Term())
	assert.Equal(t, "", Lookup{}.Term())
}
