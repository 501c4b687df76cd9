package guidesource

import (
	"context"

	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Dataset implements Offline over an in-memory guide list loaded at startup
type Dataset struct {
	guides []types.RepairGuide
	device []string              // normalized device key per guide
	terms  []map[string]struct{} // title, category and device tokens per guide
}

var _ Offline = (*Dataset)(nil)

// NewDataset indexes guides. The slice is copied.
func NewDataset(guides []types.RepairGuide) *Dataset {
	d := &Dataset{
		guides: types.CloneGuides(guides),
		device: make([]string, len(guides)),
		terms:  make([]map[string]struct{}, len(guides)),
	}
	for i, g := range d.guides {
		d.device[i] = normalizer.Key(g.DeviceID)
		set := make(map[string]struct{})
		for _, text := range []string{g.Title, g.Category, g.DeviceID} {
			for _, tok := range normalizer.Normalize(text).Tokens {
				set[tok] = struct{}{}
			}
		}
		d.terms[i] = set
	}
	return d
}

// Len returns the number of guides
func (d *Dataset) Len() int {
	return len(d.guides)
}

// SearchOffline implements Offline. A resolved device selects that device's
// guides; otherwise guides sharing a non-stopword keyword are returned.
// Results keep dataset order.
func (d *Dataset) SearchOffline(ctx context.Context, lookup Lookup) []types.RepairGuide {
	if lookup.Canonical != "" {
		key := normalizer.Key(lookup.Canonical)
		var out []types.RepairGuide
		for i := range d.guides {
			if d.device[i] == key {
				out = append(out, d.guides[i].Clone())
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	var keywords []string
	for _, kw := range lookup.Keywords {
		if !normalizer.IsStopword(kw) {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return nil
	}

	var out []types.RepairGuide
	for i := range d.guides {
		for _, kw := range keywords {
			if _, ok := d.terms[i][kw]; ok {
				out = append(out, d.guides[i].Clone())
				break
			}
		}
	}
	return out
}
