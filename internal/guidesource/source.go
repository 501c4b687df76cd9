package guidesource

import (
	"context"
	"strings"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Provider names accepted by configuration
const (
	ProviderIFixit = "ifixit"
	ProviderFake   = "fake"
	ProviderNone   = "none"
)

// Lookup is what a guide source is asked for: the resolved device, if any,
// and the issue keywords left after removing the device phrase
type Lookup struct {
	Canonical string
	Keywords  []string
}

// Term returns the free-text search term for the lookup
func (l Lookup) Term() string {
	parts := make([]string, 0, len(l.Keywords)+1)
	if l.Canonical != "" {
		parts = append(parts, l.Canonical)
	}
	parts = append(parts, l.Keywords...)
	return strings.Join(parts, " ")
}

// Online is a rate-limited external guide service. Errors are expected and
// are recovered by the caller.
type Online interface {
	SearchOnline(ctx context.Context, lookup Lookup, language string) ([]types.RepairGuide, error)
	Name() string
}

// Offline is an in-process curated dataset. It never fails and may return
// an empty slice.
type Offline interface {
	SearchOffline(ctx context.Context, lookup Lookup) []types.RepairGuide
}
