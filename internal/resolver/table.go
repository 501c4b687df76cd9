package resolver

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/dshills/repairsearch-mcp/internal/normalizer"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// aliasEntry is one normalized alias key
type aliasEntry struct {
	key       string
	canonical string
	priority  int
	runes     int
}

// AliasTable is an immutable snapshot of normalized alias keys.
// It is safe for concurrent use once built.
type AliasTable struct {
	byKey      map[string]aliasEntry
	entries    []aliasEntry        // sorted by key for deterministic scans
	variations map[string][]string // canonical -> sorted alias keys
}

// NewAliasTable normalizes aliases into lookup keys.
// Every canonical id is also registered as an alias of itself unless an
// explicit alias already claims that key. Two aliases that normalize to the
// same key but name different devices are rejected with ErrAliasConflict.
func NewAliasTable(aliases []types.DeviceAlias) (*AliasTable, error) {
	t := &AliasTable{
		byKey:      make(map[string]aliasEntry, len(aliases)),
		variations: make(map[string][]string),
	}

	canonicals := make([]string, 0)
	seen := make(map[string]bool)

	for _, a := range aliases {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("alias %q: %w", a.Alias, err)
		}

		key := normalizer.Key(a.Alias)
		if key == "" {
			return nil, fmt.Errorf("alias %q: %w", a.Alias, types.ErrEmptyAlias)
		}

		if existing, ok := t.byKey[key]; ok {
			if existing.canonical != a.Canonical {
				return nil, fmt.Errorf("%w: %q -> %q and %q",
					types.ErrAliasConflict, key, existing.canonical, a.Canonical)
			}
			if a.Priority > existing.priority {
				existing.priority = a.Priority
				t.byKey[key] = existing
			}
			continue
		}

		t.byKey[key] = aliasEntry{
			key:       key,
			canonical: a.Canonical,
			priority:  a.Priority,
			runes:     utf8.RuneCountInString(key),
		}

		if !seen[a.Canonical] {
			seen[a.Canonical] = true
			canonicals = append(canonicals, a.Canonical)
		}
	}

	for _, c := range canonicals {
		key := normalizer.Key(c)
		if _, ok := t.byKey[key]; ok || key == "" {
			continue
		}
		t.byKey[key] = aliasEntry{key: key, canonical: c, runes: utf8.RuneCountInString(key)}
	}

	t.entries = make([]aliasEntry, 0, len(t.byKey))
	for _, e := range t.byKey {
		t.entries = append(t.entries, e)
		t.variations[e.canonical] = append(t.variations[e.canonical], e.key)
	}
	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].key < t.entries[j].key
	})
	for c := range t.variations {
		sort.Strings(t.variations[c])
	}

	return t, nil
}

// Len returns the number of distinct alias keys
func (t *AliasTable) Len() int {
	return len(t.entries)
}

// Lookup returns the canonical id for an exact normalized key
func (t *AliasTable) Lookup(key string) (string, bool) {
	e, ok := t.byKey[key]
	return e.canonical, ok
}

// Devices returns all canonical ids in lexical order
func (t *AliasTable) Devices() []string {
	out := make([]string, 0, len(t.variations))
	for c := range t.variations {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Variations returns the normalized alias keys of a canonical id
func (t *AliasTable) Variations(canonical string) []string {
	return append([]string(nil), t.variations[canonical]...)
}
