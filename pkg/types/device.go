package types

// MatchType describes how a device was resolved
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

// DeviceAlias maps one free-text alias (any script) to a canonical device id
type DeviceAlias struct {
	Alias     string
	Canonical string
	Priority  int // Higher wins ties between equally good fuzzy matches
}

// Validate checks if the alias can be loaded into an alias table
func (a *DeviceAlias) Validate() error {
	if a.Alias == "" {
		return ErrEmptyAlias
	}
	if a.Canonical == "" {
		return ErrEmptyCanonical
	}
	return nil
}

// ResolvedDevice is the outcome of device resolution.
// An empty Canonical means no device was recognised.
type ResolvedDevice struct {
	Canonical    string
	Confidence   float64 // 0.0-1.0
	MatchType    MatchType
	MatchedAlias string // Normalized alias key that matched
	Span         Span   // Token range consumed by the match
}

// Span is a half-open token range [Start, End)
type Span struct {
	Start int
	End   int
}

// Contains reports whether token index i lies in the span
func (s Span) Contains(i int) bool {
	return i >= s.Start && i < s.End
}

// NoDevice is the resolution result when nothing matched
func NoDevice() ResolvedDevice {
	return ResolvedDevice{MatchType: MatchNone}
}

// Resolved reports whether a canonical device was found
func (d ResolvedDevice) Resolved() bool {
	return d.Canonical != "" && d.MatchType != MatchNone
}
