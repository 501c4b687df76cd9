package types

import "time"

// ReasonCode explains an empty or reduced result set for UX messaging
type ReasonCode string

const (
	ReasonNone               ReasonCode = ""
	ReasonNoResults          ReasonCode = "no_results"
	ReasonSourcesUnavailable ReasonCode = "sources_unavailable"
	ReasonDeadlineExceeded   ReasonCode = "deadline_exceeded"
)

// RankedResults is the ordered outcome of a search
type RankedResults struct {
	Guides      []RepairGuide
	Reason      ReasonCode // Set when Guides is empty
	Device      ResolvedDevice
	Keywords    []string
	Fingerprint string

	// Execution metadata
	CacheHit bool
	Degraded bool // Online source failed; offline-only results
	Partial  bool // Caller deadline hit; best-effort results
	Duration time.Duration
}

// Empty reports whether no guides were found
func (r *RankedResults) Empty() bool {
	return len(r.Guides) == 0
}
