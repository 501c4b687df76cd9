// Package types provides shared type definitions for the repair-guide search engine.
//
// This package defines domain types used across multiple components,
// including device aliases, normalized queries, repair guides, and ranked results.
//
// # Core Types
//
// DeviceAlias maps a free-text name in any script to a canonical device id:
//
//	alias := types.DeviceAlias{
//	    Alias:     "スイッチ",
//	    Canonical: "Nintendo Switch",
//	    Priority:  10,
//	}
//
// ResolvedDevice is the outcome of resolving query tokens against the alias table:
//
//	device := types.ResolvedDevice{
//	    Canonical:  "Nintendo Switch",
//	    Confidence: 1.0,
//	    MatchType:  types.MatchExact,
//	}
//
// An unresolved query carries MatchNone and an empty Canonical. This is not an
// error; search continues keyword-only.
//
// # Repair Guides
//
// RepairGuide is produced by both guide sources. CanonicalKey identifies the same
// repair across sources so the orchestrator can merge them:
//
//	g := types.RepairGuide{
//	    ID:          "switch_screen_replacement",
//	    Title:       "Nintendo Switch Screen Repair",
//	    Source:      types.SourceOffline,
//	    DeviceID:    "Nintendo Switch",
//	    Difficulty:  types.DifficultyModerate,
//	    SuccessRate: 0.8,
//	}
//	g.CanonicalKey() // "nintendo-switch:nintendo-switch-screen-repair"
//
// # Errors
//
// ValidationError is the only error a caller of search ever sees. Source errors
// (ErrSourceTimeout, ErrSourceUnavailable) are recovered by degrading to
// offline-only results:
//
//	if types.IsValidationError(err) {
//	    // reject the request
//	}
package types
