package types

import (
	"strings"
	"unicode"
)

// GuideSource identifies where a repair guide came from
type GuideSource string

const (
	SourceOnline  GuideSource = "online"
	SourceOffline GuideSource = "offline"
)

// Difficulty levels shared by both guide sources
const (
	DifficultyEasy      = "Easy"
	DifficultyModerate  = "Moderate"
	DifficultyDifficult = "Difficult"
	DifficultyVeryHard  = "Very Difficult"
	DifficultyUnknown   = "Unknown"
)

// RepairGuide is a single repair procedure returned by a guide source
type RepairGuide struct {
	// Identification
	ID       string // Source-specific identifier
	Title    string
	Source   GuideSource
	DeviceID string // Canonical device id the guide targets
	Category string
	URL      string

	// Metadata used for ranking
	Difficulty  string
	SuccessRate float64 // 0.0-1.0
	Score       float64 // Assigned by the ranker

	// Details (offline guides carry the full set)
	TimeEstimate string
	CostEstimate string
	Tools        []string
	Parts        []string
	Steps        []GuideStep
	Warnings     []string
	Tips         []string
}

// GuideStep is one numbered instruction within a guide
type GuideStep struct {
	Number      int
	Title       string
	Description string
}

// CanonicalKey returns the cross-source identity of a guide.
// Two guides with the same device and the same title words are the same
// repair regardless of which source produced them.
func (g *RepairGuide) CanonicalKey() string {
	return slug(g.DeviceID) + ":" + slug(g.Title)
}

// Validate checks if the guide is usable by the ranker
func (g *RepairGuide) Validate() error {
	if g.ID == "" {
		return ErrInvalidGuideID
	}
	if g.Title == "" {
		return ErrEmptyTitle
	}
	if g.Source != SourceOnline && g.Source != SourceOffline {
		return ErrInvalidSource
	}
	if g.SuccessRate < 0 || g.SuccessRate > 1 {
		return ErrInvalidSuccessRate
	}
	return nil
}

// Clone returns a deep copy so cached payloads cannot be mutated by callers
func (g RepairGuide) Clone() RepairGuide {
	dst := g
	dst.Tools = append([]string(nil), g.Tools...)
	dst.Parts = append([]string(nil), g.Parts...)
	dst.Steps = append([]GuideStep(nil), g.Steps...)
	dst.Warnings = append([]string(nil), g.Warnings...)
	dst.Tips = append([]string(nil), g.Tips...)
	return dst
}

// CloneGuides deep-copies a guide slice
func CloneGuides(src []RepairGuide) []RepairGuide {
	if src == nil {
		return nil
	}
	dst := make([]RepairGuide, len(src))
	for i := range src {
		dst[i] = src[i].Clone()
	}
	return dst
}

// slug lowercases s and joins its letter/digit runs with '-'
func slug(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "-")
}
