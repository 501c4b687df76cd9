package types

// NormalizedQuery is the per-request, script-aware normalized form of user text
type NormalizedQuery struct {
	RawText        string
	NormalizedText string   // Tokens joined by a single space
	Tokens         []string // Lowercased tokens, punctuation removed
	Scripts        []string // Distinct scripts in order of first appearance
}

// Empty reports whether normalization produced no tokens
func (q NormalizedQuery) Empty() bool {
	return len(q.Tokens) == 0
}

// SearchQuery is the semantic content of a search used for fingerprinting
type SearchQuery struct {
	Normalized    NormalizedQuery
	Device        ResolvedDevice
	Language      string
	IssueKeywords []string
}
