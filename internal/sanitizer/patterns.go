package sanitizer

import "regexp"

// Signature is a compiled injection pattern
type Signature struct {
	Name  string
	Regex *regexp.Regexp
}

// signatures are checked against NFKC-normalized input, so full-width
// variants such as "＜script＞" are caught as well.
var signatures = []Signature{
	// Markup
	{
		Name:  "markup tag",
		Regex: regexp.MustCompile(`(?i)<\s*/?\s*[a-z!?][^<>]*>`),
	},
	{
		Name:  "dangerous element",
		Regex: regexp.MustCompile(`(?i)<\s*/?\s*(?:script|iframe|object|embed|svg|img|style|link|meta|body|html|form|input)\b`),
	},
	{
		Name:  "event handler attribute",
		Regex: regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	},

	// Script URIs
	{
		Name:  "script URI",
		Regex: regexp.MustCompile(`(?i)\b(?:javascript|vbscript|livescript)\s*:`),
	},
	{
		Name:  "data URI",
		Regex: regexp.MustCompile(`(?i)\bdata\s*:\s*(?:text/html|application/(?:javascript|x-javascript|ecmascript))`),
	},

	// Path traversal
	{
		Name:  "path traversal",
		Regex: regexp.MustCompile(`\.\.[/\\]|[/\\]\.\.(?:[/\\]|$)`),
	},
	{
		Name:  "encoded path traversal",
		Regex: regexp.MustCompile(`(?i)(?:%2e|\.){2}(?:%2f|%5c)|%2e%2e`),
	},

	// SQL meta-sequences
	{
		Name:  "sql union",
		Regex: regexp.MustCompile(`(?i)\bunion\b(?:\s+all)?\s+select\b`),
	},
	{
		Name:  "sql stacked statement",
		Regex: regexp.MustCompile(`(?i);\s*(?:drop|delete|insert|update|select|alter|create|truncate|exec|execute|grant|shutdown)\b`),
	},
	{
		Name:  "sql tautology",
		Regex: regexp.MustCompile(`(?i)'\s*(?:or|and)\s+'?\w*'?\s*=|\bor\s+\d+\s*=\s*\d+`),
	},
	{
		Name:  "sql comment",
		Regex: regexp.MustCompile(`'\s*(?:;|--|#)|/\*.*\*/|(?:^|\s)--(?:\s|$)`),
	},

	// Template and command substitution
	{
		Name:  "template substitution",
		Regex: regexp.MustCompile(`\$\{|\{\{|\$\(|` + "`"),
	},
}

// GetSignatures returns a copy of the injection signature list
func GetSignatures() []Signature {
	out := make([]Signature, len(signatures))
	copy(out, signatures)
	return out
}
