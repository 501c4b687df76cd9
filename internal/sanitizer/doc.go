// Package sanitizer validates raw user text before it reaches the normalizer.
//
// Input is rejected when it is not valid UTF-8, contains control or bidi
// override characters, exceeds the configured length, or matches a known
// injection signature (markup, script URIs, path traversal, SQL
// meta-sequences, template substitution). Accepted input is NFKC-normalized
// so full-width and compatibility forms compare equal to their plain forms,
// and runs of whitespace collapse to a single space.
//
// Sanitize is idempotent on accepted input:
//
//	s := sanitizer.New(500)
//	clean, err := s.Sanitize("  ｽｲｯﾁ　画面　割れた ")
//	// clean == "スイッチ 画面 割れた"
package sanitizer
