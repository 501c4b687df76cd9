// Package normalizer turns sanitized query text into script-aware tokens.
//
// Tokens break on whitespace, on punctuation, and wherever the strong
// script changes, so "任天堂switch" yields ["任天堂", "switch"]. Characters
// with no script of their own (digits, the prolonged sound mark ー,
// currency and math symbols) stay attached to the run they follow, which
// keeps "ps5" and "ニンテンドー" whole. Each run is lowercased on its own.
//
// Normalize never fails. Empty input yields a query with no tokens.
package normalizer
