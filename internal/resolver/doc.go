// Package resolver maps normalized query tokens to canonical device ids.
//
// Resolution runs in two phases over n-grams of up to four tokens. The
// exact phase looks each phrase up in the alias table; the longest phrase
// wins with confidence 1.0. Only when nothing matches exactly does the
// fuzzy phase score every phrase of three or more runes against every alias
// key with a SimilarityScorer and accept the best at or above the threshold.
//
// The alias table is an immutable snapshot. Reload builds a new table and
// swaps it in atomically, so Resolve never blocks.
//
// Known limitation: symbols glued to a script run without whitespace stay
// part of the token. "スイッチ+=$^" therefore matches neither exactly nor
// above the fuzzy threshold, although "スイッチ" alone resolves.
package resolver
