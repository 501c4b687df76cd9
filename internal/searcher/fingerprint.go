package searcher

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// FingerprintVersion prefixes every fingerprint. Bump it when the canonical
// form changes so old cache rows stop matching.
const FingerprintVersion = "v1"

// Fingerprint returns the cache key for q. It depends only on the resolved
// canonical device (or the sorted tokens when no device was found), the
// sorted issue keywords and the language, so whitespace and casing
// differences collapse to the same key.
func Fingerprint(q types.SearchQuery) string {
	var device, tokens string
	if q.Device.Resolved() {
		device = q.Device.Canonical
	} else {
		tokens = sortedJoin(q.Normalized.Tokens)
	}

	var data strings.Builder
	data.WriteString(FingerprintVersion)
	data.WriteString("|d=")
	data.WriteString(device)
	data.WriteString("|t=")
	data.WriteString(tokens)
	data.WriteString("|k=")
	data.WriteString(sortedJoin(q.IssueKeywords))
	data.WriteString("|l=")
	data.WriteString(q.Language)

	sum := sha256.Sum256([]byte(data.String()))
	return FingerprintVersion + ":" + hex.EncodeToString(sum[:])
}

// sortedJoin sorts a copy of s and joins it with commas.
// Normalized tokens never contain punctuation.
func sortedJoin(s []string) string {
	sorted := append([]string(nil), s...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
