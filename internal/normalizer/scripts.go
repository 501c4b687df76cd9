package normalizer

import "unicode"

const scriptCommon = ""

type scriptTable struct {
	name  string
	table *unicode.RangeTable
}

// Ordered by expected frequency in queries
var scriptTables = []scriptTable{
	{"Latin", unicode.Latin},
	{"Katakana", unicode.Katakana},
	{"Hiragana", unicode.Hiragana},
	{"Han", unicode.Han},
	{"Hangul", unicode.Hangul},
	{"Cyrillic", unicode.Cyrillic},
	{"Greek", unicode.Greek},
	{"Arabic", unicode.Arabic},
	{"Hebrew", unicode.Hebrew},
	{"Thai", unicode.Thai},
	{"Devanagari", unicode.Devanagari},
}

// scriptOf returns the strong script of r, or scriptCommon for characters
// that belong to the Common or Inherited scripts.
func scriptOf(r rune) string {
	if r < 0x80 {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return "Latin"
		}
		return scriptCommon
	}
	for _, st := range scriptTables {
		if unicode.Is(st.table, r) {
			return st.name
		}
	}
	if unicode.IsLetter(r) {
		return "Other"
	}
	return scriptCommon
}
