package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Normalize splits text into lowercase script runs.
// Normalize(Normalize(x).NormalizedText) yields the same tokens as Normalize(x).
func Normalize(text string) types.NormalizedQuery {
	q := types.NormalizedQuery{RawText: text}

	t := &tokenizer{lower: cases.Lower(language.Und)}
	for _, r := range norm.NFKC.String(text) {
		t.feed(r)
	}
	t.flush()

	q.Tokens = t.tokens
	q.Scripts = t.scripts
	q.NormalizedText = strings.Join(t.tokens, " ")
	return q
}

// Key normalizes an alias or phrase into its lookup key
func Key(text string) string {
	return Normalize(text).NormalizedText
}

type tokenizer struct {
	lower cases.Caser

	run       strings.Builder
	runScript string
	hasWord   bool // run contains a letter or digit

	tokens  []string
	scripts []string
}

func (t *tokenizer) feed(r rune) {
	if unicode.IsSpace(r) || unicode.IsPunct(r) {
		t.flush()
		return
	}

	s := scriptOf(r)
	switch {
	case s == scriptCommon:
		// attaches to whatever run is open
	case t.runScript == scriptCommon:
		// a leading digit or symbol adopts the first strong script
		t.runScript = s
	case s != t.runScript:
		t.flush()
		t.runScript = s
	}

	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r) {
		t.hasWord = true
	}
	t.run.WriteRune(r)
}

func (t *tokenizer) flush() {
	defer func() {
		t.run.Reset()
		t.runScript = scriptCommon
		t.hasWord = false
	}()

	// Pure-symbol runs carry no meaning
	if t.run.Len() == 0 || !t.hasWord {
		return
	}

	t.tokens = append(t.tokens, t.lower.String(t.run.String()))
	if t.runScript != scriptCommon && !contains(t.scripts, t.runScript) {
		t.scripts = append(t.scripts, t.runScript)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
