package sanitizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// DefaultMaxLength is the default maximum query length in runes
const DefaultMaxLength = 500

// Sanitizer validates and cleans raw user text before normalization
type Sanitizer struct {
	maxLength int
}

// New creates a Sanitizer. A non-positive maxLength selects DefaultMaxLength.
func New(maxLength int) *Sanitizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Sanitizer{maxLength: maxLength}
}

// MaxLength returns the configured length limit in runes
func (s *Sanitizer) MaxLength() int {
	return s.maxLength
}

// Sanitize validates raw query text and returns its cleaned form.
// The result is NFKC-normalized with whitespace collapsed, and
// Sanitize(Sanitize(x)) == Sanitize(x) for every accepted x.
func (s *Sanitizer) Sanitize(raw string) (string, error) {
	return s.SanitizeField("query", raw)
}

// SanitizeField is Sanitize with a custom field name in the returned error
func (s *Sanitizer) SanitizeField(field, raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", types.NewValidationError(field, types.ReasonInvalidUTF8, "input is not valid UTF-8")
	}

	// Reject oversized input before doing any normalization work
	if n := utf8.RuneCountInString(raw); n > s.maxLength {
		return "", types.NewValidationError(field, types.ReasonTooLong,
			fmt.Sprintf("length %d exceeds maximum %d", n, s.maxLength))
	}

	text := norm.NFKC.String(raw)

	for _, r := range text {
		if isForbiddenControl(r) {
			return "", types.NewValidationError(field, types.ReasonControlChar,
				fmt.Sprintf("control character %U is not allowed", r))
		}
	}

	text = strings.Join(strings.Fields(text), " ")

	// NFKC can expand compatibility characters, so check again
	if n := utf8.RuneCountInString(text); n > s.maxLength {
		return "", types.NewValidationError(field, types.ReasonTooLong,
			fmt.Sprintf("normalized length %d exceeds maximum %d", n, s.maxLength))
	}

	if sig, ok := matchSignature(text); ok {
		return "", types.NewValidationError(field, types.ReasonInjection,
			fmt.Sprintf("input matches %s signature", sig.Name))
	}

	return text, nil
}

// Language validates a BCP 47 language tag and returns its base language code.
// An empty tag yields fallback.
func Language(tag, fallback string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fallback, nil
	}

	parsed, err := language.Parse(tag)
	if err != nil {
		return "", types.NewValidationError("language", types.ReasonInvalidLang,
			fmt.Sprintf("%q is not a valid language tag", tag))
	}

	base, _ := parsed.Base()
	return base.String(), nil
}

// isForbiddenControl reports control and bidi-override characters.
// Tab, newline and carriage return are treated as whitespace.
func isForbiddenControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r) || unicode.Is(unicode.Bidi_Control, r)
}

func matchSignature(text string) (Signature, bool) {
	for _, sig := range signatures {
		if sig.Regex.MatchString(text) {
			return sig, true
		}
	}
	return Signature{}, false
}
