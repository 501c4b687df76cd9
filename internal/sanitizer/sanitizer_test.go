package sanitizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var ve *types.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Reason
}

func TestSanitizeAccepts(t *testing.T) {
	s := New(DefaultMaxLength)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain english", "iPhone screen cracked", "iPhone screen cracked"},
		{"japanese", "スイッチ 画面 割れた", "スイッチ 画面 割れた"},
		{"half-width katakana", "ｽｲｯﾁ", "スイッチ"},
		{"full-width latin", "ｉＰｈｏｎｅ", "iPhone"},
		{"ideographic space collapses", "スイッチ　画面", "スイッチ 画面"},
		{"tabs and newlines", "switch\tscreen\r\nbroken", "switch screen broken"},
		{"trims", "   ps5  ", "ps5"},
		{"empty", "", ""},
		{"less-than without tag", "fix in < a week", "fix in < a week"},
		{"apostrophe", "it's broken", "it's broken"},
		{"symbols kept", "スイッチ+=$^", "スイッチ+=$^"},
		{"dashes inside a token", "part 12--34", "part 12--34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sanitize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeRejects(t *testing.T) {
	s := New(DefaultMaxLength)

	tests := []struct {
		name   string
		in     string
		reason string
	}{
		{"script tag", "<script>alert(1)</script>", types.ReasonInjection},
		{"full-width script tag", "＜script＞alert(1)＜/script＞", types.ReasonInjection},
		{"unclosed dangerous element", "<img src=x", types.ReasonInjection},
		{"event handler", "x onerror=alert(1)", types.ReasonInjection},
		{"javascript uri", "javascript:alert(1)", types.ReasonInjection},
		{"path traversal", "../../etc/passwd", types.ReasonInjection},
		{"windows traversal", `..\..\boot.ini`, types.ReasonInjection},
		{"encoded traversal", "%2e%2e%2fetc", types.ReasonInjection},
		{"sql union", "switch' UNION SELECT password FROM users", types.ReasonInjection},
		{"sql stacked", "x; DROP TABLE guides", types.ReasonInjection},
		{"sql tautology", "' OR '1'='1", types.ReasonInjection},
		{"sql comment", "admin'--", types.ReasonInjection},
		{"sql trailing comment", "drop table guides --", types.ReasonInjection},
		{"sql leading comment", "-- select", types.ReasonInjection},
		{"template", "${jndi:ldap://x}", types.ReasonInjection},
		{"command substitution", "$(rm -rf /)", types.ReasonInjection},
		{"null byte", "switch\x00screen", types.ReasonControlChar},
		{"escape", "switch\x1b[31m", types.ReasonControlChar},
		{"bidi override", "switch\u202escreen", types.ReasonControlChar},
		{"invalid utf8", "switch\xff\xfe", types.ReasonInvalidUTF8},
		{"too long", strings.Repeat("a", 10000), types.ReasonTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sanitize(tt.in)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, types.IsValidationError(err))
			assert.Equal(t, tt.reason, reasonOf(t, err))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	s := New(DefaultMaxLength)

	inputs := []string{
		"  ｽｲｯﾁ　画面　割れた ",
		"ｉＰｈｏｎｅ１５ battery",
		"PS5\tfan\nnoisy",
		"ﾆﾝﾃﾝﾄﾞｰswitch",
		"① ㍻ ﬁx",
		"",
	}

	for _, in := range inputs {
		once, err := s.Sanitize(in)
		require.NoError(t, err, in)
		twice, err := s.Sanitize(once)
		require.NoError(t, err, in)
		assert.Equal(t, once, twice, in)
	}
}

func TestSanitizeLengthBoundary(t *testing.T) {
	s := New(10)

	got, err := s.Sanitize(strings.Repeat("あ", 10))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("あ", 10), got)

	_, err = s.Sanitize(strings.Repeat("あ", 11))
	assert.Equal(t, types.ReasonTooLong, reasonOf(t, err))

	// "㍻" expands to two runes under NFKC
	_, err = s.Sanitize(strings.Repeat("㍻", 6))
	assert.Equal(t, types.ReasonTooLong, reasonOf(t, err))
}

func TestSanitizeFieldName(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultMaxLength, s.MaxLength())

	_, err := s.SanitizeField("device_hint", "<script>")
	var ve *types.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "device_hint", ve.Field)
}

func TestLanguage(t *testing.T) {
	got, err := Language("", "en")
	require.NoError(t, err)
	assert.Equal(t, "en", got)

	got, err = Language("ja-JP", "en")
	require.NoError(t, err)
	assert.Equal(t, "ja", got)

	_, err = Language("not a tag!", "en")
	assert.Equal(t, types.ReasonInvalidLang, reasonOf(t, err))
}

func TestGetSignaturesReturnsCopy(t *testing.T) {
	sigs := GetSignatures()
	require.NotEmpty(t, sigs)
	sigs[0].Name = "changed"
	assert.NotEqual(t, "changed", signatures[0].Name)
}
