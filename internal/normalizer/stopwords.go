package normalizer

// stopwords are function words that never name a device or an issue
var stopwords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "the": {}, "my": {}, "is": {}, "are": {}, "was": {},
	"it": {}, "its": {}, "of": {}, "for": {}, "to": {}, "in": {}, "on": {},
	"at": {}, "and": {}, "or": {}, "with": {}, "how": {}, "do": {}, "does": {},
	"i": {}, "me": {}, "can": {}, "not": {}, "this": {}, "that": {}, "from": {},

	// Japanese particles and auxiliaries
	"の": {}, "は": {}, "が": {}, "を": {}, "に": {}, "で": {}, "と": {},
	"も": {}, "へ": {}, "から": {}, "まで": {}, "です": {}, "ます": {},
	"した": {}, "して": {}, "ない": {},
}

// IsStopword reports whether a normalized token is a function word
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
