package search

import (
	"strings"
	"unicode"
)

// Stop words dropped from both indexed text and queries
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "or": true, "any": true, "such": true, "shall": true,
	"및": true, "또는": true, "등": true, "그": true, "이": true, "수": true,
	"각": true, "호": true, "의": true, "한다": true, "있다": true,
}

// tokenize splits text on anything that is not a letter or digit, lowercases,
// and removes stop words. Hangul words also emit their rune bigrams so that
// inflected forms ("계약을", "계약의") share terms with their stem.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words)*2)

	for _, word := range words {
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)

		runes := []rune(word)
		if len(runes) > 2 && isHangul(runes[0]) {
			for i := 0; i+1 < len(runes); i++ {
				tokens = append(tokens, string(runes[i:i+2]))
			}
		}
	}

	return tokens
}

func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}
