package openai

import "strings"

// maxPassageRunes bounds the clause text placed in one prompt.
const maxPassageRunes = 4000

// compactText collapses whitespace and truncates overly long clause text.
func compactText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxPassageRunes {
		return string(r[:maxPassageRunes]) + " …"
	}
	return s
}

// stripCodeFence removes a markdown code fence around a model response.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
