package articles

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/clausematch/clause"
	"github.com/poiesic/clausematch/core"
)

// SubItem is one enumerated fragment of a user article used as an
// independent query.
type SubItem struct {
	Index int
	// Marker is the enumeration marker that introduced the fragment ("①",
	// "2.", "(가)", "(a)"), empty for an implicit sub-item.
	Marker string
	// RawText keeps the marker and original wording for the audit trace.
	RawText string
	// QueryText is the normalized text with the marker removed.
	QueryText string
	// ClauseID is the user record the fragment came from.
	ClauseID  string
	embedding []float32
}

var (
	// Line-start markers: "1." (not a decimal), "(가)", "(a)".
	lineMarker = regexp.MustCompile(`(?m)^[ \t]*(?:\d{1,2}\.(?:[^\d]|$)|\([가-힣]\)|\([a-zA-Z]\))`)
	// Circled numbers ①-⑮ open an item at line start or right after a
	// sentence break. Elsewhere they are references ("제3조 ②에 따라").
	circledMarker = regexp.MustCompile(`(?m)(?:^|[.。!?;:])[ \t]*([①-⑮])`)
)

// Decompose splits a user article into sub-items. An article made of several
// records yields one sub-item per record. A single record is split on
// enumeration markers; text before the first marker is a lead-in and is not
// queried. Without any marker the whole body is one implicit sub-item.
func Decompose(article *clause.Article) []SubItem {
	if article == nil || len(article.Records) == 0 {
		return nil
	}

	if len(article.Records) > 1 {
		items := make([]SubItem, 0, len(article.Records))
		for _, r := range article.Records {
			items = append(items, newSubItem(len(items), r, r.TextRaw, r.NormalizedText(), r.Embedding))
		}
		return items
	}

	r := article.Records[0]
	raw := splitOnMarkers(r.TextRaw)
	if len(raw) == 0 {
		return []SubItem{newSubItem(0, r, r.TextRaw, r.NormalizedText(), r.Embedding)}
	}

	items := make([]SubItem, 0, len(raw))
	for _, text := range raw {
		// Fragments of one record share its embedding until they are embedded separately.
		items = append(items, newSubItem(len(items), r, text, text, r.Embedding))
	}
	return items
}

func newSubItem(index int, r core.ClauseRecord, raw, norm string, embedding []float32) SubItem {
	marker, rest := StripMarker(norm)
	rawMarker, _ := StripMarker(raw)
	if marker == "" {
		marker = rawMarker
	}
	return SubItem{
		Index:     index,
		Marker:    marker,
		RawText:   strings.TrimSpace(raw),
		QueryText: r.UnitType.NormalizeForQuery(rest),
		ClauseID:  r.ID,
		embedding: embedding,
	}
}

// splitOnMarkers returns the marker-introduced fragments of text, or nil when
// text contains no marker.
func splitOnMarkers(text string) []string {
	var starts []int
	for _, loc := range lineMarker.FindAllStringIndex(text, -1) {
		start := loc[0]
		for start < len(text) && (text[start] == ' ' || text[start] == '\t') {
			start++
		}
		starts = append(starts, start)
	}
	for _, loc := range circledMarker.FindAllStringSubmatchIndex(text, -1) {
		starts = append(starts, loc[2])
	}
	if len(starts) == 0 {
		return nil
	}
	slices.Sort(starts)
	starts = slices.Compact(starts)

	parts := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if part := strings.TrimSpace(text[start:end]); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// StripMarker removes a leading enumeration marker and returns it with the
// remaining text. Text without a marker is returned unchanged.
func StripMarker(text string) (marker, rest string) {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if trimmed == "" {
		return "", text
	}

	// Circled numbers, possibly repeated ("①②").
	i := 0
	for i < len(trimmed) {
		r, size := utf8.DecodeRuneInString(trimmed[i:])
		if r < '①' || r > '⑮' {
			break
		}
		i += size
	}
	if i > 0 {
		return trimmed[:i], strings.TrimSpace(trimmed[i:])
	}

	// Numbered dot: "1." or "12." not followed by a digit.
	j := 0
	for j < len(trimmed) && j < 2 && trimmed[j] >= '0' && trimmed[j] <= '9' {
		j++
	}
	if j > 0 && j < len(trimmed) && trimmed[j] == '.' &&
		(j+1 == len(trimmed) || trimmed[j+1] < '0' || trimmed[j+1] > '9') {
		return trimmed[:j+1], strings.TrimSpace(trimmed[j+1:])
	}

	// Parenthesized letter: "(가)" or "(a)".
	if strings.HasPrefix(trimmed, "(") {
		r, size := utf8.DecodeRuneInString(trimmed[1:])
		closing := 1 + size
		if closing < len(trimmed) && trimmed[closing] == ')' &&
			(unicode.Is(unicode.Hangul, r) || (r < utf8.RuneSelf && unicode.IsLetter(r))) {
			return trimmed[:closing+1], strings.TrimSpace(trimmed[closing+1:])
		}
	}

	return "", text
}
