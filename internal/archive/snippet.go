package archive

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/medscribe/pkg/utils"
)

const snippetRunes = 240

// snippet returns a whitespace-collapsed excerpt of text around the first query
// term it contains, clipped to maxRunes. Without a match the excerpt starts at
// the beginning of the text.
func snippet(text, query string, maxRunes int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return flat
	}

	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	haystack := string(lower)
	first := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if b := strings.Index(haystack, term); b >= 0 {
			if at := utf8.RuneCountInString(haystack[:b]); first < 0 || at < first {
				first = at
			}
		}
	}

	start := 0
	if first > maxRunes/2 {
		start = first - maxRunes/4
		// back up to a word start
		for start > 0 && runes[start-1] != ' ' {
			start--
		}
	}
	out := utils.Truncate(string(runes[start:]), maxRunes)
	if start > 0 {
		out = "..." + out
	}
	return out
}
