// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import "strings"

// foldings maps lowercase accented runes to their ASCII expansions.
// German umlauts expand to digraphs so "Größe" and "GROESSE" sanitize
// to the same key; other Latin accents collapse to their base letter.
var foldings = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss",
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'å': "a", 'æ': "ae",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ø': "o",
	'ù': "u", 'ú': "u", 'û': "u",
	'ç': "c", 'ñ': "n", 'ý': "y", 'ÿ': "y",
}

// Sanitize normalizes an index key: lowercase, diacritics folded to
// ASCII, remaining non-ASCII runes dropped, whitespace collapsed to
// single spaces. It is idempotent, so lookups are stable regardless of
// accents and casing.
func Sanitize(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if folded, ok := foldings[r]; ok {
			b.WriteString(folded)
			continue
		}
		if r > 127 {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
