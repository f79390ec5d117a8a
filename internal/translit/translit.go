// Package translit folds Polish diacritics to ASCII and builds the canonical
// segment form used in data file identifiers.
package translit

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator replaces every run of whitespace in a normalized segment.
const Separator = "_"

var polishToASCII = map[rune]rune{
	'ą': 'a', 'ć': 'c', 'ę': 'e', 'ł': 'l', 'ń': 'n',
	'ó': 'o', 'ś': 's', 'ź': 'z', 'ż': 'z',
	'Ą': 'A', 'Ć': 'C', 'Ę': 'E', 'Ł': 'L', 'Ń': 'N',
	'Ó': 'O', 'Ś': 'S', 'Ź': 'Z', 'Ż': 'Z',
}

var (
	foldPolish = runes.Map(func(r rune) rune {
		if ascii, ok := polishToASCII[r]; ok {
			return ascii
		}
		return r
	})

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalize folds the fixed Polish table (case preserving) and collapses each
// whitespace run to Separator. It is total and deterministic.
func Normalize(text string) string {
	folded, _, _ := transform.String(foldPolish, text)
	return whitespaceRun.ReplaceAllString(folded, Separator)
}

// ComparisonKey is a case-insensitive, separator-insensitive key used for
// fuzzy matching: Normalize, lower-case, strip remaining combining marks,
// then drop separators and whitespace.
func ComparisonKey(text string) string {
	key := strings.ToLower(Normalize(text))
	if stripped, _, err := transform.String(stripMarks, key); err == nil {
		key = stripped
	}
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, key)
}
