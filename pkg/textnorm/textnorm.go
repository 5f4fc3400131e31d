// Package textnorm folds user text so searches ignore case and accents.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace      = regexp.MustCompile(`\s+`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lowercases s, drops diacritics and collapses runs of whitespace.
// "  Cien Años  de Soledad" -> "cien anos de soledad".
func Fold(s string) string {
	s = strings.ToLower(stripMarks(s))
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Slugify converts s into an ASCII, hyphen separated token.
// "Historia de Honduras (2ª ed.)" -> "historia-de-honduras-2a-ed".
func Slugify(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// Title trims s and collapses inner whitespace without changing case.
func Title(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
