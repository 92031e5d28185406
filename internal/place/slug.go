package place

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	separators   = regexp.MustCompile(`[-_\s]+`)
)

// Slugify lowercases s, folds diacritics, and joins words with single hyphens.
// Punctuation becomes a separator, so "Kec. Sample" and "kec-sample" agree.
func Slugify(s string) string {
	s = foldDiacritics(s)
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = strings.ToLower(strings.TrimSpace(s))
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
