package pick

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics and case from s and collapses whitespace.
//
// Vietnamese tone and vowel marks decompose under NFD and are removed as
// nonspacing marks. The stroked d (đ, Đ) has no decomposition and is mapped
// to a plain d explicitly.
func Fold(s string) string {
	// Transformers and casers keep state, so build them per call.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(unstrokeD),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = cases.Lower(language.Und).String(out)
	return strings.Join(strings.Fields(out), " ")
}

func unstrokeD(r rune) rune {
	switch r {
	case 'đ':
		return 'd'
	case 'Đ':
		return 'D'
	}
	return r
}

// foldSet folds every string and returns the non-empty results as a set.
func foldSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if f := Fold(v); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}
