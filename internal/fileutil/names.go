package fileutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldCase = cases.Lower(language.Und)

// SafeName folds a free-form label (an operation name, a curve name) into a
// lowercase ASCII token usable in file names. Accents are stripped, runs of
// other characters collapse to a single underscore, and an empty result
// becomes fallback.
func SafeName(label, fallback string) string {
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		foldCase.String(strings.TrimSpace(label)),
	)
	if err != nil {
		stripped = label
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range stripped {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
