// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CurrencySymbol is kept by Normalize so pricing rules can match "€".
const CurrencySymbol = '€'

// Normalize canonicalizes user input for keyword matching.
//
// Steps: drop invalid UTF-8, NFKD decompose and remove combining marks,
// lower-case, replace every rune that is neither a word rune nor whitespace
// (except CurrencySymbol) with a space, collapse whitespace runs and trim.
//
// Normalize never fails and is idempotent:
//
//	Normalize("  RÜCKEN-Schmerzen!! ") // "rucken schmerzen"
//	Normalize("Öffnungszeiten?")        // "offnungszeiten"
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToValidUTF8(text, "")

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		// transform only fails on malformed input, which ToValidUTF8 removed
		stripped = text
	}

	stripped = strings.ToLower(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case isWordRune(r), r == CurrencySymbol:
			b.WriteRune(r)
		default:
			// whitespace and punctuation alike become a separator
			b.WriteByte(' ')
		}
	}

	return CollapseWhitespace(b.String())
}

// isWordRune mirrors the \w class for Unicode text: letters, digits and underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most maxRunes runes without splitting a rune.
// A non-positive maxRunes returns s unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	i := 0
	for pos := range s {
		if i == maxRunes {
			return s[:pos]
		}
		i++
	}
	return s
}
