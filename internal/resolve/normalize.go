// Package resolve builds deterministic join keys from noisy text fields.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keyPunctuation lists the characters removed from key fragments.
const keyPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ "

var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// Normalize converts text to a canonical key fragment:
//  1. NFKD decomposition, so accented letters split into base + mark
//  2. Dropping every non-ASCII rune
//  3. Removing ASCII punctuation and spaces
//  4. Lowercasing
//
// Normalize is pure and idempotent.
func Normalize(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(nonASCII))
	ascii, _, err := transform.String(t, text)
	if err != nil {
		ascii = stripNonASCII(text)
	}

	var b strings.Builder
	b.Grow(len(ascii))
	for _, r := range ascii {
		if strings.ContainsRune(keyPunctuation, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// stripNonASCII is the fallback when the transform chain rejects its input.
func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(s))
}
