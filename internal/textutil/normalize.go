package textutil

import (
	"math/bits"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// parentheticalPattern matches a parenthesised segment, e.g. "(Delaware)".
var parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)

// Normalize turns free text into a comparable key: parenthetical segments are
// removed, accents folded, letters lowercased, everything outside [a-z0-9 ]
// dropped, and whitespace collapsed. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = parentheticalPattern.ReplaceAllString(text, " ")
	text = foldAccents(text)

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case r == ' ' || unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}

func foldAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

// LetterSet is the set of ASCII letters a-z present in a string, one bit per letter.
type LetterSet uint32

// Letters returns the set of letters present in text after normalization.
func Letters(text string) LetterSet {
	var set LetterSet
	for _, r := range Normalize(text) {
		if r >= 'a' && r <= 'z' {
			set |= 1 << uint(r-'a')
		}
	}
	return set
}

// Len reports how many distinct letters the set holds.
func (s LetterSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// LettersInCommon scores two strings by the size of the intersection of their letter sets.
func LettersInCommon(a, b string) int {
	return (Letters(a) & Letters(b)).Len()
}
