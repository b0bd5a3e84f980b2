// Package textnorm canonicalizes recognized text before matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize case-folds s, replaces every rune that is not a letter, digit or space with a space,
// collapses whitespace runs and trims the result.
func Normalize(s string) string {
	folded := folder.String(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Words splits normalized text into words.
func Words(s string) []string {
	return strings.Fields(s)
}

// ContainsPhrase reports whether phrase appears in text on word boundaries.
// Both arguments must already be normalized.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	padded := " " + text + " "
	return strings.Contains(padded, " "+phrase+" ")
}
