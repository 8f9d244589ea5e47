package score

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the input and splits it on runs of non-word characters.
// Word characters are letters, digits and underscore; empty tokens are dropped
// and the left-to-right source order is preserved.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
