package minting

import (
	"strings"
	"unicode"
)

// maxSymbolLen caps derived ticker symbols.
const maxSymbolLen = 5

// fallbackSymbol is used when a name yields no letters at all.
const fallbackSymbol = "VIBE"

// DeriveSymbol derives a ticker symbol from a coin name: the uppercase
// initialism of its words, capped at maxSymbolLen runes. Single-word names use
// their first three letters instead. The result is deterministic and never
// empty.
func DeriveSymbol(name string) string {
	words := splitWords(name)

	if len(words) >= 2 {
		var b strings.Builder
		for _, w := range words {
			if b.Len() >= maxSymbolLen {
				break
			}
			b.WriteRune(unicode.ToUpper([]rune(w)[0]))
		}
		return b.String()
	}

	if len(words) == 1 {
		runes := []rune(words[0])
		if len(runes) > 3 {
			runes = runes[:3]
		}
		return strings.ToUpper(string(runes))
	}

	return fallbackSymbol
}

// splitWords breaks a name into alphanumeric word runs.
func splitWords(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
