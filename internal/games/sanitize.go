package games

import (
	"strings"
	"unicode"
)

// MaxNameLen is the maximum length, in runes, of game and save names.
const MaxNameLen = 64

// SanitizeName trims whitespace, flattens line breaks and strips control,
// format, private-use and non-character runes, then caps the result at
// MaxNameLen runes.
func SanitizeName(input string) string {
	s := strings.ReplaceAll(input, "\r\n", " ")
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	s = strings.TrimSpace(s)

	cleaned := strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		if unicode.Is(unicode.Cs, r) || unicode.Is(unicode.Co, r) {
			return -1
		}
		// Non-characters: U+FDD0..U+FDEF and code points ending in FFFE/FFFF.
		if r >= 0xFDD0 && r <= 0xFDEF {
			return -1
		}
		if r&0xFFFE == 0xFFFE {
			return -1
		}
		return r
	}, s)

	runes := []rune(cleaned)
	if len(runes) > MaxNameLen {
		cleaned = strings.TrimSpace(string(runes[:MaxNameLen]))
	}
	return cleaned
}
