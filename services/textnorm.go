package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lowerCaser = cases.Lower(language.Und)

// foldText applies NFC composition, lowercasing and whitespace trimming
func foldText(s string) string {
	return strings.TrimSpace(lowerCaser.String(norm.NFC.String(s)))
}

// NormalizeName is the key used by the name frequency tables: folded, with
// internal whitespace collapsed to single spaces
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(foldText(s)), " ")
}

// Thai block helpers. Consonants are U+0E01..U+0E2E; vowels and marks sit in
// U+0E30..U+0E3A and U+0E40..U+0E4E
func isThaiConsonant(r rune) bool { return r >= 0x0E01 && r <= 0x0E2E }

func isThaiVowelOrMark(r rune) bool {
	return (r >= 0x0E30 && r <= 0x0E3A) || (r >= 0x0E40 && r <= 0x0E4E)
}

func isThaiLetter(r rune) bool { return isThaiConsonant(r) || isThaiVowelOrMark(r) }

// isScriptLetter reports letters of the supported scripts (Thai, Latin)
func isScriptLetter(r rune) bool {
	return isThaiLetter(r) || unicode.Is(unicode.Latin, r)
}

// hasRepeatedRun reports whether any rune occurs n or more times in a row
func hasRepeatedRun(s string, n int) bool {
	if n < 2 {
		return s != ""
	}
	var prev rune
	run := 0
	for _, r := range s {
		if run > 0 && r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
