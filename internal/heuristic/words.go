// internal/heuristic/words.go
package heuristic

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// FindWord returns the byte span of the first case-insensitive occurrence
// of word in s that starts and ends on a word boundary, or nil. Letters and
// digits of every script are word characters, so "rzte" is not found
// inside "Ärzte".
func FindWord(s, word string) []int {
	if word == "" {
		return nil
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(word))
	if err != nil {
		return nil
	}
	for start := 0; start <= len(s); {
		loc := re.FindStringIndex(s[start:])
		if loc == nil {
			return nil
		}
		lo, hi := start+loc[0], start+loc[1]
		if atWordBoundary(s, lo) && atWordBoundary(s, hi) {
			return []int{lo, hi}
		}
		_, size := utf8.DecodeRuneInString(s[lo:])
		start = lo + max(size, 1)
	}
	return nil
}

// ContainsWord reports whether FindWord finds word in s.
func ContainsWord(s, word string) bool {
	return FindWord(s, word) != nil
}

// atWordBoundary reports whether exactly one side of byte offset i is a
// word character.
func atWordBoundary(s string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
