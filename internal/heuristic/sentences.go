// internal/heuristic/sentences.go
package heuristic

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minSentenceLen = 35
	maxSentenceLen = 220
)

// Sentences flattens notes markdown into one line of text and returns the
// sentences whose trimmed length is within [35, 220] runes, in source order.
// Bullet markers and blank lines are dropped before splitting.
func Sentences(notes string) []string {
	var out []string
	for _, s := range splitSentences(flattenNotes(notes)) {
		s = strings.TrimSpace(s)
		if n := utf8.RuneCountInString(s); n >= minSentenceLen && n <= maxSentenceLen {
			out = append(out, s)
		}
	}
	return out
}

func flattenNotes(notes string) string {
	raw := strings.ReplaceAll(notes, "\r", "")
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.TrimSpace(strings.Trim(ln, "-• "))
		if ln != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, " ")
}

// splitSentences cuts text at every whitespace run that directly follows
// '.', '!' or '?'. The punctuation stays with the preceding sentence.
func splitSentences(text string) []string {
	var parts []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		parts = append(parts, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	return append(parts, string(runes[start:]))
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
