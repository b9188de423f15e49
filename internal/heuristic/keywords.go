// internal/heuristic/keywords.go
package heuristic

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z-]+`)

// Stopwords are dropped from every keyword list.
var Stopwords = newWordSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "so", "of", "in", "on", "to", "for", "by", "with",
	"is", "are", "was", "were", "be", "been", "being", "as", "at", "from", "it", "its", "this", "that",
	"which", "into", "such", "than", "also", "they", "their", "there", "these", "those", "very", "over",
	"under", "across", "can", "could", "should", "would", "may", "might", "will", "shall",
)

// connectorStopwords are generic filler words that make poor blanks in a
// fill-in question.
var connectorStopwords = []string{
	"that", "this", "these", "those", "using", "such", "into", "than", "also", "they",
	"their", "there", "been", "being", "very", "over", "under", "across", "based",
}

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// Tokens returns every alphabetic run of length >= 2 (internal hyphens
// allowed), lowercased, in order of appearance.
func Tokens(text string) []string {
	raw := wordPattern.FindAllString(text, -1)
	out := make([]string, len(raw))
	for i, w := range raw {
		out[i] = strings.ToLower(w)
	}
	return out
}

// Keywords ranks the non-stopword tokens of text by frequency, ties broken
// by first appearance, and returns at most k of them.
func Keywords(text string, k int, extraStop ...string) []string {
	if k <= 0 {
		return []string{}
	}
	extra := newWordSet(extraStop...)

	counts := make(map[string]int)
	var order []string
	for _, w := range Tokens(text) {
		if Stopwords.has(w) || extra.has(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	if order == nil {
		return []string{}
	}
	return order
}
