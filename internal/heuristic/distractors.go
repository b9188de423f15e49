// internal/heuristic/distractors.go
package heuristic

import "strings"

// DefaultDistractors is the number of wrong options per objective question.
const DefaultDistractors = 3

// Distractors walks the ranked keywords and collects up to needed wrong
// options, skipping the answer and duplicates. When the keywords run out,
// "option<N>" filler tokens make up the difference. Exactly needed strings
// are returned.
func Distractors(keywords []string, answer string, needed int, rng Rand) []string {
	if needed <= 0 {
		return []string{}
	}
	rng = orProcess(rng)
	answer = strings.ToLower(answer)

	out := make([]string, 0, needed)
	seen := make(map[string]bool, needed)
	for _, w := range keywords {
		if len(out) >= needed {
			break
		}
		lw := strings.ToLower(w)
		if lw == answer || seen[lw] {
			continue
		}
		seen[lw] = true
		out = append(out, lw)
	}
	for len(out) < needed {
		filler := uniqueFiller(rng, func(lower string) bool {
			return seen[lower] || lower == answer
		})
		seen[strings.ToLower(filler)] = true
		out = append(out, filler)
	}
	return out
}
