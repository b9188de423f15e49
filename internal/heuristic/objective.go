// internal/heuristic/objective.go
package heuristic

import (
	"regexp"
	"strings"

	"github.com/Corphon/NoteQuiz/internal/models"
)

const (
	objectiveKeywords = 8
	optionCount       = 4
	blank             = "____"
)

var longRunPattern = regexp.MustCompile(`[A-Za-z]{4,}`)

// answerPicker proposes an answer word for a sentence given its keywords,
// or "" when it has nothing to offer.
type answerPicker func(sentence string, keys []string) string

// answerPickers are tried in order until one returns a candidate.
var answerPickers = []answerPicker{
	firstLongKeyword,
	firstKeyword,
	firstLongRun,
}

func firstLongKeyword(_ string, keys []string) string {
	for _, k := range keys {
		if len(k) >= 4 {
			return k
		}
	}
	return ""
}

func firstKeyword(_ string, keys []string) string {
	if len(keys) > 0 {
		return keys[0]
	}
	return ""
}

func firstLongRun(sentence string, _ []string) string {
	return longRunPattern.FindString(sentence)
}

// PickAnswer runs the picker chain and returns the first candidate.
func PickAnswer(sentence string, keys []string) (string, bool) {
	for _, pick := range answerPickers {
		if a := pick(sentence, keys); a != "" {
			return a, true
		}
	}
	return "", false
}

// ObjectiveFromSentence builds a four-option fill-in-the-blank question.
// A sentence with no answer candidate yields a display-only question with
// AnswerIndex -1.
func ObjectiveFromSentence(s string, rng Rand) models.ObjectiveQuestion {
	rng = orProcess(rng)
	keys := Keywords(s, objectiveKeywords, connectorStopwords...)

	answer, ok := PickAnswer(s, keys)
	if !ok {
		return models.ObjectiveQuestion{
			Q:           s,
			Options:     []string{"A", "B", "C", "D"},
			AnswerIndex: -1,
		}
	}

	candidates := append([]string{answer}, Distractors(keys, answer, DefaultDistractors, rng)...)
	options := uniqueOptions(candidates)
	seen := lowerSet(options)
	for len(options) < optionCount {
		filler := uniqueFiller(rng, func(lower string) bool { return seen[lower] })
		seen[strings.ToLower(filler)] = true
		options = append(options, filler)
	}
	options = options[:optionCount]

	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	q := models.ObjectiveQuestion{
		Q:           strings.TrimSpace(BlankOut(s, answer)),
		Options:     options,
		AnswerIndex: indexOfFold(options, answer),
	}
	text := answer
	if q.AnswerIndex >= 0 {
		text = options[q.AnswerIndex]
	}
	q.AnswerText = &text
	return q
}

// BlankOut replaces the first whole-word, case-insensitive occurrence of
// word in sentence with "____". The sentence is returned unchanged when the
// word does not occur.
func BlankOut(sentence, word string) string {
	loc := FindWord(sentence, word)
	if loc == nil {
		return sentence
	}
	return sentence[:loc[0]] + blank + sentence[loc[1]:]
}

// NormalizeObjective enforces the question contract on any objective
// question before it is accepted into a quiz: exactly four options, an
// answer index that is -1 or points into the options, and an answer text
// that agrees with that index.
func NormalizeObjective(q models.ObjectiveQuestion, rng Rand) models.ObjectiveQuestion {
	rng = orProcess(rng)
	options := append([]string(nil), q.Options...)
	if len(options) > optionCount {
		options = options[:optionCount]
	}
	seen := lowerSet(options)
	for len(options) < optionCount {
		filler := uniqueFiller(rng, func(lower string) bool { return seen[lower] })
		seen[strings.ToLower(filler)] = true
		options = append(options, filler)
	}
	q.Options = options

	if q.AnswerIndex < -1 || q.AnswerIndex >= len(options) {
		q.AnswerIndex = -1
		if q.AnswerText != nil {
			q.AnswerIndex = indexOfFold(options, *q.AnswerText)
		}
	}

	switch {
	case q.AnswerIndex >= 0:
		text := options[q.AnswerIndex]
		q.AnswerText = &text
	case q.AnswerText != nil && strings.TrimSpace(*q.AnswerText) == "":
		q.AnswerText = nil
	}
	return q
}

// uniqueOptions trims candidates and drops blanks and case-insensitive
// duplicates, keeping first occurrences.
func uniqueOptions(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, optionCount)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		lc := strings.ToLower(c)
		if c == "" || seen[lc] {
			continue
		}
		seen[lc] = true
		out = append(out, c)
	}
	return out
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = true
	}
	return set
}

// indexOfFold finds target among options ignoring case and surrounding
// whitespace; -1 when absent or empty.
func indexOfFold(options []string, target string) int {
	target = strings.TrimSpace(target)
	if target == "" {
		return -1
	}
	for i, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt != "" && strings.EqualFold(opt, target) {
			return i
		}
	}
	return -1
}
