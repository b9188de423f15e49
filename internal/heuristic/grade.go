// internal/heuristic/grade.go
package heuristic

import (
	"math"
	"strconv"
	"strings"

	"github.com/Corphon/NoteQuiz/internal/models"
	"github.com/pmezard/go-difflib/difflib"
)

const (
	referenceKeywords = 6
	similarityWeight  = 0.7
	coverageWeight    = 0.3
	passThreshold     = 0.62
)

// indexResolver extracts the authoritative correct index from a quiz entry.
type indexResolver func(e models.QuizEntry) (int, bool)

// indexResolvers are consulted in order; the first that applies wins.
var indexResolvers = []indexResolver{
	func(e models.QuizEntry) (int, bool) {
		if e.AnswerIndex == nil {
			return 0, false
		}
		return *e.AnswerIndex, true
	},
	func(e models.QuizEntry) (int, bool) {
		if e.AnswerInt == nil {
			return 0, false
		}
		return *e.AnswerInt, true
	},
	func(e models.QuizEntry) (int, bool) {
		return indexOfFold(e.Options, e.ObjectiveTarget()), true
	},
}

// CorrectIndex resolves the correct option of an entry, -1 when unknown.
func CorrectIndex(e models.QuizEntry) int {
	if !e.IsObject {
		return -1
	}
	for _, resolve := range indexResolvers {
		if idx, ok := resolve(e); ok {
			return idx
		}
	}
	return -1
}

// SubmittedIndex parses an ASCII digit string; anything else is -1.
func SubmittedIndex(s models.Submission) int {
	text := s.Text
	if text == "" {
		return -1
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return -1
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return -1
	}
	return n
}

// GradeObjective compares submitted option indices with each entry's
// correct index. Entries without a resolvable answer still count toward the
// total and are never correct.
func GradeObjective(quiz []models.QuizEntry, answers []models.Submission) models.GradeReport[models.ObjectiveResult] {
	report := models.GradeReport[models.ObjectiveResult]{
		Total:   len(quiz),
		Results: make([]models.ObjectiveResult, 0, len(quiz)),
	}
	for i, entry := range quiz {
		correct := CorrectIndex(entry)
		submitted := -1
		if i < len(answers) {
			submitted = SubmittedIndex(answers[i])
		}
		ok := correct >= 0 && submitted == correct
		if ok {
			report.Correct++
		}
		report.Results = append(report.Results, models.ObjectiveResult{
			Index:          i,
			IsCorrect:      ok,
			SubmittedIndex: submitted,
			CorrectIndex:   correct,
		})
	}
	report.Score = roundTo(100*float64(report.Correct)/float64(max(1, report.Total)), 2)
	return report
}

// MergeRecognized appends OCR text to the string answer at the same index.
// Non-string answers and indices beyond the answers are left alone.
func MergeRecognized(answers []models.Submission, recognized []string) []models.Submission {
	out := append([]models.Submission(nil), answers...)
	for i, text := range recognized {
		if i >= len(out) || !out[i].IsString {
			continue
		}
		out[i] = models.TextSubmission(strings.TrimSpace(out[i].Text + " " + text))
	}
	return out
}

// Similarity is the longest-matching-blocks ratio of the lowercased strings.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(runeStrings(strings.ToLower(a)), runeStrings(strings.ToLower(b)))
	return m.Ratio()
}

// Coverage returns the reference keywords found as whole words in answer
// and the fraction they make up; 0 when the reference has no keywords.
func Coverage(keywords []string, answer string) ([]string, float64) {
	matched := []string{}
	if len(keywords) == 0 {
		return matched, 0
	}
	for _, k := range keywords {
		if ContainsWord(answer, k) {
			matched = append(matched, k)
		}
	}
	return matched, float64(len(matched)) / float64(len(keywords))
}

// ScoreSubjective blends similarity and keyword coverage for one answer.
func ScoreSubjective(index int, reference, answer string) (models.SubjectiveResult, float64) {
	sim := Similarity(reference, answer)
	kws := Keywords(reference, referenceKeywords)
	matched, coverage := Coverage(kws, answer)
	composite := similarityWeight*sim + coverageWeight*coverage
	return models.SubjectiveResult{
		Index:     index,
		IsCorrect: composite >= passThreshold,
		Score:     roundTo(composite*100, 1),
		Info: models.SubjectiveInfo{
			Similarity:      roundTo(sim, 2),
			Keywords:        kws,
			MatchedKeywords: matched,
			Coverage:        roundTo(coverage, 2),
		},
	}, composite
}

// GradeSubjective scores free-text answers against reference answers. The
// overall score is the mean composite score scaled to 100.
func GradeSubjective(quiz []models.QuizEntry, answers []models.Submission) models.GradeReport[models.SubjectiveResult] {
	report := models.GradeReport[models.SubjectiveResult]{
		Total:   len(quiz),
		Results: make([]models.SubjectiveResult, 0, len(quiz)),
	}
	var sum float64
	for i, entry := range quiz {
		answer := ""
		if i < len(answers) {
			answer = answers[i].Text
		}
		res, composite := ScoreSubjective(i, entry.Reference(), answer)
		if res.IsCorrect {
			report.Correct++
		}
		sum += composite
		report.Results = append(report.Results, res)
	}
	report.Score = roundTo(100*sum/float64(max(1, report.Total)), 2)
	return report
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
