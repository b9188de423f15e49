// internal/heuristic/subjective.go
package heuristic

import (
	"strings"

	"github.com/Corphon/NoteQuiz/internal/models"
)

// SubjectiveFromSentence asks the reader to explain the sentence's first
// clause; the full sentence is the reference answer.
func SubjectiveFromSentence(s string) models.SubjectiveQuestion {
	head, _, _ := strings.Cut(s, ".")
	return models.SubjectiveQuestion{
		Q:      "Explain briefly: " + head + ".",
		Answer: s,
	}
}
