// internal/heuristic/quiz.go
package heuristic

import "github.com/Corphon/NoteQuiz/internal/models"

const minSentencePool = 30

// BuildQuiz samples sentences from notes and synthesizes exactly count
// questions of the requested type. When the notes run out of usable
// sentences the quiz is padded with placeholder questions.
func BuildQuiz(notes string, qtype models.QuestionType, count int, rng Rand) models.Quiz {
	rng = orProcess(rng)
	if count < 0 {
		count = 0
	}
	quiz := models.Quiz{Type: qtype}

	pool := Sentences(notes)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	size := count * 4
	if size < minSentencePool {
		size = minSentencePool
	}
	if len(pool) > size {
		pool = pool[:size]
	}

	if qtype == models.QuestionObjective {
		quiz.Objective = make([]models.ObjectiveQuestion, 0, count)
		for _, s := range pool {
			if len(quiz.Objective) >= count {
				break
			}
			quiz.Objective = append(quiz.Objective, NormalizeObjective(ObjectiveFromSentence(s, rng), rng))
		}
		for len(quiz.Objective) < count {
			quiz.Objective = append(quiz.Objective, models.PlaceholderObjective())
		}
		return quiz
	}

	quiz.Subjective = make([]models.SubjectiveQuestion, 0, count)
	for _, s := range pool {
		if len(quiz.Subjective) >= count {
			break
		}
		quiz.Subjective = append(quiz.Subjective, SubjectiveFromSentence(s))
	}
	for len(quiz.Subjective) < count {
		quiz.Subjective = append(quiz.Subjective, models.PlaceholderSubjective())
	}
	return quiz
}

// QuizFromEntries turns loosely structured questions (typically produced by a
// language model) into a quiz of the requested type. Objective entries pass
// through NormalizeObjective; non-object entries are dropped. The result is
// cut to count but never padded.
func QuizFromEntries(entries []models.QuizEntry, qtype models.QuestionType, count int, rng Rand) models.Quiz {
	rng = orProcess(rng)
	quiz := models.Quiz{Type: qtype}
	if qtype == models.QuestionObjective {
		quiz.Objective = []models.ObjectiveQuestion{}
	} else {
		quiz.Subjective = []models.SubjectiveQuestion{}
	}

	for _, e := range entries {
		if count >= 0 && quiz.Len() >= count {
			break
		}
		if !e.IsObject {
			continue
		}
		if qtype != models.QuestionObjective {
			quiz.Subjective = append(quiz.Subjective, models.SubjectiveQuestion{Q: e.Q, Answer: e.Reference()})
			continue
		}
		q := models.ObjectiveQuestion{Q: e.Q, Options: e.Options, AnswerIndex: CorrectIndex(e)}
		if target := e.ObjectiveTarget(); target != "" && e.AnswerInt == nil {
			q.AnswerText = &target
		}
		quiz.Objective = append(quiz.Objective, NormalizeObjective(q, rng))
	}
	return quiz
}
