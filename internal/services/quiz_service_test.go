package services

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/heuristic"
	"github.com/Corphon/NoteQuiz/internal/models"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

const quizNotes = `# Biology
- Photosynthesis converts light energy into chemical energy stored in glucose molecules.
- Mitochondria release energy from glucose during cellular respiration in most cells.
- Osmosis moves water across a semipermeable membrane toward higher solute concentration.`

func newQuizService(t *testing.T) (*QuizService, *utils.APIMetrics) {
	t.Helper()
	base := setupConfig(t, fakeProviderName)
	m := testMetrics()
	llmService := NewLLMService(base, m, testLogger())
	return NewQuizService(base, llmService, heuristic.NewSeededRand(7), m, testLogger()), m
}

func TestQuizHeuristic(t *testing.T) {
	s, m := newQuizService(t)

	for _, qtype := range []models.QuestionType{models.QuestionObjective, models.QuestionSubjective} {
		quiz, err := s.Generate(context.Background(), QuizRequest{Notes: quizNotes, QType: qtype, Count: 5})
		if err != nil {
			t.Fatalf("Generate(%s): %v", qtype, err)
		}
		if quiz.Len() != 5 || quiz.Type != qtype {
			t.Fatalf("%s quiz has %d questions", qtype, quiz.Len())
		}
	}
	if got := m.Collector().GetCounterValue("quizzes_heuristic_objective"); got != 1 {
		t.Fatalf("quiz counter = %d", got)
	}
	if calls, _ := fakeLLM.snapshot(); calls != 0 {
		t.Fatalf("heuristic path called the model %d times", calls)
	}
}

func TestQuizCountLimit(t *testing.T) {
	s, _ := newQuizService(t)
	_, err := s.Generate(context.Background(), QuizRequest{Notes: quizNotes, QType: models.QuestionObjective, Count: s.tuning.MaxQuizCount + 1})
	if !apperrors.IsValidationError(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestQuizFromModel(t *testing.T) {
	s, _ := newQuizService(t)
	fakeLLM.set("Here you go:\n{\"quiz\": [{\"q\": \"Plants make ____.\", \"options\": [\"glucose\", \"salt\", \"iron\", \"sand\"], \"answer_index\": 0}, {\"q\": \"extra\", \"options\": [\"a\",\"b\",\"c\",\"d\"], \"answer_index\": 1}]}\nGood luck!", nil)

	quiz, err := s.Generate(context.Background(), QuizRequest{Notes: quizNotes, QType: models.QuestionObjective, Count: 1, Provider: fakeProviderName})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(quiz.Objective) != 1 || quiz.Objective[0].AnswerIndex != 0 || *quiz.Objective[0].AnswerText != "glucose" {
		t.Fatalf("quiz = %+v", quiz.Objective)
	}

	_, req := fakeLLM.snapshot()
	if req.SystemPrompt != quizSystemPrompt {
		t.Fatalf("system prompt = %q", req.SystemPrompt)
	}
	if !strings.Contains(req.Prompt, "Type: objective. Count: 1.") || !strings.HasSuffix(req.Prompt, quizNotes) {
		t.Fatalf("prompt = %q", req.Prompt)
	}
}

func TestQuizFromModelMissingQuiz(t *testing.T) {
	s, _ := newQuizService(t)
	fakeLLM.set(`{"questions": []}`, nil)

	quiz, err := s.Generate(context.Background(), QuizRequest{Notes: "n", QType: models.QuestionSubjective, Count: 3, Provider: fakeProviderName})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if quiz.Len() != 0 {
		t.Fatalf("quiz = %+v", quiz)
	}
}

func TestQuizFromModelInvalidJSON(t *testing.T) {
	s, _ := newQuizService(t)
	fakeLLM.set("I cannot help with that.", nil)

	_, err := s.Generate(context.Background(), QuizRequest{Notes: "n", QType: models.QuestionObjective, Count: 3, Provider: fakeProviderName})
	if apperrors.TypeOf(err) != apperrors.ErrorTypeUpstream {
		t.Fatalf("err = %v", err)
	}
}

func TestQuizCountsUnscorable(t *testing.T) {
	s, m := newQuizService(t)
	fakeLLM.set(`{"quiz": [{"q": "Pick one", "options": ["a", "b", "c", "d"], "answer_text": "zzz"}, {"q": "Plants make ____.", "options": ["glucose", "salt", "iron", "sand"], "answer_index": 0}]}`, nil)

	quiz, err := s.Generate(context.Background(), QuizRequest{Notes: quizNotes, QType: models.QuestionObjective, Count: 2, Provider: fakeProviderName})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if quiz.Len() != 2 || quiz.Unscorable() != 1 || quiz.Objective[0].AnswerIndex != -1 {
		t.Fatalf("quiz = %+v", quiz.Objective)
	}
	if got := m.Collector().GetCounterValue("unscorable_questions_total"); got != 1 {
		t.Fatalf("unscorable counter = %d", got)
	}
}
