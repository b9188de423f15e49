package heuristic

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/Corphon/NoteQuiz/internal/models"
)

const photosynthesis = "Photosynthesis converts light energy into chemical energy stored in glucose molecules."

func assertObjectiveContract(t *testing.T, q models.ObjectiveQuestion) {
	t.Helper()
	if len(q.Options) != optionCount {
		t.Fatalf("got %d options: %q", len(q.Options), q.Options)
	}
	seen := map[string]bool{}
	for _, o := range q.Options {
		lo := strings.ToLower(o)
		if seen[lo] {
			t.Fatalf("duplicate option %q in %q", o, q.Options)
		}
		seen[lo] = true
	}
	if q.AnswerIndex < -1 || q.AnswerIndex >= optionCount {
		t.Fatalf("answer index %d out of range", q.AnswerIndex)
	}
	if q.AnswerIndex >= 0 {
		if q.AnswerText == nil || !strings.EqualFold(q.Options[q.AnswerIndex], *q.AnswerText) {
			t.Fatalf("options[%d] = %q does not match answer text %v", q.AnswerIndex, q.Options[q.AnswerIndex], q.AnswerText)
		}
	}
}

func TestObjectiveFromSentence(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		q := ObjectiveFromSentence(photosynthesis, NewSeededRand(seed))
		assertObjectiveContract(t, q)
		if q.AnswerIndex < 0 {
			t.Fatalf("seed %d: expected a scorable question", seed)
		}
		answer := *q.AnswerText
		if len(answer) < 4 {
			t.Fatalf("seed %d: short answer %q", seed, answer)
		}
		if !strings.Contains(q.Q, blank) {
			t.Fatalf("seed %d: stem %q has no blank", seed, q.Q)
		}
		if !strings.Contains(strings.ToLower(photosynthesis), strings.ToLower(answer)) {
			t.Fatalf("seed %d: answer %q not taken from the sentence", seed, answer)
		}
	}
}

func TestObjectiveDegenerate(t *testing.T) {
	s := "It is in an of at by to on as so, or if it is."
	q := ObjectiveFromSentence(s, NewSeededRand(1))
	if q.AnswerIndex != -1 || q.AnswerText != nil {
		t.Fatalf("expected unscorable question, got %+v", q)
	}
	if q.Q != s {
		t.Fatalf("stem = %q, want raw sentence", q.Q)
	}
	if strings.Join(q.Options, "") != "ABCD" {
		t.Fatalf("options = %q", q.Options)
	}
}

func TestBlankOut(t *testing.T) {
	tests := []struct {
		sentence, word, want string
	}{
		{"Energy in, energy out.", "energy", "____ in, energy out."},
		{"Energetic energy.", "energy", "Energetic ____."},
		{"No match here.", "absent", "No match here."},
		{"C++ is a language.", "c++", "C++ is a language."},
		{"Ärzte arbeiten lange.", "rzte", "Ärzte arbeiten lange."},
		{"Die Ärzte und rzte.", "rzte", "Die Ärzte und ____."},
		{"naïve energy here.", "na", "naïve energy here."},
		{"Über energy.", "über", "____ energy."},
	}
	for _, tt := range tests {
		if got := BlankOut(tt.sentence, tt.word); got != tt.want {
			t.Errorf("BlankOut(%q, %q) = %q, want %q", tt.sentence, tt.word, got, tt.want)
		}
	}
}

func TestObjectiveKeepsNonASCIIWords(t *testing.T) {
	s := "Ärzte arbeiten lange Zeit im Krankenhaus und versorgen viele Patienten."
	for seed := uint64(0); seed < 10; seed++ {
		q := ObjectiveFromSentence(s, NewSeededRand(seed))
		if strings.Contains(q.Q, "Ä____") || strings.Contains(q.Q, "____e") {
			t.Fatalf("blank split a word: %q", q.Q)
		}
		assertObjectiveContract(t, q)
	}
}

func TestPickAnswerFallbacks(t *testing.T) {
	if a, _ := PickAnswer("", []string{"ab", "cell", "tissue"}); a != "cell" {
		t.Fatalf("first long keyword: got %q", a)
	}
	if a, _ := PickAnswer("", []string{"ab", "cd"}); a != "ab" {
		t.Fatalf("first keyword: got %q", a)
	}
	if a, _ := PickAnswer("x1 those", nil); a != "those" {
		t.Fatalf("letter run: got %q", a)
	}
	if _, ok := PickAnswer("a b c", nil); ok {
		t.Fatal("expected no candidate")
	}
}

func TestDistractors(t *testing.T) {
	rng := NewSeededRand(7)
	got := Distractors([]string{"Energy", "light", "energy", "LIGHT", "glucose"}, "energy", 3, rng)
	want := []string{"light", "glucose"}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Distractors() = %q", got)
	}
	if !strings.HasPrefix(got[2], "option") {
		t.Fatalf("expected filler, got %q", got[2])
	}

	fill := Distractors(nil, "answer", 5, rng)
	seen := map[string]bool{}
	for _, f := range fill {
		if seen[f] || f == "answer" {
			t.Fatalf("filler not unique: %q", fill)
		}
		seen[f] = true
	}
	if len(fill) != 5 {
		t.Fatalf("got %d fillers", len(fill))
	}
}

func TestNormalizeObjective(t *testing.T) {
	text := " glucose "
	q := NormalizeObjective(models.ObjectiveQuestion{
		Q:           "Stored as ____.",
		Options:     []string{"starch", "Glucose"},
		AnswerIndex: 9,
		AnswerText:  &text,
	}, NewSeededRand(3))
	assertObjectiveContract(t, q)
	if q.AnswerIndex != 1 || *q.AnswerText != "Glucose" {
		t.Fatalf("got index %d text %q", q.AnswerIndex, *q.AnswerText)
	}

	empty := "  "
	q = NormalizeObjective(models.ObjectiveQuestion{
		Options:     []string{"a", "b", "c", "d", "e"},
		AnswerIndex: -1,
		AnswerText:  &empty,
	}, NewSeededRand(3))
	assertObjectiveContract(t, q)
	if q.AnswerText != nil || q.AnswerIndex != -1 {
		t.Fatalf("blank answer text should be dropped, got %+v", q)
	}
}

func TestSubjectiveFromSentence(t *testing.T) {
	s := "Enzymes lower activation energy. They speed reactions."
	q := SubjectiveFromSentence(s)
	if q.Q != "Explain briefly: Enzymes lower activation energy." || q.Answer != s {
		t.Fatalf("got %+v", q)
	}
}

func TestBuildQuizExactLength(t *testing.T) {
	notes := strings.Join([]string{
		"- " + photosynthesis,
		"- Mitochondria release energy from glucose during cellular respiration.",
		"- Ribosomes translate messenger RNA into chains of amino acids.",
	}, "\n")
	for _, src := range []string{"", notes} {
		for _, qt := range []models.QuestionType{models.QuestionObjective, models.QuestionSubjective} {
			for n := 0; n <= 12; n++ {
				t.Run(fmt.Sprintf("%s/%d/%t", qt, n, src == ""), func(t *testing.T) {
					quiz := BuildQuiz(src, qt, n, NewSeededRand(uint64(n)))
					if quiz.Len() != n {
						t.Fatalf("len = %d, want %d", quiz.Len(), n)
					}
					for _, q := range quiz.Objective {
						assertObjectiveContract(t, q)
					}
				})
			}
		}
	}
}

func TestBuildQuizPlaceholders(t *testing.T) {
	quiz := BuildQuiz("", models.QuestionObjective, 2, NewSeededRand(1))
	for _, q := range quiz.Objective {
		if q.Q != "Placeholder question" || q.AnswerIndex != 0 {
			t.Fatalf("unexpected placeholder %+v", q)
		}
	}
	sq := BuildQuiz("", models.QuestionSubjective, 1, NewSeededRand(1))
	if sq.Subjective[0].Answer != "" {
		t.Fatalf("unexpected placeholder %+v", sq.Subjective[0])
	}
}

func TestBuildQuizDeterministicWithSeed(t *testing.T) {
	notes := "- " + photosynthesis + "\n- Mitochondria release energy from glucose during cellular respiration."
	a := BuildQuiz(notes, models.QuestionObjective, 2, NewSeededRand(42))
	b := BuildQuiz(notes, models.QuestionObjective, 2, NewSeededRand(42))
	for i := range a.Objective {
		if a.Objective[i].Q != b.Objective[i].Q || strings.Join(a.Objective[i].Options, "|") != strings.Join(b.Objective[i].Options, "|") {
			t.Fatalf("seeded quizzes differ at %d", i)
		}
	}
}

func TestQuizFromEntriesRepairsObjective(t *testing.T) {
	raw := `[
		{"q": "Plants use ____ to make food.", "options": ["light", "sound", "heat"], "answer_text": "Light"},
		{"q": "Cells", "options": ["a", "b", "c", "d"], "answer_index": 7},
		"not an object",
		{"q": "extra", "options": ["a", "b", "c", "d"], "answer_index": 0}
	]`
	var entries []models.QuizEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatal(err)
	}

	quiz := QuizFromEntries(entries, models.QuestionObjective, 2, NewSeededRand(3))
	if len(quiz.Objective) != 2 {
		t.Fatalf("got %d questions", len(quiz.Objective))
	}
	for _, q := range quiz.Objective {
		assertObjectiveContract(t, q)
	}
	if quiz.Objective[0].AnswerIndex != 0 || *quiz.Objective[0].AnswerText != "light" {
		t.Fatalf("first question not repaired: %+v", quiz.Objective[0])
	}
	if quiz.Objective[1].AnswerIndex != -1 {
		t.Fatalf("out of range index kept: %+v", quiz.Objective[1])
	}
}

func TestQuizFromEntriesSubjective(t *testing.T) {
	var entries []models.QuizEntry
	if err := json.Unmarshal([]byte(`[{"q":"Explain osmosis.","answer_text":"Water moves across a membrane."},{"q":"x"}]`), &entries); err != nil {
		t.Fatal(err)
	}
	quiz := QuizFromEntries(entries, models.QuestionSubjective, 5, nil)
	if len(quiz.Subjective) != 2 {
		t.Fatalf("got %d questions", len(quiz.Subjective))
	}
	if quiz.Subjective[0].Answer != "Water moves across a membrane." || quiz.Subjective[1].Answer != "" {
		t.Fatalf("references = %+v", quiz.Subjective)
	}

	empty := QuizFromEntries(nil, models.QuestionObjective, 3, nil)
	if data, _ := json.Marshal(empty); string(data) != "[]" {
		t.Fatalf("empty quiz = %s", data)
	}
}
