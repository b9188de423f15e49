package services

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/models"
)

type stubRecognizer struct {
	text  string
	calls atomic.Int32
}

func (r *stubRecognizer) Recognize(context.Context, []byte) (string, error) {
	r.calls.Add(1)
	return r.text, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(2, 2, color.Gray{Y: 0})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestGradeObjective(t *testing.T) {
	rec := &stubRecognizer{text: "ignored"}
	s := NewGradingService(nil, rec, testMetrics(), testLogger())

	out, err := s.Grade(context.Background(), GradeRequest{
		QuizJSON:    `[{"answer_index":1,"options":["a","b","c","d"]},{"options":["x","y"],"answer_text":" Y "}]`,
		AnswersJSON: `["1", 0]`,
		QType:       models.QuestionObjective,
		Images:      [][]byte{pngBytes(t)},
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if out.Objective == nil || out.Objective.Correct != 1 || out.Objective.Total != 2 || out.Score() != 50 {
		t.Fatalf("outcome = %+v", out.Objective)
	}
	if rec.calls.Load() != 0 {
		t.Fatal("objective grading must not run OCR")
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"score":50,"correct":1,"total":2,"results":[{"i":0,"correct":true,"your":1,"answer":1},{"i":1,"correct":false,"your":0,"answer":1}]}`
	if string(data) != want {
		t.Fatalf("json = %s", data)
	}
}

func TestGradeSubjectiveWithImages(t *testing.T) {
	rec := &stubRecognizer{text: "stored in glucose molecules."}
	s := NewGradingService(nil, rec, testMetrics(), testLogger())

	ref := "Photosynthesis converts light energy into chemical energy stored in glucose molecules."
	quiz, _ := json.Marshal([]map[string]string{{"q": "What is photosynthesis?", "answer": ref}, {"q": "second", "answer": ref}})
	out, err := s.Grade(context.Background(), GradeRequest{
		QuizJSON:    string(quiz),
		AnswersJSON: `["Photosynthesis converts light energy into chemical energy", "no idea"]`,
		QType:       models.QuestionSubjective,
		Images:      [][]byte{pngBytes(t), []byte("not an image")},
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if rec.calls.Load() != 1 {
		t.Fatalf("recognizer calls = %d", rec.calls.Load())
	}
	first := out.Subjective.Results[0]
	if !first.IsCorrect || first.Info.Coverage != 1 {
		t.Fatalf("first result = %+v", first)
	}
	if out.Subjective.Results[1].IsCorrect {
		t.Fatalf("second result = %+v", out.Subjective.Results[1])
	}
}

func TestGradeRejectsMalformedJSON(t *testing.T) {
	s := NewGradingService(nil, nil, nil, testLogger())
	cases := []GradeRequest{
		{QuizJSON: `{"not":"array"}`, AnswersJSON: `[]`, QType: models.QuestionObjective},
		{QuizJSON: `[]`, AnswersJSON: `nope`, QType: models.QuestionObjective},
	}
	for _, req := range cases {
		if _, err := s.Grade(context.Background(), req); !apperrors.IsValidationError(err) {
			t.Fatalf("Grade(%+v) err = %v", req, err)
		}
	}
}

func TestRecognizeImagesCancelled(t *testing.T) {
	s := NewGradingService(nil, &stubRecognizer{text: "x"}, nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.RecognizeImages(ctx, [][]byte{pngBytes(t)}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestGradeOne(t *testing.T) {
	s := NewGradingService(nil, nil, nil, testLogger())
	var q models.QuizEntry
	if err := json.Unmarshal([]byte(`{"q":"2+2","options":["3","4","5","6"],"answer_index":1}`), &q); err != nil {
		t.Fatal(err)
	}
	out := s.GradeOne(models.QuestionObjective, q, models.TextSubmission("1"))
	if out.Objective.Correct != 1 || out.Score() != 100 {
		t.Fatalf("outcome = %+v", out.Objective)
	}
}
