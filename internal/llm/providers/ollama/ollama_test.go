package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Corphon/NoteQuiz/internal/llm"
)

func TestCompleteText(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:           got.Model,
			Response:        "# Notes",
			Done:            true,
			DoneReason:      "stop",
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	p := &Provider{}
	if err := p.Initialize(map[string]string{"base_url": srv.URL + "/"}); err != nil {
		t.Fatal(err)
	}
	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		SystemPrompt: "be terse",
		Prompt:       "summarize",
		Temperature:  0.2,
	})
	if err != nil {
		t.Fatalf("CompleteText: %v", err)
	}
	if resp.Text != "# Notes" || resp.TokensUsed != 10 || resp.ModelName != defaultModel {
		t.Fatalf("resp = %+v", resp)
	}
	if got.Stream || got.Prompt != "be terse\n\nsummarize" || got.Options["temperature"] != 0.2 {
		t.Fatalf("request = %+v", got)
	}
}

func TestCompleteTextHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := &Provider{}
	_ = p.Initialize(map[string]string{"base_url": srv.URL})
	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}
