package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeJSONReply(t *testing.T) {
	var out struct {
		Quiz []json.RawMessage `json:"quiz"`
	}
	reply := "Sure! Here it is:\n```json\n{\"quiz\": [{\"q\": \"a\"}, {\"q\": \"b\"}]}\n```"
	if err := DecodeJSONReply(reply, &out); err != nil {
		t.Fatalf("DecodeJSONReply: %v", err)
	}
	if len(out.Quiz) != 2 {
		t.Fatalf("quiz = %s", out.Quiz)
	}

	if err := DecodeJSONReply("no json at all", &out); err == nil {
		t.Fatal("expected error")
	}
}

type stubProvider struct{ initErr error }

func (s *stubProvider) Initialize(map[string]string) error { return s.initErr }
func (s *stubProvider) GetName() string                    { return "stub" }
func (s *stubProvider) GetSupportedModels() []string       { return []string{"m1"} }
func (s *stubProvider) CompleteText(context.Context, CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{Text: "ok"}, nil
}

func TestRegistry(t *testing.T) {
	Register("stub-ok", func() Provider { return &stubProvider{} })
	Register("stub-bad", func() Provider { return &stubProvider{initErr: ErrMissingAPIKey} })

	if _, err := GetProvider("stub-ok", nil); err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if _, err := GetProvider("stub-bad", nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v", err)
	}
	if _, err := GetProvider("nope", nil); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v", err)
	}
	if models := GetSupportedModelsForProvider("stub-ok"); len(models) != 1 {
		t.Fatalf("models = %v", models)
	}
}
