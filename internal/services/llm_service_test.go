package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/llm"
)

type usageLog struct {
	mu     sync.Mutex
	tokens map[string]int
}

func (u *usageLog) RecordUsage(provider string, tokens int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tokens == nil {
		u.tokens = map[string]int{}
	}
	u.tokens[provider] += tokens
	return nil
}

func TestLLMServiceReadyFromSettings(t *testing.T) {
	base := setupConfig(t, fakeProviderName)
	s := NewLLMService(base, testMetrics(), testLogger())

	ready, state := s.GetProviderStatus()
	if !ready || state != "Ready" || s.GetProviderName() != fakeProviderName {
		t.Fatalf("status = %v %q", ready, state)
	}

	// 未配置密钥的 openai 不可用
	base = setupConfig(t, ProviderOpenAI)
	s = NewLLMService(base, testMetrics(), testLogger())
	if ready, _ := s.GetProviderStatus(); ready {
		t.Fatal("openai without key reported ready")
	}
	if s.GetDefaultModel() != "gpt-4o-mini" {
		t.Fatalf("default model = %q", s.GetDefaultModel())
	}
}

func TestLLMServiceCompleteCachesAndRecords(t *testing.T) {
	base := setupConfig(t, fakeProviderName)
	m := testMetrics()
	usage := &usageLog{}
	s := NewLLMService(base, m, testLogger())
	s.SetUsageRecorder(usage)
	fakeLLM.set("hello", nil)

	req := llm.CompletionRequest{Prompt: "p", Model: "fake-1"}
	for i := 0; i < 2; i++ {
		resp, err := s.Complete(context.Background(), "", req)
		if err != nil || resp.Text != "hello" {
			t.Fatalf("Complete: %v %+v", err, resp)
		}
	}
	if calls, last := fakeLLM.snapshot(); calls != 1 || last.Model != "fake-1" {
		t.Fatalf("calls = %d last = %+v", calls, last)
	}
	if got := m.Collector().GetCounterValue("llm_requests_" + fakeProviderName); got != 1 {
		t.Fatalf("llm counter = %d", got)
	}
	if usage.tokens[fakeProviderName] != 10 {
		t.Fatalf("usage = %v", usage.tokens)
	}
}

func TestLLMServiceErrors(t *testing.T) {
	base := setupConfig(t, fakeProviderName)
	s := NewLLMService(base, testMetrics(), testLogger())

	if _, err := s.Complete(context.Background(), "nope", llm.CompletionRequest{Prompt: "p"}); !apperrors.IsValidationError(err) {
		t.Fatalf("unknown provider err = %v", err)
	}

	fakeLLM.set("", errors.New("boom"))
	_, err := s.Complete(context.Background(), fakeProviderName, llm.CompletionRequest{Prompt: "p"})
	if apperrors.TypeOf(err) != apperrors.ErrorTypeUpstream {
		t.Fatalf("provider failure err = %v", err)
	}
}

func TestLLMServiceFollowsSettings(t *testing.T) {
	base := setupConfig(t, ProviderOpenAI)
	s := NewLLMService(base, testMetrics(), testLogger())

	newCfg := &config.AppConfig{LLMProvider: fakeProviderName, LLMConfig: map[string]string{config.KeyDefaultModel: "fake-2"}}
	s.OnConfigChanged(nil, newCfg)

	if !s.IsReady() || s.GetProviderName() != fakeProviderName || s.GetDefaultModel() != "fake-2" {
		t.Fatalf("provider = %q model = %q", s.GetProviderName(), s.GetDefaultModel())
	}
}
