package services

import (
	"testing"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
)

type recordingSubscriber struct {
	got *config.AppConfig
}

func (r *recordingSubscriber) OnConfigChanged(_, newConfig *config.AppConfig) {
	r.got = newConfig
}

func TestConfigServiceUpdate(t *testing.T) {
	setupConfig(t, ProviderOpenAI)
	s := NewConfigService(testLogger())
	sub := &recordingSubscriber{}
	s.SubscribeToChanges(sub)

	if err := s.UpdateLLMConfig("unknown", map[string]string{}, "test"); !apperrors.IsValidationError(err) {
		t.Fatalf("err = %v", err)
	}
	if err := s.UpdateLLMConfig(" OpenAI ", map[string]string{config.KeyAPIKey: "sk-123"}, "test"); err != nil {
		t.Fatalf("UpdateLLMConfig: %v", err)
	}

	if sub.got == nil || sub.got.LLMConfig[config.KeyDefaultModel] != "gpt-4o-mini" {
		t.Fatalf("subscriber got %+v", sub.got)
	}
	history := s.GetChangeHistory(10)
	if len(history) != 1 || !history[0].KeyChanged || history[0].NewProvider != ProviderOpenAI {
		t.Fatalf("history = %+v", history)
	}

	settings := s.PublicSettings()
	llmCfg := settings["llm_config"].(map[string]interface{})
	if llmCfg["has_api_key"] != true {
		t.Fatalf("settings = %v", settings)
	}
	for _, v := range llmCfg {
		if v == "sk-123" {
			t.Fatal("api key leaked into public settings")
		}
	}
}
