package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	tuning := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(tuning, []byte("llm_text_limit: 500\nrate_limit_requests: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("OCR_LANGUAGES", "eng+deu")
	t.Setenv("OCR_FALLBACK", "yes")
	t.Setenv("OCR_CONCURRENCY", "0")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434/")
	t.Setenv("TUNING_FILE", tuning)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || !cfg.OCRFallback || cfg.OCRConcurrency != 1 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if strings.Join(cfg.OCRLanguages, "|") != "eng|deu" || len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("lists: %v %v", cfg.OCRLanguages, cfg.AllowedOrigins)
	}
	if cfg.OllamaBaseURL != "http://ollama:11434" {
		t.Fatalf("base url = %q", cfg.OllamaBaseURL)
	}
	if cfg.Tuning.LLMTextLimit != 500 || cfg.Tuning.RateLimitRequests != 2 || cfg.Tuning.MaxQuizCount != 50 {
		t.Fatalf("tuning = %+v", cfg.Tuning)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestInitConfigSealsAPIKey(t *testing.T) {
	dir := t.TempDir()
	base := &Config{
		Port:         "8080",
		DataDir:      dir,
		LLMProvider:  "openai",
		OpenAIAPIKey: "sk-env",
		ConfigSecret: "s3cret",
	}
	if err := InitConfig(base); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	if err := UpdateLLMConfig("openai", map[string]string{KeyAPIKey: "sk-saved", KeyDefaultModel: "gpt-4o"}); err != nil {
		t.Fatalf("UpdateLLMConfig: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "sk-saved") {
		t.Fatalf("plain key on disk: %s", raw)
	}

	// 重新加载后密钥应被解密
	if err := InitConfig(base); err != nil {
		t.Fatalf("reload: %v", err)
	}
	cfg := GetCurrentConfig()
	if cfg.LLMConfig[KeyAPIKey] != "sk-saved" || cfg.LLMConfig[KeyDefaultModel] != "gpt-4o" {
		t.Fatalf("llm config = %v", cfg.LLMConfig)
	}

	// 返回的是副本
	cfg.LLMConfig[KeyAPIKey] = "changed"
	if GetCurrentConfig().LLMConfig[KeyAPIKey] != "sk-saved" {
		t.Fatal("GetCurrentConfig leaked internal map")
	}
}

func TestUpdateKeepsKeyWhenOmitted(t *testing.T) {
	base := &Config{DataDir: t.TempDir(), LLMProvider: "openai", OpenAIAPIKey: "sk-env"}
	if err := InitConfig(base); err != nil {
		t.Fatal(err)
	}
	if err := UpdateLLMConfig("openai", map[string]string{KeyDefaultModel: "gpt-4o"}); err != nil {
		t.Fatal(err)
	}
	if got := GetCurrentConfig().LLMConfig[KeyAPIKey]; got != "sk-env" {
		t.Fatalf("api key = %q", got)
	}
}

func TestInitConfigGeneratesSecret(t *testing.T) {
	dir := t.TempDir()
	base := &Config{DataDir: dir, LLMProvider: "openai"}
	if err := InitConfig(base); err != nil {
		t.Fatal(err)
	}
	if err := UpdateLLMConfig("openai", map[string]string{KeyAPIKey: "sk-local"}); err != nil {
		t.Fatal(err)
	}

	secret, err := os.ReadFile(filepath.Join(dir, secretFileName))
	if err != nil || len(strings.TrimSpace(string(secret))) != 64 {
		t.Fatalf("secret file = %q, %v", secret, err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "config.json"))
	if strings.Contains(string(raw), "sk-local") {
		t.Fatalf("plain key on disk: %s", raw)
	}

	// 同一数据目录重启后沿用密钥
	if err := InitConfig(base); err != nil {
		t.Fatal(err)
	}
	if got := GetCurrentConfig().LLMConfig[KeyAPIKey]; got != "sk-local" {
		t.Fatalf("api key = %q", got)
	}
	again, _ := os.ReadFile(filepath.Join(dir, secretFileName))
	if string(again) != string(secret) {
		t.Fatal("secret regenerated")
	}
}
