package services

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/Corphon/NoteQuiz/internal/config"
	"github.com/Corphon/NoteQuiz/internal/llm"
	_ "github.com/Corphon/NoteQuiz/internal/llm/providers/openai"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

const fakeProviderName = "fake"

// fakeBackend 记录发给假模型的请求并返回预设回复
type fakeBackend struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	last  llm.CompletionRequest
}

var fakeLLM = &fakeBackend{}

func (f *fakeBackend) set(reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply, f.err, f.calls = reply, err, 0
	f.last = llm.CompletionRequest{}
}

func (f *fakeBackend) snapshot() (int, llm.CompletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.last
}

type fakeProvider struct{ b *fakeBackend }

func (fakeProvider) Initialize(map[string]string) error { return nil }
func (fakeProvider) GetName() string                    { return fakeProviderName }
func (fakeProvider) GetSupportedModels() []string       { return []string{"fake-1"} }

func (p fakeProvider) CompleteText(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.calls++
	p.b.last = req
	if p.b.err != nil {
		return nil, p.b.err
	}
	return &llm.CompletionResponse{Text: p.b.reply, TokensUsed: 10, ModelName: req.Model, ProviderName: fakeProviderName}, nil
}

func init() {
	llm.Register(fakeProviderName, func() llm.Provider { return fakeProvider{fakeLLM} })
}

// setupConfig 在临时目录初始化全局设置
func setupConfig(t *testing.T, provider string) *config.Config {
	t.Helper()
	base := &config.Config{
		Port:           "8080",
		DataDir:        t.TempDir(),
		LLMProvider:    provider,
		OCRConcurrency: 2,
		Tuning:         config.DefaultTuning(),
	}
	if err := config.InitConfig(base); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	fakeLLM.set("", nil)
	return base
}

func testLogger() *utils.Logger {
	return utils.NewLogger(zap.NewNop())
}

func testMetrics() *utils.APIMetrics {
	return utils.NewAPIMetricsWith(utils.NewMetricsCollector(), testLogger())
}
