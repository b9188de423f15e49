// internal/llm/providers/ollama/ollama.go
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Corphon/NoteQuiz/internal/llm"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.1"
)

func init() {
	llm.Register("ollama", func() llm.Provider {
		return &Provider{
			baseURL:           defaultBaseURL,
			recommendedModels: []string{"llama3.1", "llama3.2", "qwen2.5", "mistral"},
		}
	})
}

// Provider 调用本地 Ollama 的 /api/generate（非流式）
type Provider struct {
	baseURL           string
	client            *http.Client
	defaultModel      string
	recommendedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	p.client = &http.Client{Timeout: 120 * time.Second}

	if baseURL := config["base_url"]; baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	p.defaultModel = defaultModel
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}
	return nil
}

func (p *Provider) GetName() string {
	return "Ollama"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	// generate 接口没有 system 角色，系统提示拼在前面
	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + prompt
	}

	options := map[string]interface{}{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	jsonData, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("无法连接Ollama: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, fmt.Errorf("Ollama API错误(%d): %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}

	return &llm.CompletionResponse{
		Text:         response.Response,
		FinishReason: response.DoneReason,
		TokensUsed:   response.PromptEvalCount + response.EvalCount,
		PromptTokens: response.PromptEvalCount,
		OutputTokens: response.EvalCount,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}
