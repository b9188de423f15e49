// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Corphon/NoteQuiz/internal/llm"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultModel = "gpt-4o-mini"

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-4.1"},
		}
	})
}

// Provider 基于官方 openai-go SDK 的聊天补全
type Provider struct {
	client            openai.Client
	defaultModel      string
	recommendedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey := strings.TrimSpace(config["api_key"])
	if apiKey == "" {
		return fmt.Errorf("OpenAI: %w", llm.ErrMissingAPIKey)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		option.WithMaxRetries(2),
	}
	if baseURL := config["base_url"]; baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	p.client = openai.NewClient(opts...)

	p.defaultModel = defaultModel
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}
	return nil
}

func (p *Provider) GetName() string {
	return "OpenAI"
}

func (p *Provider) GetSupportedModels() []string {
	return p.recommendedModels
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)}
	if req.SystemPrompt != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(req.SystemPrompt)}, messages...)
	}

	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API错误: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		TokensUsed:   int(resp.Usage.TotalTokens),
		PromptTokens: int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		ModelName:    resp.Model,
		ProviderName: p.GetName(),
	}, nil
}
