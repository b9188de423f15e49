// internal/services/quiz_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/heuristic"
	"github.com/Corphon/NoteQuiz/internal/llm"
	"github.com/Corphon/NoteQuiz/internal/models"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

// ProviderHeuristic 本地启发式出题
const ProviderHeuristic = "heuristic"

const quizSystemPrompt = "You return strict JSON only."

// QuizRequest /api/quiz 的参数
type QuizRequest struct {
	Notes    string
	QType    models.QuestionType
	Count    int
	Provider string
	Model    string
}

// QuizService 从笔记生成测验
type QuizService struct {
	llm     *LLMService
	tuning  config.Tuning
	rng     heuristic.Rand
	metrics *utils.APIMetrics
	logger  *utils.Logger
}

// NewQuizService rng 为 nil 时使用进程级随机源
func NewQuizService(cfg *config.Config, llmService *LLMService, rng heuristic.Rand, metrics *utils.APIMetrics, logger *utils.Logger) *QuizService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if rng == nil {
		rng = heuristic.ProcessRand()
	}
	s := &QuizService{
		llm:     llmService,
		tuning:  config.DefaultTuning(),
		rng:     rng,
		metrics: metrics,
		logger:  logger,
	}
	if cfg != nil {
		s.tuning = cfg.Tuning
	}
	return s
}

// Generate 按提供者生成测验
func (s *QuizService) Generate(ctx context.Context, req QuizRequest) (models.Quiz, error) {
	if req.Count > s.tuning.MaxQuizCount {
		return models.Quiz{}, apperrors.NewValidationError(
			fmt.Sprintf("count must not exceed %d", s.tuning.MaxQuizCount), nil)
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	var (
		quiz models.Quiz
		err  error
	)
	if provider == "" || provider == ProviderHeuristic {
		provider = ProviderHeuristic
		quiz = heuristic.BuildQuiz(req.Notes, req.QType, req.Count, s.rng)
	} else {
		quiz, err = s.generateWithLLM(ctx, provider, req)
		if err != nil {
			return models.Quiz{}, err
		}
	}

	if s.metrics != nil {
		s.metrics.RecordQuiz(provider, string(req.QType), quiz.Len(), quiz.Unscorable())
	}
	s.logger.Debug("生成测验", map[string]interface{}{
		"provider":   provider,
		"type":       req.QType,
		"requested":  req.Count,
		"generated":  quiz.Len(),
		"unscorable": quiz.Unscorable(),
	})
	return quiz, nil
}

// quizReply 模型返回的 JSON；缺少 quiz 字段视为空测验
type quizReply struct {
	Quiz []models.QuizEntry `json:"quiz"`
}

func (s *QuizService) generateWithLLM(ctx context.Context, provider string, req QuizRequest) (models.Quiz, error) {
	if s.llm == nil {
		return models.Quiz{}, apperrors.NewProviderUnavailableError("LLM service not available", nil)
	}

	creq := llm.CompletionRequest{
		Prompt:      quizPrompt(req, truncateRunes(req.Notes, s.tuning.LLMTextLimit)),
		Temperature: s.tuning.LLMTemperature,
		Model:       req.Model,
	}
	if provider != ProviderOllama {
		creq.SystemPrompt = quizSystemPrompt
	}

	resp, err := s.llm.Complete(ctx, provider, creq)
	if err != nil {
		return models.Quiz{}, err
	}

	var reply quizReply
	if err := llm.DecodeJSONReply(resp.Text, &reply); err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("invalid_json", "quiz_service")
		}
		return models.Quiz{}, apperrors.NewUpstreamError("model returned an unreadable quiz", err)
	}
	return heuristic.QuizFromEntries(reply.Quiz, req.QType, req.Count, s.rng), nil
}

func quizPrompt(req QuizRequest, notes string) string {
	return "Create a quiz from the following notes.\n" +
		fmt.Sprintf("Type: %s. Count: %d.\n", req.QType, req.Count) +
		"Return strict JSON with `quiz` array. For objective: {q, options[4], answer_index}. For subjective: {q, answer}.\n\n" +
		"Notes:\n" + notes
}
