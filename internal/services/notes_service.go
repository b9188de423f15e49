// internal/services/notes_service.go
package services

import (
	"context"
	"strings"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/extract"
	"github.com/Corphon/NoteQuiz/internal/heuristic"
	"github.com/Corphon/NoteQuiz/internal/llm"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

const (
	notesHeading = "# Important Notes"

	smartNotesSystemPrompt = "You are a meticulous note maker. Summarize the document into clean Markdown with sections and concise bullets (max 8 per section). Preserve key definitions, formulas, and lists. Do not invent facts."
	smartNotesUserPrompt   = "Make exam-ready notes from the following content:\n\n"
	markdownOnlySuffix     = "\n\nReturn only Markdown."
)

// NotesOptions /api/notes 的参数；Auto 为 true 时忽略 Ratio 与 MaxBullets
type NotesOptions struct {
	Auto       bool
	Ratio      float64
	MaxBullets int
	OCR        bool
}

// SmartNotesOptions /api/smart-notes 的参数
type SmartNotesOptions struct {
	Provider string
	Model    string
	OCR      bool
}

// NotesService 从 PDF 生成复习笔记
type NotesService struct {
	recognizer  extract.Recognizer
	ocrFallback bool
	llm         *LLMService
	tuning      config.Tuning
	metrics     *utils.APIMetrics
	logger      *utils.Logger

	// 测试可替换提取策略
	pageText extract.Strategy
}

// NewNotesService recognizer 为 nil 时 OCR 不可用
func NewNotesService(cfg *config.Config, recognizer extract.Recognizer, llmService *LLMService, metrics *utils.APIMetrics, logger *utils.Logger) *NotesService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	s := &NotesService{
		recognizer: recognizer,
		llm:        llmService,
		tuning:     config.DefaultTuning(),
		metrics:    metrics,
		logger:     logger,
		pageText:   extract.PageText{},
	}
	if cfg != nil {
		s.ocrFallback = cfg.OCRFallback
		s.tuning = cfg.Tuning
	}
	return s
}

// chain 勾选 OCR 时只做识别；否则先取文本层，按配置回退到识别
func (s *NotesService) chain(useOCR bool) *extract.Chain {
	ocr := extract.PageImageOCR{Recognizer: s.recognizer, Logger: s.logger, Metrics: s.metrics}
	if useOCR {
		return extract.NewChain(s.logger, s.metrics, ocr)
	}
	strategies := []extract.Strategy{s.pageText}
	if s.ocrFallback && s.recognizer != nil {
		strategies = append(strategies, ocr)
	}
	return extract.NewChain(s.logger, s.metrics, strategies...)
}

// ExtractText 提取文档文本；没有文本时返回 EmptyInput 错误
func (s *NotesService) ExtractText(ctx context.Context, pdf []byte, useOCR bool) (string, error) {
	res, err := s.chain(useOCR).Extract(ctx, pdf)
	if err != nil {
		return "", err
	}
	if res.Empty() {
		if s.metrics != nil {
			s.metrics.RecordError(string(apperrors.ErrorTypeEmptyInput), "notes_service")
		}
		return "", apperrors.NewEmptyInputError(apperrors.MessageNoText, nil)
	}
	return res.Text, nil
}

// Notes 启发式压缩笔记
func (s *NotesService) Notes(ctx context.Context, pdf []byte, opts NotesOptions) (string, error) {
	text, err := s.ExtractText(ctx, pdf, opts.OCR)
	if err != nil {
		return "", err
	}

	params := heuristic.AutoParams(text)
	if !opts.Auto {
		params = heuristic.ClampParams(opts.Ratio, opts.MaxBullets)
	}
	s.logger.Debug("生成笔记", map[string]interface{}{
		"chars":       len(text),
		"ratio":       params.Ratio,
		"max_bullets": params.MaxBullets,
	})
	return heuristic.Condense(text, params), nil
}

// SmartNotes 调用大模型生成笔记
func (s *NotesService) SmartNotes(ctx context.Context, pdf []byte, opts SmartNotesOptions) (string, error) {
	text, err := s.ExtractText(ctx, pdf, opts.OCR)
	if err != nil {
		return "", err
	}
	if s.llm == nil {
		return "", apperrors.NewProviderUnavailableError("LLM service not available", nil)
	}

	req := llm.CompletionRequest{
		SystemPrompt: smartNotesSystemPrompt,
		Prompt:       smartNotesUserPrompt + truncateRunes(text, s.tuning.LLMTextLimit),
		Temperature:  s.tuning.LLMTemperature,
		Model:        opts.Model,
	}
	if strings.EqualFold(opts.Provider, ProviderOllama) {
		req.Prompt += markdownOnlySuffix
	}

	resp, err := s.llm.Complete(ctx, opts.Provider, req)
	if err != nil {
		return "", err
	}
	return withNotesHeading(resp.Text), nil
}

// withNotesHeading 结果不以标题开头时补上统一标题
func withNotesHeading(md string) string {
	md = strings.TrimSpace(md)
	if strings.HasPrefix(md, "#") {
		return md
	}
	return notesHeading + "\n\n" + md
}

// truncateRunes 按字符截断，limit <= 0 不截断
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
