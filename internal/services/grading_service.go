// internal/services/grading_service.go
package services

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/extract"
	"github.com/Corphon/NoteQuiz/internal/heuristic"
	"github.com/Corphon/NoteQuiz/internal/models"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

// GradeRequest /api/grade 的参数；Images 为手写答案照片，按题目顺序对应
type GradeRequest struct {
	QuizJSON    string
	AnswersJSON string
	QType       models.QuestionType
	Images      [][]byte
}

// GradeOutcome 两种题型的评分报告，只有一个非空
type GradeOutcome struct {
	Objective  *models.GradeReport[models.ObjectiveResult]
	Subjective *models.GradeReport[models.SubjectiveResult]
}

// MarshalJSON 输出非空的那份报告
func (o GradeOutcome) MarshalJSON() ([]byte, error) {
	if o.Objective != nil {
		return json.Marshal(o.Objective)
	}
	return json.Marshal(o.Subjective)
}

// Score 总分
func (o GradeOutcome) Score() float64 {
	if o.Objective != nil {
		return o.Objective.Score
	}
	if o.Subjective != nil {
		return o.Subjective.Score
	}
	return 0
}

// Total 题目数
func (o GradeOutcome) Total() int {
	if o.Objective != nil {
		return o.Objective.Total
	}
	if o.Subjective != nil {
		return o.Subjective.Total
	}
	return 0
}

// GradingService 评分与手写答案识别
type GradingService struct {
	reader      extract.ImageReader
	concurrency int
	metrics     *utils.APIMetrics
	logger      *utils.Logger
}

// NewGradingService recognizer 为 nil 时上传的图片识别为空文本
func NewGradingService(cfg *config.Config, recognizer extract.Recognizer, metrics *utils.APIMetrics, logger *utils.Logger) *GradingService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	concurrency := 4
	if cfg != nil && cfg.OCRConcurrency > 0 {
		concurrency = cfg.OCRConcurrency
	}
	return &GradingService{
		reader:      extract.ImageReader{Recognizer: recognizer, Metrics: metrics},
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger,
	}
}

// Grade 解析测验与答案并评分；简答题会先识别上传的图片
func (s *GradingService) Grade(ctx context.Context, req GradeRequest) (GradeOutcome, error) {
	var quiz []models.QuizEntry
	if err := json.Unmarshal([]byte(req.QuizJSON), &quiz); err != nil {
		return GradeOutcome{}, apperrors.NewValidationError("quiz_json must be a JSON array", err)
	}
	var answers []models.Submission
	if err := json.Unmarshal([]byte(req.AnswersJSON), &answers); err != nil {
		return GradeOutcome{}, apperrors.NewValidationError("answers_json must be a JSON array", err)
	}

	if req.QType == models.QuestionSubjective && len(req.Images) > 0 {
		recognized, err := s.RecognizeImages(ctx, req.Images)
		if err != nil {
			return GradeOutcome{}, err
		}
		answers = heuristic.MergeRecognized(answers, recognized)
	}

	outcome := gradeEntries(req.QType, quiz, answers)
	if s.metrics != nil {
		s.metrics.RecordGrading(string(req.QType), outcome.Total(), outcome.Score())
	}
	s.logger.Debug("评分完成", map[string]interface{}{
		"type":   req.QType,
		"total":  outcome.Total(),
		"score":  outcome.Score(),
		"images": len(req.Images),
	})
	return outcome, nil
}

// GradeOne 单题评分，供练习通道使用
func (s *GradingService) GradeOne(qtype models.QuestionType, question models.QuizEntry, answer models.Submission) GradeOutcome {
	return gradeEntries(qtype, []models.QuizEntry{question}, []models.Submission{answer})
}

func gradeEntries(qtype models.QuestionType, quiz []models.QuizEntry, answers []models.Submission) GradeOutcome {
	if qtype == models.QuestionObjective {
		report := heuristic.GradeObjective(quiz, answers)
		return GradeOutcome{Objective: &report}
	}
	report := heuristic.GradeSubjective(quiz, answers)
	return GradeOutcome{Subjective: &report}
}

// RecognizeImages 并发识别图片，结果与输入一一对应；单张失败记为空文本。
// 只有上下文取消才返回错误。
func (s *GradingService) RecognizeImages(ctx context.Context, images [][]byte) ([]string, error) {
	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, data := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := s.reader.Read(gctx, data)
			if err != nil {
				s.logger.Warn("答案图片识别失败", map[string]interface{}{"index": i, "error": err})
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, ctx.Err()
}
