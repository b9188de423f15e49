// internal/api/handlers.go
package api

import (
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/models"
	"github.com/Corphon/NoteQuiz/internal/services"
	"github.com/Corphon/NoteQuiz/internal/utils"
	"github.com/gin-gonic/gin"
)

// Version 对外公布的服务版本
const Version = "1.1.1"

// Handler 处理API请求
type Handler struct {
	// 核心服务
	NotesService   *services.NotesService   // 笔记生成
	QuizService    *services.QuizService    // 测验生成
	GradingService *services.GradingService // 评分
	LLMService     *services.LLMService     // 大模型访问
	ConfigService  *services.ConfigService  // 配置服务
	StatsService   *services.StatsService   // 用量统计

	Metrics  *utils.APIMetrics
	Practice *PracticeHub    // 练习通道
	Response *ResponseHelper // 响应助手
}

// NotesResponse 笔记接口响应
type NotesResponse struct {
	Markdown string `json:"markdown"`
}

// QuizResponse 测验接口响应；type 原样回显请求参数
type QuizResponse struct {
	Type string      `json:"type"`
	Quiz models.Quiz `json:"quiz"`
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": Version})
}

// MakeNotes POST /api/notes
func (h *Handler) MakeNotes(c *gin.Context) {
	pdf, ok := h.requireFile(c, "file")
	if !ok {
		return
	}

	opts := services.NotesOptions{
		Auto: formBool(c, "auto", true),
		OCR:  formBool(c, "ocr", false),
	}
	if !opts.Auto {
		ratio, err := strconv.ParseFloat(strings.TrimSpace(c.DefaultPostForm("ratio", "auto")), 64)
		if err != nil {
			h.Response.DetailBadRequest(c, "ratio must be a number when auto is false")
			return
		}
		maxBullets, err := strconv.Atoi(strings.TrimSpace(c.DefaultPostForm("max_bullets", "auto")))
		if err != nil {
			h.Response.DetailBadRequest(c, "max_bullets must be an integer when auto is false")
			return
		}
		opts.Ratio, opts.MaxBullets = ratio, maxBullets
	}

	md, err := h.NotesService.Notes(c.Request.Context(), pdf, opts)
	if err != nil {
		h.Response.Detail(c, err)
		return
	}
	c.JSON(http.StatusOK, NotesResponse{Markdown: md})
}

// MakeSmartNotes POST /api/smart-notes
func (h *Handler) MakeSmartNotes(c *gin.Context) {
	pdf, ok := h.requireFile(c, "file")
	if !ok {
		return
	}

	opts := services.SmartNotesOptions{
		Provider: c.DefaultPostForm("provider", services.ProviderOpenAI),
		Model:    c.DefaultPostForm("model", "gpt-4o-mini"),
		OCR:      formBool(c, "ocr", false),
	}
	md, err := h.NotesService.SmartNotes(c.Request.Context(), pdf, opts)
	if err != nil {
		h.Response.Detail(c, err)
		return
	}
	c.JSON(http.StatusOK, NotesResponse{Markdown: md})
}

// MakeQuiz POST /api/quiz
func (h *Handler) MakeQuiz(c *gin.Context) {
	notes, ok := c.GetPostForm("notes")
	if !ok {
		h.Response.DetailBadRequest(c, "notes is required")
		return
	}
	qtype := c.DefaultPostForm("qtype", string(models.QuestionObjective))
	count, err := strconv.Atoi(strings.TrimSpace(c.DefaultPostForm("count", "5")))
	if err != nil {
		h.Response.DetailBadRequest(c, "count must be an integer")
		return
	}

	quiz, err := h.QuizService.Generate(c.Request.Context(), services.QuizRequest{
		Notes:    notes,
		QType:    models.ParseQuestionType(qtype),
		Count:    count,
		Provider: c.DefaultPostForm("provider", services.ProviderHeuristic),
		Model:    c.PostForm("model"),
	})
	if err != nil {
		h.Response.Detail(c, err)
		return
	}
	c.JSON(http.StatusOK, QuizResponse{Type: qtype, Quiz: quiz})
}

// GradeQuiz POST /api/grade
func (h *Handler) GradeQuiz(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil && isTooLarge(err) {
		h.Response.Detail(c, err)
		return
	}
	quizJSON, ok := c.GetPostForm("quiz_json")
	if !ok {
		h.Response.DetailBadRequest(c, "quiz_json is required")
		return
	}
	answersJSON, ok := c.GetPostForm("answers_json")
	if !ok {
		h.Response.DetailBadRequest(c, "answers_json is required")
		return
	}

	req := services.GradeRequest{
		QuizJSON:    quizJSON,
		AnswersJSON: answersJSON,
		QType:       models.ParseQuestionType(c.DefaultPostForm("qtype", string(models.QuestionObjective))),
	}
	if form != nil {
		for _, fh := range form.File["files"] {
			data, err := readUpload(fh)
			if err != nil {
				h.Response.Detail(c, err)
				return
			}
			req.Images = append(req.Images, data)
		}
	}

	outcome, err := h.GradingService.Grade(c.Request.Context(), req)
	if err != nil {
		h.Response.Detail(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// requireFile 读取必填的上传文件
func (h *Handler) requireFile(c *gin.Context, field string) ([]byte, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		if isTooLarge(err) {
			h.Response.Detail(c, err)
			return nil, false
		}
		h.Response.Detail(c, apperrors.NewAppError(apperrors.ErrorTypeValidation, field+" is required", err))
		return nil, false
	}
	data, err := readUpload(fh)
	if err != nil {
		h.Response.Detail(c, err)
		return nil, false
	}
	return data, true
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to open upload", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr)
}

// formBool 表单布尔值，只有 "true"（不区分大小写）为真
func formBool(c *gin.Context, key string, def bool) bool {
	v, ok := c.GetPostForm(key)
	if !ok {
		return def
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
