// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/Corphon/NoteQuiz/internal/config"
	"github.com/Corphon/NoteQuiz/internal/di"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/services"
	"github.com/Corphon/NoteQuiz/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server 路由及其附属资源
type Server struct {
	Engine   *gin.Engine
	Handler  *Handler
	limiter  *RateLimiter
	practice *PracticeHub
}

// Close 停止练习通道和限流清理
func (s *Server) Close() {
	s.practice.Shutdown()
	s.limiter.Stop()
}

// SetupRouter 从容器取出服务并配置 HTTP 路由
func SetupRouter(cfg *config.Config) (*Server, error) {
	container := di.GetContainer()

	notesService, err := di.Resolve[*services.NotesService](container, di.ServiceNotes)
	if err != nil {
		return nil, fmt.Errorf("笔记服务未正确初始化: %w", err)
	}
	quizService, err := di.Resolve[*services.QuizService](container, di.ServiceQuiz)
	if err != nil {
		return nil, fmt.Errorf("测验服务未正确初始化: %w", err)
	}
	gradingService, err := di.Resolve[*services.GradingService](container, di.ServiceGrading)
	if err != nil {
		return nil, fmt.Errorf("评分服务未正确初始化: %w", err)
	}
	llmService, err := di.Resolve[*services.LLMService](container, di.ServiceLLM)
	if err != nil {
		return nil, fmt.Errorf("大模型服务未正确初始化: %w", err)
	}
	configService, err := di.Resolve[*services.ConfigService](container, di.ServiceConfig)
	if err != nil {
		return nil, fmt.Errorf("配置服务未正确初始化: %w", err)
	}
	statsService, err := di.Resolve[*services.StatsService](container, di.ServiceStats)
	if err != nil {
		return nil, fmt.Errorf("统计服务未正确初始化: %w", err)
	}
	metrics, err := di.Resolve[*utils.APIMetrics](container, di.ServiceMetrics)
	if err != nil {
		return nil, fmt.Errorf("指标收集器未正确初始化: %w", err)
	}
	logger := utils.GetLogger()

	practice := NewPracticeHub(cfg.AllowedOrigins, metrics, logger)
	handler := &Handler{
		NotesService:   notesService,
		QuizService:    quizService,
		GradingService: gradingService,
		LLMService:     llmService,
		ConfigService:  configService,
		StatsService:   statsService,
		Metrics:        metrics,
		Practice:       practice,
		Response:       NewResponseHelper(logger),
	}

	limiter := NewRateLimiter(time.Hour)
	engine := NewEngine(cfg, handler, limiter)
	return &Server{Engine: engine, Handler: handler, limiter: limiter, practice: practice}, nil
}

// NewEngine 按配置组装中间件和路由
func NewEngine(cfg *config.Config, handler *Handler, limiter *RateLimiter) *gin.Engine {
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	maxUpload := int64(cfg.MaxUploadMB) << 20
	r.MaxMultipartMemory = maxUpload

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(handler.Response.logger, handler.Metrics))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", handler.Health)

	upload := RateLimitByIP(limiter, cfg.Tuning.RateLimitRequests, time.Duration(cfg.Tuning.RateLimitWindow)*time.Second)
	api := r.Group("/api")
	{
		work := api.Group("", MaxBodyMiddleware(maxUpload), upload)
		{
			work.POST("/notes", handler.MakeNotes)
			work.POST("/smart-notes", handler.MakeSmartNotes)
			work.POST("/quiz", handler.MakeQuiz)
			work.POST("/grade", handler.GradeQuiz)
		}

		api.GET("/settings", handler.GetSettings)
		api.GET("/metrics", handler.GetMetrics)

		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/providers", handler.GetLLMProviders)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}
	}

	r.GET("/ws/practice", handler.PracticeWebSocket)

	r.NoRoute(func(c *gin.Context) {
		handler.Response.Detail(c, apperrors.NewNotFoundError("Not Found", nil))
	})
	return r
}

// corsConfig 允许列表含 "*" 时放行全部来源
func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	c.ExposeHeaders = []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
	c.MaxAge = 12 * time.Hour
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
