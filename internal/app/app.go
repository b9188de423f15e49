// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Corphon/NoteQuiz/internal/api"
	"github.com/Corphon/NoteQuiz/internal/config"
	"github.com/Corphon/NoteQuiz/internal/di"
	"github.com/Corphon/NoteQuiz/internal/extract"
	"github.com/Corphon/NoteQuiz/internal/ocr/tesseract"
	"github.com/Corphon/NoteQuiz/internal/services"
	"github.com/Corphon/NoteQuiz/internal/utils"

	// 注册大模型提供者
	_ "github.com/Corphon/NoteQuiz/internal/llm/providers/ollama"
	_ "github.com/Corphon/NoteQuiz/internal/llm/providers/openai"
)

const (
	shutdownTimeout = 30 * time.Second
	metricsInterval = 5 * time.Minute
)

// App 应用实例
type App struct {
	config   *config.Config
	server   *api.Server
	stopChan chan struct{}
	ready    chan struct{}
	addr     string
	mu       sync.Mutex
}

var (
	instance *App
	once     sync.Once
)

// GetApp 获取应用单例
func GetApp() *App {
	once.Do(func() {
		instance = newApp()
	})
	return instance
}

func newApp() *App {
	return &App{
		stopChan: make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// RecognizerFactory 创建 OCR 识别器；测试可替换
var RecognizerFactory = func(cfg *config.Config) extract.Recognizer {
	return tesseract.New(cfg.OCRLanguages, time.Duration(cfg.Tuning.OCRTimeoutSeconds)*time.Second)
}

// InitServices 按依赖顺序创建服务并注册到容器
func InitServices(cfg *config.Config) error {
	container := di.GetContainer()
	logger := utils.GetLogger()

	metrics := utils.NewAPIMetrics()
	container.Register(di.ServiceMetrics, metrics)

	recognizer := RecognizerFactory(cfg)
	container.Register(di.ServiceOCR, recognizer)

	// 1. 大模型与用量统计
	stats := services.NewStatsService(cfg.DataDir, logger)
	container.Register(di.ServiceStats, stats)

	llmService := services.NewLLMService(cfg, metrics, logger)
	llmService.SetUsageRecorder(stats)
	container.Register(di.ServiceLLM, llmService)

	// 2. 配置服务，设置变更时通知大模型服务
	configService := services.NewConfigService(logger)
	configService.SubscribeToChanges(llmService)
	container.Register(di.ServiceConfig, configService)

	// 3. 业务服务
	container.Register(di.ServiceNotes, services.NewNotesService(cfg, recognizer, llmService, metrics, logger))
	container.Register(di.ServiceQuiz, services.NewQuizService(cfg, llmService, nil, metrics, logger))
	container.Register(di.ServiceGrading, services.NewGradingService(cfg, recognizer, metrics, logger))

	ready, status := llmService.GetProviderStatus()
	logger.Info("服务初始化完成", map[string]interface{}{
		"services":     len(container.GetNames()),
		"llm_provider": llmService.GetProviderName(),
		"llm_ready":    ready,
		"llm_status":   status,
	})
	return nil
}

// Initialize 初始化服务与路由
func (a *App) Initialize(cfg *config.Config) error {
	a.config = cfg
	if err := InitServices(cfg); err != nil {
		return fmt.Errorf("初始化服务失败: %w", err)
	}
	server, err := api.SetupRouter(cfg)
	if err != nil {
		return fmt.Errorf("设置路由失败: %w", err)
	}
	a.server = server
	return nil
}

// Run 启动 HTTP 服务，ctx 结束或调用 Stop 后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("应用尚未初始化")
	}
	logger := utils.GetLogger()

	ln, err := net.Listen("tcp", ":"+a.config.Port)
	if err != nil {
		return fmt.Errorf("监听端口失败: %w", err)
	}
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()

	srv := &http.Server{
		Handler:           a.server.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if metrics, err := di.Resolve[*utils.APIMetrics](di.GetContainer(), di.ServiceMetrics); err == nil {
		metrics.StartMetricsCollection(runCtx, metricsInterval)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	close(a.ready)
	logger.Info("服务器已启动", map[string]interface{}{"addr": a.addr})

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务器异常退出: %w", err)
		}
		return nil
	case <-runCtx.Done():
	case <-a.stopChan:
	}

	logger.Info("正在关闭服务器...", nil)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// 先断开长连接，否则 Shutdown 会等待它们
	a.server.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器强制关闭: %w", err)
	}
	logger.Info("服务器优雅关闭完成", nil)
	return nil
}

// Ready 服务开始监听后关闭
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr 实际监听地址
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Stop 请求关闭
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.stopChan:
	default:
		close(a.stopChan)
	}
}

// Cleanup 释放服务持有的资源
func (a *App) Cleanup() {
	container := di.GetContainer()
	if stats, err := di.Resolve[*services.StatsService](container, di.ServiceStats); err == nil {
		if err := stats.Close(); err != nil {
			utils.GetLogger().Warn("保存用量统计失败", map[string]interface{}{"error": err})
		}
	}
	utils.GetLogger().Sync()
}

// GetConfig 返回基础配置
func (a *App) GetConfig() *config.Config {
	return a.config
}

// IsDebugMode 是否调试模式
func (a *App) IsDebugMode() bool {
	return a.config != nil && a.config.DebugMode
}
