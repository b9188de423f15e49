// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Corphon/NoteQuiz/internal/app"
	"github.com/Corphon/NoteQuiz/internal/config"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

func main() {
	log.Println("🚀 启动 NoteQuiz 服务器...")

	// 1. 加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 创建必要的目录
	for _, dir := range []string{baseConfig.DataDir, baseConfig.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}

	// 3. 初始化日志
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "app.log"), baseConfig.DebugMode); err != nil {
		log.Fatalf("初始化日志系统失败: %v", err)
	}
	logger := utils.GetLogger()

	// 4. 初始化配置系统
	if err := config.InitConfig(baseConfig); err != nil {
		logger.Fatal("初始化配置系统失败", map[string]interface{}{"error": err})
	}

	// 5. 初始化服务和路由
	application := app.GetApp()
	if err := application.Initialize(baseConfig); err != nil {
		logger.Fatal("初始化应用失败", map[string]interface{}{"error": err})
	}
	defer application.Cleanup()

	logger.Info("服务器启动", map[string]interface{}{
		"port": baseConfig.Port,
		"url":  "http://localhost:" + baseConfig.Port,
	})

	// 6. 运行直到收到中断信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := application.Run(ctx); err != nil {
		logger.Error("服务器退出", map[string]interface{}{"error": err})
		application.Cleanup()
		os.Exit(1)
	}
}
