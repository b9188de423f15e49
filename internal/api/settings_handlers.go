// internal/api/settings_handlers.go
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/Corphon/NoteQuiz/internal/llm"
	"github.com/gin-gonic/gin"
)

// UpdateLLMConfigRequest 更新大模型配置的请求体
type UpdateLLMConfigRequest struct {
	Provider string            `json:"provider" binding:"required"`
	Config   map[string]string `json:"config"`
}

// ProviderInfo 可用提供者及其模型
type ProviderInfo struct {
	Name   string   `json:"name"`
	Models []string `json:"models"`
}

// GetSettings 返回脱敏后的设置和用量统计
func (h *Handler) GetSettings(c *gin.Context) {
	settings := h.ConfigService.PublicSettings()
	ready, status := h.LLMService.GetProviderStatus()
	settings["llm_status"] = gin.H{"ready": ready, "status": status}
	if h.StatsService != nil {
		settings["usage"] = h.StatsService.GetUsageStats()
	}
	h.Response.Success(c, settings)
}

// UpdateLLMConfig PUT /api/llm/config
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req UpdateLLMConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求格式", err.Error())
		return
	}
	if req.Config == nil {
		req.Config = map[string]string{}
	}

	if err := h.ConfigService.UpdateLLMConfig(req.Provider, req.Config, "web_api"); err != nil {
		h.Response.AppError(c, err)
		return
	}

	// 配置已保存，服务通过订阅自行切换；这里只回报结果
	ready, status := h.LLMService.GetProviderStatus()
	data := gin.H{
		"provider": h.LLMService.GetProviderName(),
		"model":    h.LLMService.GetDefaultModel(),
		"ready":    ready,
		"status":   status,
	}
	if !ready {
		c.JSON(http.StatusPartialContent, &APIResponse{
			Success:   true,
			Data:      data,
			Message:   "配置已保存，但大模型服务未就绪",
			Error:     &APIError{Code: ErrorConfigUpdatedOnly, Message: status},
			Timestamp: time.Now(),
			RequestID: getRequestID(c),
		})
		return
	}
	h.Response.Success(c, data, "配置已更新")
}

// GetLLMStatus 当前提供者状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	ready, status := h.LLMService.GetProviderStatus()
	h.Response.Success(c, gin.H{
		"ready":    ready,
		"status":   status,
		"provider": h.LLMService.GetProviderName(),
		"model":    h.LLMService.GetDefaultModel(),
	})
}

// GetLLMProviders 列出已注册的提供者和启发式出题
func (h *Handler) GetLLMProviders(c *gin.Context) {
	names := llm.ListProviders()
	slices.Sort(names)
	providers := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		providers = append(providers, ProviderInfo{Name: name, Models: llm.GetSupportedModelsForProvider(name)})
	}
	h.Response.Success(c, gin.H{"providers": providers})
}

// GetLLMModels GET /api/llm/models?provider=
func (h *Handler) GetLLMModels(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		h.Response.BadRequest(c, "缺少提供商参数")
		return
	}
	if !slices.Contains(llm.ListProviders(), provider) {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "不支持的LLM提供商: "+provider)
		return
	}

	models := llm.GetSupportedModelsForProvider(provider)
	h.Response.Success(c, gin.H{
		"provider": provider,
		"models":   models,
		"count":    len(models),
	})
}

// GetMetrics 运行指标
func (h *Handler) GetMetrics(c *gin.Context) {
	data := gin.H{}
	if h.Metrics != nil {
		data["metrics"] = h.Metrics.Collector().GetMetrics()
	}
	if h.Practice != nil {
		data["practice"] = h.Practice.GetStatus()
	}
	h.Response.Success(c, data)
}
