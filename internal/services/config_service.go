// internal/services/config_service.go
package services

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/llm"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

const maxChangeHistory = 100

// ConfigService 提供运行期设置管理
type ConfigService struct {
	mu            sync.RWMutex
	subscribers   []ConfigChangeSubscriber
	changeHistory []ConfigChangeRecord
	logger        *utils.Logger
}

// ConfigChangeSubscriber 配置变更订阅者接口
type ConfigChangeSubscriber interface {
	OnConfigChanged(oldConfig, newConfig *config.AppConfig)
}

// ConfigChangeRecord 配置变更记录，不包含密钥
type ConfigChangeRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	ChangedBy   string    `json:"changed_by"`
	OldProvider string    `json:"old_provider"`
	NewProvider string    `json:"new_provider"`
	Model       string    `json:"model,omitempty"`
	KeyChanged  bool      `json:"key_changed"`
}

// NewConfigService 创建配置服务实例
func NewConfigService(logger *utils.Logger) *ConfigService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &ConfigService{logger: logger}
}

// GetCurrentConfig 获取当前配置副本
func (s *ConfigService) GetCurrentConfig() *config.AppConfig {
	return config.GetCurrentConfig()
}

// PublicSettings 可返回给前端的设置，密钥只暴露是否已配置
func (s *ConfigService) PublicSettings() map[string]interface{} {
	cfg := config.GetCurrentConfig()
	return map[string]interface{}{
		"llm_provider": cfg.LLMProvider,
		"debug_mode":   cfg.DebugMode,
		"port":         cfg.Port,
		"llm_config": map[string]interface{}{
			"model":       cfg.LLMConfig[config.KeyDefaultModel],
			"base_url":    cfg.LLMConfig[config.KeyBaseURL],
			"has_api_key": cfg.LLMConfig[config.KeyAPIKey] != "",
		},
	}
}

// UpdateLLMConfig 校验并保存提供者配置，然后同步通知订阅者
func (s *ConfigService) UpdateLLMConfig(provider string, configMap map[string]string, changedBy string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return apperrors.NewValidationError("provider cannot be empty", nil)
	}
	if !slices.Contains(llm.ListProviders(), provider) {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported provider %q", provider), llm.ErrUnknownProvider)
	}

	cfgCopy := make(map[string]string, len(configMap)+1)
	for k, v := range configMap {
		cfgCopy[k] = strings.TrimSpace(v)
	}
	if cfgCopy[config.KeyDefaultModel] == "" {
		cfgCopy[config.KeyDefaultModel] = providerDefaultModels[provider]
	}

	oldConfig := config.GetCurrentConfig()
	if err := config.UpdateLLMConfig(provider, cfgCopy); err != nil {
		return apperrors.NewProcessingError("failed to save settings", err)
	}
	newConfig := config.GetCurrentConfig()

	s.recordChange(ConfigChangeRecord{
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
		OldProvider: oldConfig.LLMProvider,
		NewProvider: provider,
		Model:       cfgCopy[config.KeyDefaultModel],
		KeyChanged:  oldConfig.LLMConfig[config.KeyAPIKey] != newConfig.LLMConfig[config.KeyAPIKey],
	})
	s.logger.Info("LLM配置已更新", map[string]interface{}{
		"provider":   provider,
		"model":      cfgCopy[config.KeyDefaultModel],
		"changed_by": changedBy,
	})

	s.notifySubscribers(oldConfig, newConfig)
	return nil
}

// SubscribeToChanges 订阅配置变更事件
func (s *ConfigService) SubscribeToChanges(subscriber ConfigChangeSubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, subscriber)
}

// notifySubscribers 同步通知，返回时订阅者已完成更新
func (s *ConfigService) notifySubscribers(oldConfig, newConfig *config.AppConfig) {
	s.mu.RLock()
	subscribers := slices.Clone(s.subscribers)
	s.mu.RUnlock()

	for _, subscriber := range subscribers {
		subscriber.OnConfigChanged(oldConfig, newConfig)
	}
}

// GetChangeHistory 获取最近的配置变更
func (s *ConfigService) GetChangeHistory(limit int) []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.changeHistory) {
		limit = len(s.changeHistory)
	}
	return slices.Clone(s.changeHistory[len(s.changeHistory)-limit:])
}

func (s *ConfigService) recordChange(record ConfigChangeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.changeHistory) >= maxChangeHistory {
		s.changeHistory = s.changeHistory[1:]
	}
	s.changeHistory = append(s.changeHistory, record)
}
