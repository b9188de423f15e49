// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/sha256"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/NoteQuiz/internal/config"
	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/llm"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	cacheExpiration = 30 * time.Minute
	cacheMaxEntries = 500
)

var providerDefaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderOllama: "llama3.1",
}

// LLMService 提供统一的大语言模型调用接口
// 设置中配置的提供者常驻；请求指定其他提供者时按环境配置临时创建。
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	isReady            bool
	readyState         string
	activeDefaultModel string

	// 环境变量给出的各提供者基础配置
	baseConfigs map[string]map[string]string

	cache   *LLMCache
	usage   UsageRecorder
	metrics *utils.APIMetrics
	logger  *utils.Logger
}

// UsageRecorder 记录每次实际发出的模型调用
type UsageRecorder interface {
	RecordUsage(provider string, tokens int) error
}

// LLMCache 相同提示词的结果缓存（例如同一份 PDF 重复生成）
type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type CacheEntry struct {
	Response  *llm.CompletionResponse
	CreatedAt time.Time
}

// NewLLMService 按当前设置创建服务；初始化失败时返回未就绪的服务而不是错误
func NewLLMService(base *config.Config, metrics *utils.APIMetrics, logger *utils.Logger) *LLMService {
	service := createBaseLLMService(metrics, logger)
	if base != nil {
		service.baseConfigs[ProviderOpenAI][config.KeyAPIKey] = base.OpenAIAPIKey
		service.baseConfigs[ProviderOllama][config.KeyBaseURL] = base.OllamaBaseURL
	}

	cfg := config.GetCurrentConfig()
	if cfg.LLMProvider == "" {
		service.readyState = "LLM provider not configured"
		return service
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, service.configFor(cfg.LLMProvider, cfg))
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = extractDefaultModel(cfg.LLMConfig)
	service.isReady = true
	service.readyState = "Ready"
	return service
}

// createBaseLLMService 创建基础LLM服务实例
func createBaseLLMService(metrics *utils.APIMetrics, logger *utils.Logger) *LLMService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &LLMService{
		readyState: "Uninitialized",
		baseConfigs: map[string]map[string]string{
			ProviderOpenAI: {},
			ProviderOllama: {},
		},
		cache:   newLLMCache(),
		metrics: metrics,
		logger:  logger,
	}
}

func newLLMCache() *LLMCache {
	return &LLMCache{
		cache:      make(map[string]*CacheEntry),
		expiration: cacheExpiration,
	}
}

// SetUsageRecorder 设置使用量记录器
func (s *LLMService) SetUsageRecorder(r UsageRecorder) {
	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()
	s.usage = r
}

// IsReady 返回默认提供者是否可用
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetProviderStatus 返回服务是否就绪以及可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady, s.readyState
}

// GetProviderName 当前默认提供者
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 更新LLM服务的默认提供者
func (s *LLMService) UpdateProvider(providerName string, cfg map[string]string) error {
	merged := s.mergeBase(providerName, cfg)
	provider, err := llm.GetProvider(providerName, merged)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(cfg)
	s.isReady = true
	s.readyState = "Ready"

	// 清理缓存
	s.cache = newLLMCache()
	return nil
}

// Complete 调用指定提供者生成文本；providerName 为空时使用默认提供者
func (s *LLMService) Complete(ctx context.Context, providerName string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))

	provider, name, err := s.resolveProvider(providerName)
	if err != nil {
		return nil, err
	}
	req.Model = s.resolveModel(name, req.Model)

	cacheKey := generateCacheKey(name, req)
	s.providerMutex.RLock()
	cache := s.cache
	s.providerMutex.RUnlock()
	if resp, ok := cache.get(cacheKey); ok {
		s.logger.Debug("LLM cache hit", map[string]interface{}{"provider": name, "cache_key_prefix": cacheKey[:8]})
		return resp, nil
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.recordError(name)
		s.logger.Warn("LLM请求失败", map[string]interface{}{"provider": name, "model": req.Model, "error": err})
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("%s request failed", name), err)
	}

	if s.metrics != nil {
		s.metrics.RecordLLMRequest(name, resp.ModelName, resp.TokensUsed, time.Since(start))
	}
	s.providerMutex.RLock()
	usage := s.usage
	s.providerMutex.RUnlock()
	if usage != nil {
		if err := usage.RecordUsage(name, resp.TokensUsed); err != nil {
			s.logger.Warn("记录使用量失败", map[string]interface{}{"error": err})
		}
	}
	cache.save(cacheKey, resp)
	return resp, nil
}

// resolveProvider 选择默认实例或按基础配置创建临时实例
func (s *LLMService) resolveProvider(name string) (llm.Provider, string, error) {
	s.providerMutex.RLock()
	current, currentName, ready := s.provider, s.providerName, s.isReady
	s.providerMutex.RUnlock()

	if name == "" {
		name = currentName
	}
	if name == "" {
		return nil, "", apperrors.NewProviderUnavailableError("no LLM provider configured", nil)
	}
	if name == currentName && ready && current != nil {
		return current, name, nil
	}

	provider, err := llm.GetProvider(name, s.configFor(name, config.GetCurrentConfig()))
	switch {
	case err == nil:
		return provider, name, nil
	case stderrors.Is(err, llm.ErrUnknownProvider):
		return nil, name, apperrors.NewValidationError(fmt.Sprintf("unknown provider %q", name), err)
	case stderrors.Is(err, llm.ErrMissingAPIKey):
		s.recordError(name)
		return nil, name, apperrors.NewProviderUnavailableError(strings.ToUpper(name)+"_API_KEY not set.", err)
	default:
		s.recordError(name)
		return nil, name, apperrors.NewProviderUnavailableError(fmt.Sprintf("%s unavailable", name), err)
	}
}

// configFor 以环境配置为底，叠加设置中同名提供者的配置
func (s *LLMService) configFor(name string, cfg *config.AppConfig) map[string]string {
	var saved map[string]string
	if cfg != nil && cfg.LLMProvider == name {
		saved = cfg.LLMConfig
	}
	return s.mergeBase(name, saved)
}

func (s *LLMService) mergeBase(name string, overrides map[string]string) map[string]string {
	merged := make(map[string]string)
	for k, v := range s.baseConfigs[name] {
		merged[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}

// GetDefaultModel 获取当前默认提供者的默认模型
func (s *LLMService) GetDefaultModel() string {
	name := s.GetProviderName()
	if name == "" {
		name = config.GetCurrentConfig().LLMProvider
	}
	return s.resolveModel(name, "")
}

// resolveModel 请求指定 > 设置中的默认模型 > 提供者内置默认
func (s *LLMService) resolveModel(providerName, requestedModel string) string {
	if trimmed := strings.TrimSpace(requestedModel); trimmed != "" {
		return trimmed
	}

	s.providerMutex.RLock()
	activeName, activeDefault := s.providerName, s.activeDefaultModel
	s.providerMutex.RUnlock()

	if providerName == activeName && activeDefault != "" {
		return activeDefault
	}
	if cfg := config.GetCurrentConfig(); cfg.LLMProvider == providerName {
		if model := extractDefaultModel(cfg.LLMConfig); model != "" {
			return model
		}
	}
	return providerDefaultModels[providerName]
}

func extractDefaultModel(cfg map[string]string) string {
	if cfg == nil {
		return ""
	}
	if model := strings.TrimSpace(cfg[config.KeyDefaultModel]); model != "" {
		return model
	}
	return strings.TrimSpace(cfg["model"])
}

func (s *LLMService) recordError(provider string) {
	if s.metrics != nil {
		s.metrics.RecordError("llm_"+provider, "llm_service")
	}
}

// generateCacheKey 生成缓存键
func generateCacheKey(provider string, req llm.CompletionRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:::%s:::%s:::%s:::%g:::%d",
		provider, req.Model, req.SystemPrompt, req.Prompt, req.Temperature, req.MaxTokens)))
	return fmt.Sprintf("%x", sum)
}

// get 从缓存中获取结果
func (c *LLMCache) get(key string) (*llm.CompletionResponse, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return nil, false
	}
	resp := *entry.Response
	return &resp, true
}

// save 保存结果到缓存
func (c *LLMCache) save(key string, response *llm.CompletionResponse) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := *response
	c.cache[key] = &CacheEntry{Response: &stored, CreatedAt: time.Now()}

	if len(c.cache) > cacheMaxEntries {
		c.cleanupOldest(cacheMaxEntries / 10)
	}
}

// cleanupOldest 清理最旧的缓存条目
func (c *LLMCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	for i := 0; i < min(count, len(entries)); i++ {
		delete(c.cache, entries[i].key)
	}
}

// OnConfigChanged 设置中的提供者变更后重建默认实例
func (s *LLMService) OnConfigChanged(_, newConfig *config.AppConfig) {
	if newConfig == nil || newConfig.LLMProvider == "" {
		return
	}
	if err := s.UpdateProvider(newConfig.LLMProvider, newConfig.LLMConfig); err != nil {
		s.logger.Warn("LLM提供者更新失败", map[string]interface{}{"provider": newConfig.LLMProvider, "error": err})
	}
}
