// internal/config/config.go
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Corphon/NoteQuiz/internal/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
	configSecret  string
)

// 持久化 LLM 配置中的键名
const (
	KeyAPIKey       = "api_key"
	KeyDefaultModel = "default_model"
	KeyBaseURL      = "base_url"
)

// secretFileName 自动生成的配置密钥文件，位于 DATA_DIR
const secretFileName = ".config_secret"

// AppConfig 运行期可修改的配置，保存在 DATA_DIR/config.json
type AppConfig struct {
	// 基础配置（每次启动以环境变量为准）
	Port      string `json:"port"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`
}

// Config 存储应用配置
type Config struct {
	Port           string
	DataDir        string
	LogDir         string
	DebugMode      bool
	OpenAIAPIKey   string
	OllamaBaseURL  string
	LLMProvider    string
	OCRLanguages   []string
	OCRFallback    bool
	OCRConcurrency int
	MaxUploadMB    int
	AllowedOrigins []string
	ConfigSecret   string
	TuningFile     string
	Tuning         Tuning
}

// Tuning 可选的 YAML 调参文件
type Tuning struct {
	LLMTextLimit      int     `yaml:"llm_text_limit"`      // 送入大模型的最大字符数
	LLMTemperature    float64 `yaml:"llm_temperature"`     // 生成温度
	RateLimitRequests int     `yaml:"rate_limit_requests"` // 每个 IP 在窗口内的上传请求数
	RateLimitWindow   int     `yaml:"rate_limit_window"`   // 窗口秒数
	MaxQuizCount      int     `yaml:"max_quiz_count"`      // 单次生成题目上限
	OCRTimeoutSeconds int     `yaml:"ocr_timeout_seconds"` // 单张图片识别超时
}

// DefaultTuning 默认调参
func DefaultTuning() Tuning {
	return Tuning{
		LLMTextLimit:      12000,
		LLMTemperature:    0.2,
		RateLimitRequests: 30,
		RateLimitWindow:   60,
		MaxQuizCount:      50,
		OCRTimeoutSeconds: 30,
	}
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		DataDir:        getEnvPath("DATA_DIR", "data"),
		LogDir:         getEnvPath("LOG_DIR", "logs"),
		DebugMode:      getEnvBool("DEBUG_MODE", true),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OllamaBaseURL:  strings.TrimRight(getEnv("OLLAMA_BASE_URL", "http://localhost:11434"), "/"),
		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OCRLanguages:   getEnvList("OCR_LANGUAGES", "eng", "+"),
		OCRFallback:    getEnvBool("OCR_FALLBACK", false),
		OCRConcurrency: getEnvInt("OCR_CONCURRENCY", 4),
		MaxUploadMB:    getEnvInt("MAX_UPLOAD_MB", 32),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*", ","),
		ConfigSecret:   getEnv("CONFIG_SECRET", ""),
		TuningFile:     getEnv("TUNING_FILE", ""),
		Tuning:         DefaultTuning(),
	}

	if config.TuningFile != "" {
		if err := loadTuning(config.TuningFile, &config.Tuning); err != nil {
			return nil, err
		}
	}

	if config.OCRConcurrency < 1 {
		config.OCRConcurrency = 1
	}
	if config.MaxUploadMB < 1 {
		config.MaxUploadMB = 1
	}

	if config.OpenAIAPIKey == "" {
		// 只记录警告，不返回错误
		utils.GetLogger().Warn("未设置OpenAI API密钥，智能笔记与大模型出题需在设置中配置", nil)
	}

	return config, nil
}

// loadTuning 读取 YAML 调参文件，未出现的字段保留默认值
func loadTuning(path string, t *Tuning) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取调参文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return fmt.Errorf("解析调参文件失败: %w", err)
	}
	def := DefaultTuning()
	if t.LLMTextLimit <= 0 {
		t.LLMTextLimit = def.LLMTextLimit
	}
	if t.RateLimitRequests <= 0 {
		t.RateLimitRequests = def.RateLimitRequests
	}
	if t.RateLimitWindow <= 0 {
		t.RateLimitWindow = def.RateLimitWindow
	}
	if t.MaxQuizCount <= 0 {
		t.MaxQuizCount = def.MaxQuizCount
	}
	if t.OCRTimeoutSeconds <= 0 {
		t.OCRTimeoutSeconds = def.OCRTimeoutSeconds
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，并确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)
	if err := os.MkdirAll(path, 0755); err != nil {
		utils.GetLogger().Warn("创建目录失败", map[string]interface{}{"path": path, "error": err})
	}
	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(getEnv(key, ""))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数环境变量，无法解析时使用默认值
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvList 按分隔符拆分环境变量
func getEnvList(key, defaultValue, sep string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// InitConfig 初始化配置管理器
func InitConfig(base *Config) error {
	configFile = filepath.Join(base.DataDir, "config.json")
	configSecret = base.ConfigSecret
	if configSecret == "" {
		secret, err := loadOrCreateSecret(filepath.Join(base.DataDir, secretFileName))
		if err != nil {
			return err
		}
		configSecret = secret
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:        base.Port,
		DataDir:     base.DataDir,
		LogDir:      base.LogDir,
		DebugMode:   base.DebugMode,
		LLMProvider: base.LLMProvider,
		LLMConfig: map[string]string{
			KeyAPIKey:       base.OpenAIAPIKey,
			KeyDefaultModel: "gpt-4o-mini",
		},
	}
	if base.LLMProvider == "ollama" {
		currentConfig.LLMConfig = map[string]string{
			KeyBaseURL:      base.OllamaBaseURL,
			KeyDefaultModel: "llama3.1",
		}
	}

	// 尝试从文件加载已保存的配置
	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil && saved.LLMProvider != "" {
			// 合并配置，保留文件中的LLM设置，但使用最新的基础配置
			saved.Port = base.Port
			saved.DataDir = base.DataDir
			saved.LogDir = base.LogDir
			saved.DebugMode = base.DebugMode
			if saved.LLMConfig == nil {
				saved.LLMConfig = map[string]string{}
			}
			if key, err := utils.Decrypt(saved.LLMConfig[KeyAPIKey], configSecret); err == nil {
				saved.LLMConfig[KeyAPIKey] = key
			} else {
				utils.GetLogger().Warn("无法解密已保存的API密钥，改用环境变量", map[string]interface{}{"error": err})
				saved.LLMConfig[KeyAPIKey] = ""
			}
			// 如果文件中没有API密钥，使用环境变量的密钥
			if saved.LLMConfig[KeyAPIKey] == "" {
				saved.LLMConfig[KeyAPIKey] = base.OpenAIAPIKey
			}
			currentConfig = &saved
		}
	}

	// 保存初始配置到文件
	return saveLocked()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		return &AppConfig{LLMProvider: "openai", LLMConfig: map[string]string{}}
	}

	configCopy := *currentConfig
	configCopy.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for k, v := range currentConfig.LLMConfig {
		configCopy.LLMConfig[k] = v
	}
	return &configCopy
}

// UpdateLLMConfig 更新LLM配置
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	merged := make(map[string]string, len(config))
	for k, v := range config {
		merged[k] = v
	}
	// 未提供新密钥时沿用原密钥
	if merged[KeyAPIKey] == "" && provider == currentConfig.LLMProvider {
		merged[KeyAPIKey] = currentConfig.LLMConfig[KeyAPIKey]
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = merged
	return saveLocked()
}

// loadOrCreateSecret 未设置 CONFIG_SECRET 时使用数据目录下的随机密钥
func loadOrCreateSecret(path string) (string, error) {
	if data, err := os.ReadFile(path); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret, nil
		}
	}
	key, err := utils.GenerateSecureKey(32)
	if err != nil {
		return "", err
	}
	secret := hex.EncodeToString(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("创建配置目录失败: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret), 0600); err != nil {
		return "", fmt.Errorf("保存配置密钥失败: %w", err)
	}
	return secret, nil
}

// saveLocked 调用方需持有锁；API 密钥加密落盘
func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	onDisk := *currentConfig
	onDisk.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for k, v := range currentConfig.LLMConfig {
		onDisk.LLMConfig[k] = v
	}
	if key := onDisk.LLMConfig[KeyAPIKey]; key != "" {
		sealed, err := utils.Encrypt(key, configSecret)
		if err != nil {
			return fmt.Errorf("加密API密钥失败: %w", err)
		}
		onDisk.LLMConfig[KeyAPIKey] = sealed
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	return os.WriteFile(configFile, data, 0600)
}
