// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorTimeout       = "TIMEOUT"
	ErrorCanceled      = "REQUEST_CANCELED"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 上传相关错误
	ErrorFileMissing  = "FILE_MISSING"
	ErrorFileTooLarge = "FILE_TOO_LARGE"

	// LLM服务相关错误
	ErrorLLMConfigInvalid  = "LLM_CONFIG_INVALID"
	ErrorConfigUpdatedOnly = "CONFIG_UPDATED_LLM_FAILED"
)

// statusClientClosed 客户端在响应前断开（nginx 约定）
const statusClientClosed = 499
