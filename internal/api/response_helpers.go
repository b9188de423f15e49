// internal/api/response_helpers.go
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/utils"
	"github.com/gin-gonic/gin"
)

// APIResponse 设置类接口的标准响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// DetailResponse 笔记、测验、评分接口的错误格式，前端读取 detail 字段
type DetailResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct {
	logger *utils.Logger
}

// NewResponseHelper 创建响应助手
func NewResponseHelper(logger *utils.Logger) *ResponseHelper {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &ResponseHelper{logger: logger}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.envelope(c, http.StatusOK, data, message...)
}

func (rh *ResponseHelper) envelope(c *gin.Context, status int, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// sanitizeErrorMessage 去掉可能泄露密钥的细节
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "secret", "token", "password", "bearer "} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// AppError 将服务层错误按类型映射为信封格式的错误响应
func (rh *ResponseHelper) AppError(c *gin.Context, err error) {
	status, code, message := rh.describe(c, err)
	rh.Error(c, status, code, message, err.Error())
}

// Detail 将服务层错误写成 {"detail": ...}
func (rh *ResponseHelper) Detail(c *gin.Context, err error) {
	status, code, message := rh.describe(c, err)
	c.JSON(status, DetailResponse{Detail: message, Code: code, RequestID: getRequestID(c)})
}

// DetailBadRequest 参数错误
func (rh *ResponseHelper) DetailBadRequest(c *gin.Context, message string) {
	rh.Detail(c, apperrors.NewValidationError(message, nil))
}

// describe 返回状态码、错误代码和可展示的消息；非 AppError 的内部细节不返回给调用方
func (rh *ResponseHelper) describe(c *gin.Context, err error) (int, string, string) {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		status := statusForType(appErr.Type)
		if status >= http.StatusInternalServerError {
			rh.logger.Error("请求处理失败", map[string]interface{}{
				"path":       c.FullPath(),
				"request_id": getRequestID(c),
				"error":      err,
			})
		}
		return status, appErr.Code, appErr.Message
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorTimeout, "request timed out"
	case stderrors.Is(err, context.Canceled):
		return statusClientClosed, ErrorCanceled, "request canceled"
	}

	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, ErrorFileTooLarge, "upload too large"
	}

	rh.logger.Error("未分类的错误", map[string]interface{}{
		"path":       c.FullPath(),
		"request_id": getRequestID(c),
		"error":      err,
	})
	return http.StatusInternalServerError, ErrorInternalError, "internal error"
}

// statusForType 错误类型对应的 HTTP 状态码
func statusForType(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeEmptyInput:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeProviderUnavailable:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// getRequestID 获取请求ID
func getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
