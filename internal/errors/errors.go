// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"

	// 笔记与测验流程的错误类型
	ErrorTypeEmptyInput          ErrorType = "empty_input"          // 文档中提取不到文本
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable" // 大模型未配置密钥
	ErrorTypeUpstream            ErrorType = "upstream"             // 大模型或 OCR 调用失败
)

// MessageNoText 文档无法提取文本时返回给用户的提示
const MessageNoText = "Could not read any text from PDF. Try enabling OCR."

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewEmptyInputError 创建空输入错误
func NewEmptyInputError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeEmptyInput, message, originalError)
}

// NewProviderUnavailableError 创建模型不可用错误
func NewProviderUnavailableError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeProviderUnavailable, message, originalError)
}

// NewUpstreamError 创建上游服务错误
func NewUpstreamError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstream, message, originalError)
}

// TypeOf 返回错误链中第一个 AppError 的类型，没有则为空
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// IsEmptyInputError 检查是否为空输入错误
func IsEmptyInputError(err error) bool {
	return TypeOf(err) == ErrorTypeEmptyInput
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeEmptyInput:
		return "EMPTY_INPUT"
	case ErrorTypeProviderUnavailable:
		return "PROVIDER_UNAVAILABLE"
	case ErrorTypeUpstream:
		return "UPSTREAM_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
