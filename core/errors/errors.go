package errors

import (
	"fmt"
)

// AppError 应用业务错误
type AppError struct {
	Code    ErrCode // 业务错误码
	Message string  // 错误消息
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Kind 返回错误所属的失败类别
func (e *AppError) Kind() Kind {
	return e.Code.Kind()
}

// New 创建新的业务错误
func New(code ErrCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 创建新的业务错误（格式化消息）
func Newf(code ErrCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsAppError 判断是否为业务错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取业务错误，如果不是则返回nil
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return nil
}

// IsValidation 判断错误是否为调用方请求错误（修正请求后重试才有意义）
func IsValidation(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind() == KindValidation
	}
	return false
}

// IsUpstream 判断错误是否为外部依赖失败（稍后重试可能恢复）
func IsUpstream(err error) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind() == KindUpstream
	}
	return false
}
