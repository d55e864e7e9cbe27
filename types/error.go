package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 统一错误码，HTTP 层据此映射状态码。
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// 问答链路专用错误码
const (
	ErrUnsafeQuery ErrorCode = "UNSAFE_QUERY"
	ErrNoAnswer    ErrorCode = "NO_ANSWER"
	ErrNoLiveData  ErrorCode = "NO_LIVE_DATA"
)

// Error 结构化错误，携带错误码、HTTP 状态与可重试标记。
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Source     string    `json:"source,omitempty"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError 创建结构化错误
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithSource 标记产生错误的证据源或上游服务名
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// AsError 沿错误链提取 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable 判断错误链上是否存在可重试的 *Error
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode 提取错误码，非结构化错误返回空串
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode 判断错误链上的错误码
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// NewInvalidRequestError 400 类请求错误
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewServiceUnavailableError 503，依赖未就绪时使用
func NewServiceUnavailableError(message string) *Error {
	return NewError(ErrServiceUnavailable, message).
		WithHTTPStatus(http.StatusServiceUnavailable).
		WithRetryable(true)
}

// NewInternalError 500，包装未预期错误
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternalError, message).
		WithHTTPStatus(http.StatusInternalServerError).
		WithCause(cause)
}
