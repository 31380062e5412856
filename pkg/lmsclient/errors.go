package lmsclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotLoaded 课程数据尚未加载
var ErrNotLoaded = errors.New("course not loaded")

// NetworkError 请求未得到服务端响应
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError 服务端拒绝请求（400/422）
type ValidationError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%d): %s", e.StatusCode, e.Message)
}

// AlreadyExistsError 资源已存在（409），Certificate 为服务端返回的已有证书
type AlreadyExistsError struct {
	Message     string
	Certificate *Certificate
}

func (e *AlreadyExistsError) Error() string {
	return "already exists: " + e.Message
}

// CertificateConflictError 证书重复生成，等同于成功
type CertificateConflictError = AlreadyExistsError

// StoreWriteError 进度或测验写入失败，本地乐观状态保留
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s: store write failed: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StatusError 其他非 2xx 响应
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound 判断是否为 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// retryable 网络错误和 5xx 视为写入失败，可重试
func retryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= http.StatusInternalServerError
}
