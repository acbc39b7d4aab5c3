// Package apperrors 定义共享的哨兵错误
// handler 层通过 errors.Is 将其映射为 HTTP 状态码
package apperrors

import "errors"

var (
	// ErrInvalidInput 请求参数缺失或非法
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound 目标资源不存在（或不属于当前会话，两种情况响应一致）
	ErrNotFound = errors.New("not found")

	// ErrStorage 持久层故障
	ErrStorage = errors.New("storage error")
)
