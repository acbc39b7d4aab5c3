package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/apperrors"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}

// InternalServerError 500 错误响应
// 生产姿态：不把内部错误文本透给客户端
func InternalServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// Error 按错误类别映射 HTTP 状态码
func Error(c *gin.Context, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		BadRequest(c, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		NotFound(c, "Conversation not found")
	default:
		// 持久层及未分类错误：记录在中间件日志里，对外一律 500
		_ = c.Error(err)
		InternalServerError(c)
	}
}
