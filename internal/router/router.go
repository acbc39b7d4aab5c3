package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/agent-chat/internal/handler"
	"github.com/ashwinyue/agent-chat/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", h.System.Health)

	// API
	api := r.Group("/api")
	{
		api.GET("/status", h.System.Status)
		api.POST("/chat", h.Chat.Chat)
		api.GET("/conversations", h.Chat.ListConversations)
		api.GET("/conversations/:id/messages", h.Chat.GetConversationMessages)
	}

	return r
}
