package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/config"
)

// 探活时给数据库的响应时限
const pingTimeout = 2 * time.Second

// Pinger 数据库探活依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler 系统处理器
type SystemHandler struct {
	cfg *config.Config
	db  Pinger
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config, db Pinger) *SystemHandler {
	return &SystemHandler{cfg: cfg, db: db}
}

// Status 状态探针，报告数据库连通性
// GET /api/status
func (h *SystemHandler) Status(c *gin.Context) {
	status := "online"
	database := "PostgreSQL"
	if err := h.ping(c.Request.Context()); err != nil {
		status = "degraded"
		database = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"message":  h.cfg.App.Name + " API is running",
		"version":  h.cfg.App.Version,
		"database": database,
		"features": []string{"chat", "conversations", "persistent_storage"},
	})
}

// Health 存活探针
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	if err := h.ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) ping(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.db.Ping(ctx)
}
