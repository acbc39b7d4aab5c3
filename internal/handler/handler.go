package handler

import (
	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat   *ChatHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
// db 为 nil 时探活直接视为健康
func NewHandlers(svc *service.Services, cfg *config.Config, db Pinger) *Handlers {
	return &Handlers{
		Chat:   NewChatHandler(svc),
		System: NewSystemHandler(cfg, db),
	}
}
