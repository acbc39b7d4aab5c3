package service

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/agent-chat/internal/config"
	"github.com/ashwinyue/agent-chat/internal/repository"
	"github.com/ashwinyue/agent-chat/internal/service/chat"
	"github.com/ashwinyue/agent-chat/internal/service/session"
)

// Services 服务集合
type Services struct {
	Chat    *chat.Service
	Session *session.Service
}

// NewServices 创建所有服务
// redisClient 可以为 nil，此时会话解析不走缓存
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *Services {
	sessionSvc := session.NewService(repos.Session, redisClient, cfg.Chat.CacheTTL(), logger)
	chatSvc := chat.NewService(repos.Conversation, sessionSvc, logger,
		chat.WithThinkDelay(cfg.Chat.ThinkDelay()))

	return &Services{
		Chat:    chatSvc,
		Session: sessionSvc,
	}
}
