// Package session 实现会话解析：
// 将请求携带的 token 映射到稳定的会话记录，缺失时铸造新 token。
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/repository"
)

const (
	// Redis key 前缀
	sessionKeyPrefix = "session:"
	// 会话缓存默认过期时间（24小时）
	defaultCacheTTL = 24 * time.Hour
)

// Service 会话解析服务
// Redis 为读路径的旁路缓存，不可用时直接退化为数据库访问
type Service struct {
	repo     repository.SessionRepository
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService 创建会话解析服务
// redisClient 可以为 nil
func NewService(repo repository.SessionRepository, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve 解析会话
// token 为空时铸造新的 128 位随机 token；同一有效 token 幂等地解析到同一条记录
func (s *Service) Resolve(ctx context.Context, token, userAgent, ipAddress string) (*model.Session, error) {
	if token == "" {
		token = uuid.NewString()
	}

	// 缓存命中则跳过数据库读取
	if cached := s.fromCache(ctx, token); cached != nil {
		s.touch(ctx, token)
		return cached, nil
	}

	sess := &model.Session{
		ID:         uuid.NewString(),
		Token:      token,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		LastActive: s.now(),
	}
	if err := s.repo.GetOrCreate(sess); err != nil {
		return nil, err
	}
	s.touch(ctx, token)
	s.toCache(ctx, sess)

	return sess, nil
}

// AddMessages 累加会话的消息计数（统计用途，失败只记日志）
func (s *Service) AddMessages(ctx context.Context, token string, delta int) error {
	if err := s.repo.AddMessages(token, delta); err != nil {
		return err
	}
	s.invalidate(ctx, token)
	return nil
}

// AddConversations 累加会话的会话计数
func (s *Service) AddConversations(ctx context.Context, token string, delta int) error {
	if err := s.repo.AddConversations(token, delta); err != nil {
		return err
	}
	s.invalidate(ctx, token)
	return nil
}

// touch 更新最后活跃时间，仅统计用途，失败不阻断请求
func (s *Service) touch(ctx context.Context, token string) {
	if err := s.repo.Touch(token, s.now()); err != nil {
		s.logger.Warn("failed to touch session", zap.String("session_id", token), zap.Error(err))
	}
}

// fromCache 从 Redis 读取会话，任何故障都按缓存未命中处理
func (s *Service) fromCache(ctx context.Context, token string) *model.Session {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("session cache read failed", zap.Error(err))
		}
		return nil
	}
	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("session cache decode failed", zap.Error(err))
		return nil
	}
	return &sess
}

// toCache 将会话写入 Redis
func (s *Service) toCache(ctx context.Context, sess *model.Session) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+sess.Token, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("session cache write failed", zap.Error(err))
	}
}

// invalidate 计数更新后使缓存失效
func (s *Service) invalidate(ctx context.Context, token string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		s.logger.Warn("session cache invalidate failed", zap.Error(err))
	}
}
