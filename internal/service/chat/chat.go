// Package chat 实现一轮对话的编排：
// 校验输入 → 解析会话 → 取或建 conversation → 落库用户消息 →
// 分类 → 落库助手消息 → 返回结果。
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/ashwinyue/agent-chat/internal/apperrors"
	"github.com/ashwinyue/agent-chat/internal/classifier"
	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/repository"
)

// 会话标题取自首条用户消息的截断前缀
const titleMaxLen = 50

// SessionResolver 会话解析依赖
type SessionResolver interface {
	Resolve(ctx context.Context, token, userAgent, ipAddress string) (*model.Session, error)
	AddMessages(ctx context.Context, token string, delta int) error
	AddConversations(ctx context.Context, token string, delta int) error
}

// Service 聊天服务
type Service struct {
	convs      repository.ConversationRepository
	sessions   SessionResolver
	logger     *zap.Logger
	thinkDelay time.Duration
	sleep      func(time.Duration)

	// 同一 session 的取或建串行化，避免并发首条消息各建一个 conversation
	group singleflight.Group
}

// Option 服务可选配置
type Option func(*Service)

// WithThinkDelay 设置模拟处理耗时（0 表示关闭）
func WithThinkDelay(d time.Duration) Option {
	return func(s *Service) { s.thinkDelay = d }
}

// WithSleep 替换休眠实现，测试用
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Service) { s.sleep = fn }
}

// NewService 创建聊天服务
func NewService(convs repository.ConversationRepository, sessions SessionResolver, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		convs:    convs,
		sessions: sessions,
		logger:   logger,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request 一轮对话请求
type Request struct {
	Message   string
	SessionID string
	UserAgent string
	IPAddress string
}

// Result 一轮对话结果
type Result struct {
	Response       string   `json:"response"`
	Task           string   `json:"task"`
	Tools          []string `json:"tools"`
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id"`
	SessionID      string   `json:"session_id"`
}

// Chat 执行一轮对话
func (s *Service) Chat(ctx context.Context, req *Request) (*Result, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, fmt.Errorf("message is required: %w", apperrors.ErrInvalidInput)
	}

	sess, err := s.sessions.Resolve(ctx, req.SessionID, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	conv, err := s.findOrCreateConversation(ctx, sess.Token, text)
	if err != nil {
		return nil, err
	}

	userMsg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        text,
	}
	if err := s.convs.AppendMessage(userMsg); err != nil {
		return nil, err
	}

	res := classifier.Classify(text)

	if s.thinkDelay > 0 {
		s.sleep(s.thinkDelay)
	}

	assistantMsg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        res.Response,
		Task:           res.Task,
		Tools:          datatypes.NewJSONSlice(res.Tools),
	}
	if err := s.convs.AppendMessage(assistantMsg); err != nil {
		return nil, err
	}

	if err := s.sessions.AddMessages(ctx, sess.Token, 2); err != nil {
		s.logger.Warn("failed to count messages", zap.String("session_id", sess.Token), zap.Error(err))
	}

	return &Result{
		Response:       res.Response,
		Task:           res.Task,
		Tools:          res.Tools,
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
		SessionID:      sess.Token,
	}, nil
}

// ListConversations 列出某 session 的全部会话，按更新时间倒序
func (s *Service) ListConversations(ctx context.Context, sessionID string) ([]*model.Conversation, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required: %w", apperrors.ErrInvalidInput)
	}
	return s.convs.ListBySession(sessionID)
}

// GetConversationMessages 获取会话消息，会校验会话归属
func (s *Service) GetConversationMessages(ctx context.Context, conversationID, sessionID string) (*model.Conversation, []*model.Message, error) {
	conv, err := s.convs.GetByIDAndSession(conversationID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.convs.ListMessages(conv.ID)
	if err != nil {
		return nil, nil, err
	}
	return conv, messages, nil
}

// findOrCreateConversation 返回该 session 最近更新的会话，不存在则创建
// 以 session token 为 key 串行化，并发首条消息只会建一个会话；
// 会话计数在建会话的那次执行内累加，共享结果的等待者不重复计
func (s *Service) findOrCreateConversation(ctx context.Context, sessionToken, firstMessage string) (*model.Conversation, error) {
	v, err, _ := s.group.Do(sessionToken, func() (interface{}, error) {
		conv, err := s.convs.FindLatestBySession(sessionToken)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}

		conv = &model.Conversation{
			ID:        uuid.NewString(),
			SessionID: sessionToken,
			Title:     deriveTitle(firstMessage),
		}
		if err := s.convs.Create(conv); err != nil {
			return nil, err
		}
		if err := s.sessions.AddConversations(ctx, sessionToken, 1); err != nil {
			s.logger.Warn("failed to count conversation", zap.String("session_id", sessionToken), zap.Error(err))
		}
		return conv, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Conversation), nil
}

// deriveTitle 从首条消息生成会话标题
func deriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxLen {
		return message
	}
	return string(runes[:titleMaxLen]) + "..."
}
