// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"time"

	"github.com/ashwinyue/agent-chat/internal/model"
)

// ConversationRepository 会话与消息数据访问接口
// 接口定义使 Service 层可以轻松 mock 进行单元测试
type ConversationRepository interface {
	// 会话操作
	Create(conv *model.Conversation) error
	FindLatestBySession(sessionID string) (*model.Conversation, error)
	GetByIDAndSession(id, sessionID string) (*model.Conversation, error)
	ListBySession(sessionID string) ([]*model.Conversation, error)

	// 消息操作
	// AppendMessage 在同一事务内写入消息并推进父会话的 updated_at
	AppendMessage(msg *model.Message) error
	ListMessages(conversationID string) ([]*model.Message, error)
}

// SessionRepository 会话追踪数据访问接口
type SessionRepository interface {
	GetOrCreate(sess *model.Session) error
	Touch(token string, at time.Time) error
	AddMessages(token string, delta int) error
	AddConversations(token string, delta int) error
}

// 确保实现满足接口
var (
	_ ConversationRepository = (*conversationRepositoryImpl)(nil)
	_ SessionRepository      = (*sessionRepositoryImpl)(nil)
)
