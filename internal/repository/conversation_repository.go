package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/agent-chat/internal/apperrors"
	"github.com/ashwinyue/agent-chat/internal/model"
)

// conversationRepositoryImpl 会话数据访问
type conversationRepositoryImpl struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话仓库
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepositoryImpl{db: db}
}

// Create 创建会话
func (r *conversationRepositoryImpl) Create(conv *model.Conversation) error {
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = time.Now()
	}
	if err := r.db.Create(conv).Error; err != nil {
		return fmt.Errorf("create conversation: %w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// FindLatestBySession 获取某 session 下最近更新的会话
func (r *conversationRepositoryImpl) FindLatestBySession(sessionID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("session_id = ?", sessionID).
		Order("updated_at DESC").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation for session: %w", apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("find conversation: %w: %v", apperrors.ErrStorage, err)
	}
	return &conv, nil
}

// GetByIDAndSession 获取会话，并校验归属
// 不存在与归属他人返回同一错误，不泄露存在性
func (r *conversationRepositoryImpl) GetByIDAndSession(id, sessionID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.Where("id = ? AND session_id = ?", id, sessionID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w: %v", apperrors.ErrStorage, err)
	}
	return &conv, nil
}

// ListBySession 列出某 session 下的会话，按更新时间倒序，附带消息数
func (r *conversationRepositoryImpl) ListBySession(sessionID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	err := r.db.Model(&model.Conversation{}).
		Select("conversations.*, COUNT(messages.id) AS message_count").
		Joins("LEFT JOIN messages ON messages.conversation_id = conversations.id").
		Where("conversations.session_id = ?", sessionID).
		Group("conversations.id").
		Order("conversations.updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w: %v", apperrors.ErrStorage, err)
	}
	return convs, nil
}

// AppendMessage 写入消息并推进父会话的 updated_at，两个写入在同一事务内
func (r *conversationRepositoryImpl) AppendMessage(msg *model.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return fmt.Errorf("append message: %w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// ListMessages 获取会话消息，按时间升序，id 兜底保证全序
func (r *conversationRepositoryImpl) ListMessages(conversationID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w: %v", apperrors.ErrStorage, err)
	}
	return messages, nil
}
