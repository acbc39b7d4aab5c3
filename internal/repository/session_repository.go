package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/agent-chat/internal/apperrors"
	"github.com/ashwinyue/agent-chat/internal/model"
)

// sessionRepositoryImpl 会话追踪数据访问
type sessionRepositoryImpl struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话追踪仓库
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepositoryImpl{db: db}
}

// GetOrCreate 按 token 获取或创建会话记录
// token 上有唯一索引，重复解析同一 token 不会产生第二行
func (r *sessionRepositoryImpl) GetOrCreate(sess *model.Session) error {
	if err := r.db.Where("token = ?", sess.Token).FirstOrCreate(sess).Error; err != nil {
		return fmt.Errorf("get or create session: %w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// Touch 更新最后活跃时间
func (r *sessionRepositoryImpl) Touch(token string, at time.Time) error {
	err := r.db.Model(&model.Session{}).
		Where("token = ?", token).
		Update("last_active", at).Error
	if err != nil {
		return fmt.Errorf("touch session: %w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// AddMessages 累加消息计数
func (r *sessionRepositoryImpl) AddMessages(token string, delta int) error {
	err := r.db.Model(&model.Session{}).
		Where("token = ?", token).
		Update("total_messages", gorm.Expr("total_messages + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("add session messages: %w: %v", apperrors.ErrStorage, err)
	}
	return nil
}

// AddConversations 累加会话计数
func (r *sessionRepositoryImpl) AddConversations(token string, delta int) error {
	err := r.db.Model(&model.Session{}).
		Where("token = ?", token).
		Update("total_conversations", gorm.Expr("total_conversations + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("add session conversations: %w: %v", apperrors.ErrStorage, err)
	}
	return nil
}
