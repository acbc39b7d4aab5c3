package model

import (
	"time"

	"gorm.io/datatypes"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation 会话（一个 session 下的消息线程）
type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"index;size:255;not null" json:"session_id"`
	Title     string    `gorm:"size:500" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
	Messages  []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`

	// 列表查询时由 JOIN 统计，不建列
	MessageCount int64 `gorm:"->;-:migration" json:"message_count"`
}

// Message 消息
// Task 和 Tools 仅 assistant 消息携带
type Message struct {
	ID             string                      `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string                      `gorm:"index;size:36;not null" json:"conversation_id"`
	Role           string                      `gorm:"size:20;not null" json:"role"` // user, assistant
	Content        string                      `gorm:"type:text;not null" json:"content"`
	Task           string                      `gorm:"size:1000" json:"task,omitempty"`
	Tools          datatypes.JSONSlice[string] `json:"tools,omitempty"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
}

// Session 客户端会话追踪（仅统计用途，正确性不依赖此表）
type Session struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Token              string    `gorm:"uniqueIndex;size:255;not null" json:"session_id"`
	UserAgent          string    `gorm:"size:500" json:"-"`
	IPAddress          string    `gorm:"size:45" json:"-"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastActive         time.Time `json:"last_active"`
	TotalMessages      int       `gorm:"default:0" json:"total_messages"`
	TotalConversations int       `gorm:"default:0" json:"total_conversations"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversations"
}

func (Message) TableName() string {
	return "messages"
}

func (Session) TableName() string {
	return "sessions"
}
