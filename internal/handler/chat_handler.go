package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/service"
	"github.com/ashwinyue/agent-chat/internal/service/chat"
)

// 会话 token 的传输位置：请求体 / Header / Cookie
const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
	// Cookie 有效期（秒）
	sessionCookieMaxAge = 30 * 24 * 3600
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ChatRequest 发送消息请求
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Chat 执行一轮对话
// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Message is required")
		return
	}

	result, err := h.svc.Chat.Chat(c.Request.Context(), &chat.Request{
		Message:   req.Message,
		SessionID: resolveToken(c, req.SessionID),
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		Error(c, err)
		return
	}

	// token 显式下发：响应体携带，同时写回 Cookie 供浏览器复用
	c.SetCookie(sessionCookie, result.SessionID, sessionCookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, result)
}

// ListConversations 列出当前 session 的会话
// GET /api/conversations?session_id=...
func (h *ChatHandler) ListConversations(c *gin.Context) {
	sessionID := resolveToken(c, c.Query("session_id"))

	conversations, err := h.svc.Chat.ListConversations(c.Request.Context(), sessionID)
	if err != nil {
		Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// GetConversationMessages 获取会话消息
// 会话不属于当前 session 时返回 404，不泄露存在性
// GET /api/conversations/:id/messages
func (h *ChatHandler) GetConversationMessages(c *gin.Context) {
	id := c.Param("id")
	sessionID := resolveToken(c, c.Query("session_id"))

	conv, messages, err := h.svc.Chat.GetConversationMessages(c.Request.Context(), id, sessionID)
	if err != nil {
		Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}

// resolveToken 按 显式参数 → Header → Cookie 的顺序取会话 token
func resolveToken(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if token := c.GetHeader(sessionHeader); token != "" {
		return token
	}
	if token, err := c.Cookie(sessionCookie); err == nil {
		return token
	}
	return ""
}
