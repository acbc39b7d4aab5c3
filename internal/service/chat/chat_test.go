// Package chat 提供聊天服务单元测试
package chat

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashwinyue/agent-chat/internal/apperrors"
	"github.com/ashwinyue/agent-chat/internal/model"
)

// mockConversationRepo Mock Conversation Repository
type mockConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	messages      map[string][]*model.Message
	createError   error
	appendError   error
	findError     error
	clock         time.Time
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]*model.Message),
		clock:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick 模拟单调推进的时钟
func (m *mockConversationRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockConversationRepo) Create(conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	now := m.tick()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	m.conversations[conv.ID] = conv
	return nil
}

func (m *mockConversationRepo) FindLatestBySession(sessionID string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findError != nil {
		return nil, m.findError
	}
	var latest *model.Conversation
	for _, conv := range m.conversations {
		if conv.SessionID != sessionID {
			continue
		}
		if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("conversation for session: %w", apperrors.ErrNotFound)
	}
	return latest, nil
}

func (m *mockConversationRepo) GetByIDAndSession(id, sessionID string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.SessionID != sessionID {
		return nil, fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	return conv, nil
}

func (m *mockConversationRepo) ListBySession(sessionID string) ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*model.Conversation, 0)
	for _, conv := range m.conversations {
		if conv.SessionID == sessionID {
			result = append(result, conv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (m *mockConversationRepo) AppendMessage(msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendError != nil {
		return m.appendError
	}
	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		return fmt.Errorf("append message: %w: conversation missing", apperrors.ErrStorage)
	}
	msg.CreatedAt = m.tick()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	conv.UpdatedAt = msg.CreatedAt
	return nil
}

func (m *mockConversationRepo) ListMessages(conversationID string) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[conversationID], nil
}

// mockSessionResolver Mock 会话解析
type mockSessionResolver struct {
	mu                sync.Mutex
	sessions          map[string]*model.Session
	resolveError      error
	messageCounts     map[string]int
	conversationCount map[string]int
}

func newMockSessionResolver() *mockSessionResolver {
	return &mockSessionResolver{
		sessions:          make(map[string]*model.Session),
		messageCounts:     make(map[string]int),
		conversationCount: make(map[string]int),
	}
}

func (m *mockSessionResolver) Resolve(ctx context.Context, token, userAgent, ipAddress string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolveError != nil {
		return nil, m.resolveError
	}
	if token == "" {
		token = "minted-token"
	}
	if sess, ok := m.sessions[token]; ok {
		return sess, nil
	}
	sess := &model.Session{ID: "sess-" + token, Token: token, UserAgent: userAgent, IPAddress: ipAddress}
	m.sessions[token] = sess
	return sess, nil
}

func (m *mockSessionResolver) AddMessages(ctx context.Context, token string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageCounts[token] += delta
	return nil
}

func (m *mockSessionResolver) AddConversations(ctx context.Context, token string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversationCount[token] += delta
	return nil
}

// ========== 测试用例 ==========

func TestChatEmptyMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{name: "empty string", message: ""},
		{name: "whitespace only", message: "   \t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockConversationRepo()
			sessions := newMockSessionResolver()
			svc := NewService(repo, sessions, nil)

			_, err := svc.Chat(context.Background(), &Request{Message: tt.message})

			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("Chat() error = %v, want ErrInvalidInput", err)
			}
			// 校验失败不得留下任何写入
			if len(repo.conversations) != 0 {
				t.Errorf("conversations created = %d, want 0", len(repo.conversations))
			}
			if len(repo.messages) != 0 {
				t.Errorf("message buckets = %d, want 0", len(repo.messages))
			}
		})
	}
}

func TestChatFirstTurnCreatesConversation(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)

	result, err := svc.Chat(context.Background(), &Request{
		Message:   "Can you build me a website?",
		SessionID: "token-1",
	})
	if err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}

	if result.Task != "Website development and design" {
		t.Errorf("Task = %q, want %q", result.Task, "Website development and design")
	}
	if want := []string{"code", "file", "browser"}; !reflect.DeepEqual(result.Tools, want) {
		t.Errorf("Tools = %v, want %v", result.Tools, want)
	}
	if result.SessionID != "token-1" {
		t.Errorf("SessionID = %q, want token-1", result.SessionID)
	}

	// 恰好一个会话、两条消息（user + assistant）
	if len(repo.conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(repo.conversations))
	}
	msgs := repo.messages[result.ConversationID]
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "Can you build me a website?" {
		t.Errorf("first message = %s %q, want user message", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != model.RoleAssistant {
		t.Errorf("second message role = %s, want assistant", msgs[1].Role)
	}
	if msgs[1].ID != result.MessageID {
		t.Errorf("MessageID = %q, want %q", result.MessageID, msgs[1].ID)
	}
	if msgs[1].Task != result.Task {
		t.Errorf("assistant task = %q, want %q", msgs[1].Task, result.Task)
	}
	if msgs[0].Task != "" || len(msgs[0].Tools) != 0 {
		t.Errorf("user message carries task/tools: %q %v", msgs[0].Task, msgs[0].Tools)
	}

	// 统计计数
	if sessions.conversationCount["token-1"] != 1 {
		t.Errorf("conversation count = %d, want 1", sessions.conversationCount["token-1"])
	}
	if sessions.messageCounts["token-1"] != 2 {
		t.Errorf("message count = %d, want 2", sessions.messageCounts["token-1"])
	}
}

func TestChatSecondTurnReusesConversation(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)
	ctx := context.Background()

	first, err := svc.Chat(ctx, &Request{Message: "hello there", SessionID: "token-1"})
	if err != nil {
		t.Fatalf("first Chat() unexpected error: %v", err)
	}
	second, err := svc.Chat(ctx, &Request{Message: "analyze this csv data", SessionID: "token-1"})
	if err != nil {
		t.Fatalf("second Chat() unexpected error: %v", err)
	}

	if first.ConversationID != second.ConversationID {
		t.Errorf("second turn created a new conversation: %q vs %q", first.ConversationID, second.ConversationID)
	}
	if len(repo.conversations) != 1 {
		t.Errorf("conversations = %d, want 1", len(repo.conversations))
	}
	if got := len(repo.messages[first.ConversationID]); got != 4 {
		t.Errorf("messages = %d, want 4", got)
	}
	if second.Task != "Data analysis and visualization" {
		t.Errorf("Task = %q, want %q", second.Task, "Data analysis and visualization")
	}
	if sessions.conversationCount["token-1"] != 1 {
		t.Errorf("conversation count = %d, want 1", sessions.conversationCount["token-1"])
	}
	if sessions.messageCounts["token-1"] != 4 {
		t.Errorf("message count = %d, want 4", sessions.messageCounts["token-1"])
	}
}

func TestChatConcurrentFirstTurnsCountOneConversation(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)

	const turns = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := svc.Chat(context.Background(), &Request{Message: "hello", SessionID: "token-1"}); err != nil {
				t.Errorf("Chat() unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	// 并发首条消息只建一个会话，计数也只累加一次
	if len(repo.conversations) != 1 {
		t.Errorf("conversations = %d, want 1", len(repo.conversations))
	}
	if got := sessions.conversationCount["token-1"]; got != 1 {
		t.Errorf("conversation count = %d, want 1", got)
	}
	if got := sessions.messageCounts["token-1"]; got != turns*2 {
		t.Errorf("message count = %d, want %d", got, turns*2)
	}
}

func TestChatSeparateSessionsGetSeparateConversations(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)
	ctx := context.Background()

	a, err := svc.Chat(ctx, &Request{Message: "hello", SessionID: "token-a"})
	if err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}
	b, err := svc.Chat(ctx, &Request{Message: "hello", SessionID: "token-b"})
	if err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}

	if a.ConversationID == b.ConversationID {
		t.Errorf("different sessions share conversation %q", a.ConversationID)
	}
}

func TestChatUpdatedAtMonotonic(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)
	ctx := context.Background()

	first, err := svc.Chat(ctx, &Request{Message: "hello", SessionID: "token-1"})
	if err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}
	conv := repo.conversations[first.ConversationID]
	afterFirst := conv.UpdatedAt

	if _, err := svc.Chat(ctx, &Request{Message: "hello again", SessionID: "token-1"}); err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}
	if !conv.UpdatedAt.After(afterFirst) {
		t.Errorf("updated_at did not advance: %v -> %v", afterFirst, conv.UpdatedAt)
	}

	msgs := repo.messages[first.ConversationID]
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("message %d out of order: %v before %v", i, msgs[i].CreatedAt, msgs[i-1].CreatedAt)
		}
	}
}

func TestChatStorageErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupRepo func(*mockConversationRepo)
	}{
		{
			name: "find conversation fails",
			setupRepo: func(repo *mockConversationRepo) {
				repo.findError = fmt.Errorf("find conversation: %w", apperrors.ErrStorage)
			},
		},
		{
			name: "create conversation fails",
			setupRepo: func(repo *mockConversationRepo) {
				repo.createError = fmt.Errorf("create conversation: %w", apperrors.ErrStorage)
			},
		},
		{
			name: "append message fails",
			setupRepo: func(repo *mockConversationRepo) {
				repo.appendError = fmt.Errorf("append message: %w", apperrors.ErrStorage)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockConversationRepo()
			tt.setupRepo(repo)
			svc := NewService(repo, newMockSessionResolver(), nil)

			_, err := svc.Chat(context.Background(), &Request{Message: "hello", SessionID: "token-1"})

			if !errors.Is(err, apperrors.ErrStorage) {
				t.Errorf("Chat() error = %v, want ErrStorage", err)
			}
		})
	}
}

func TestChatSessionResolveError(t *testing.T) {
	sessions := newMockSessionResolver()
	sessions.resolveError = fmt.Errorf("get or create session: %w", apperrors.ErrStorage)
	svc := NewService(newMockConversationRepo(), sessions, nil)

	_, err := svc.Chat(context.Background(), &Request{Message: "hello"})

	if !errors.Is(err, apperrors.ErrStorage) {
		t.Errorf("Chat() error = %v, want ErrStorage", err)
	}
}

func TestChatThinkDelayInjectable(t *testing.T) {
	var slept time.Duration
	svc := NewService(newMockConversationRepo(), newMockSessionResolver(), nil,
		WithThinkDelay(1500*time.Millisecond),
		WithSleep(func(d time.Duration) { slept = d }),
	)

	if _, err := svc.Chat(context.Background(), &Request{Message: "hello", SessionID: "t"}); err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}
	if slept != 1500*time.Millisecond {
		t.Errorf("slept = %v, want 1.5s", slept)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{
			name:    "short message kept as is",
			message: "build me a website",
			want:    "build me a website",
		},
		{
			name:    "long message truncated",
			message: strings.Repeat("a", 60),
			want:    strings.Repeat("a", 50) + "...",
		},
		{
			name:    "exactly fifty chars kept",
			message: strings.Repeat("b", 50),
			want:    strings.Repeat("b", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveTitle(tt.message); got != tt.want {
				t.Errorf("deriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListConversations(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)
	ctx := context.Background()

	if _, err := svc.Chat(ctx, &Request{Message: "hello", SessionID: "token-1"}); err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}

	convs, err := svc.ListConversations(ctx, "token-1")
	if err != nil {
		t.Fatalf("ListConversations() unexpected error: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("conversations = %d, want 1", len(convs))
	}

	// session_id 缺失视为非法输入
	if _, err := svc.ListConversations(ctx, ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("ListConversations(\"\") error = %v, want ErrInvalidInput", err)
	}
}

func TestGetConversationMessagesOwnership(t *testing.T) {
	repo := newMockConversationRepo()
	sessions := newMockSessionResolver()
	svc := NewService(repo, sessions, nil)
	ctx := context.Background()

	result, err := svc.Chat(ctx, &Request{Message: "hello", SessionID: "token-1"})
	if err != nil {
		t.Fatalf("Chat() unexpected error: %v", err)
	}

	// 正确归属
	conv, msgs, err := svc.GetConversationMessages(ctx, result.ConversationID, "token-1")
	if err != nil {
		t.Fatalf("GetConversationMessages() unexpected error: %v", err)
	}
	if conv.ID != result.ConversationID {
		t.Errorf("conversation ID = %q, want %q", conv.ID, result.ConversationID)
	}
	if len(msgs) != 2 {
		t.Errorf("messages = %d, want 2", len(msgs))
	}

	// 他人 session 访问必须 NotFound，不泄露存在性
	_, _, err = svc.GetConversationMessages(ctx, result.ConversationID, "token-other")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("cross-session access error = %v, want ErrNotFound", err)
	}
}
