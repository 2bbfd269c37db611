package agent

import (
	"context"
	"fmt"
	"sync"

	"career-agent-go/internal/types"
)

// ChatMemory 定义了会话历史存储的接口
type ChatMemory interface {
	// GetHistory 获取指定会话ID的聊天历史记录。
	// 如果会话不存在，应返回一个空切片和 nil 错误。
	GetHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error)

	// AddTurn 向指定会话ID的聊天历史记录中追加一条消息。
	AddTurn(ctx context.Context, sessionID string, turn types.ConversationTurn) error

	// AddTurns 向指定会话ID的聊天历史记录中批量追加多条消息。
	AddTurns(ctx context.Context, sessionID string, turns []types.ConversationTurn) error

	// ClearHistory 清除指定会话ID的所有聊天历史记录。
	// 如果会话不存在，此操作应静默成功。
	ClearHistory(ctx context.Context, sessionID string) error
}

// InMemoryChatMemory 是 ChatMemory 接口的一个简单内存实现。
// 注意：此实现不是持久化的，仅用于测试和简单场景。
type InMemoryChatMemory struct {
	mu        sync.RWMutex
	histories map[string][]types.ConversationTurn
}

// NewInMemoryChatMemory 创建一个新的 InMemoryChatMemory 实例。
func NewInMemoryChatMemory() *InMemoryChatMemory {
	return &InMemoryChatMemory{
		histories: make(map[string][]types.ConversationTurn),
	}
}

// GetHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) GetHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history, ok := m.histories[sessionID]
	if !ok {
		return []types.ConversationTurn{}, nil
	}
	// 返回副本，防止外部修改内部存储
	cpy := make([]types.ConversationTurn, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddTurn 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddTurn(ctx context.Context, sessionID string, turn types.ConversationTurn) error {
	return m.AddTurns(ctx, sessionID, []types.ConversationTurn{turn})
}

// AddTurns 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddTurns(ctx context.Context, sessionID string, turns []types.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	for _, turn := range turns {
		if turn.Content == "" {
			return fmt.Errorf("cannot add empty message to chat history for session %s", sessionID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[sessionID] = append(m.histories[sessionID], turns...)
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.histories, sessionID)
	return nil
}

var _ ChatMemory = (*InMemoryChatMemory)(nil)
