package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-agent-go/internal/types"
)

// TestInMemoryChatMemory 验证内存实现的追加、读取与清空行为
func TestInMemoryChatMemory(t *testing.T) {
	ctx := context.Background()
	memory := NewInMemoryChatMemory()
	sessionID := "session-1"

	// 不存在的会话返回空历史而非错误
	history, err := memory.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = memory.AddTurn(ctx, sessionID, types.ConversationTurn{Role: types.RoleAssistant, Content: "你好", Ordinal: 0})
	require.NoError(t, err)
	err = memory.AddTurns(ctx, sessionID, []types.ConversationTurn{
		{Role: types.RoleUser, Content: "我想了解职业规划", Ordinal: 1},
		{Role: types.RoleAssistant, Content: "可以先聊聊你的兴趣", Ordinal: 2},
	})
	require.NoError(t, err)

	history, err = memory.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, types.RoleAssistant, history[0].Role)
	assert.Equal(t, 2, history[2].Ordinal)

	// 返回的是副本，修改不应影响内部存储
	history[0].Content = "被篡改"
	fresh, err := memory.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "你好", fresh[0].Content)

	// 空内容消息应被拒绝
	err = memory.AddTurn(ctx, sessionID, types.ConversationTurn{Role: types.RoleUser, Content: ""})
	assert.Error(t, err)

	require.NoError(t, memory.ClearHistory(ctx, sessionID))
	history, err = memory.GetHistory(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, history)

	// 清空不存在的会话应静默成功
	assert.NoError(t, memory.ClearHistory(ctx, "missing-session"))
}
