package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/types"
)

// RedisChatMemory 实现了 ChatMemory 接口，使用 Redis List 作为持久化存储。
type RedisChatMemory struct {
	redisClient *redis.Client
	ttl         time.Duration // 可选：为聊天记录设置过期时间，为0则不过期
}

// NewRedisChatMemory 创建一个新的 RedisChatMemory 实例。
// redisClient: 一个已连接和配置好的 go-redis 客户端实例。
// ttl: 聊天记录在 Redis 中的可选过期时间。如果为0，则不过期。
func NewRedisChatMemory(redisClient *redis.Client, ttl time.Duration) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisChatMemory{
		redisClient: redisClient,
		ttl:         ttl,
	}, nil
}

// buildKey 为给定的 sessionID 构建 Redis 键。
func (rcm *RedisChatMemory) buildKey(sessionID string) string {
	return fmt.Sprintf(constants.KeySessionHistory, sessionID)
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	key := rcm.buildKey(sessionID)

	serialized, err := rcm.redisClient.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []types.ConversationTurn{}, nil // Key 不存在，返回空历史
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from redis for session %s: %w", sessionID, err)
	}

	turns := make([]types.ConversationTurn, 0, len(serialized))
	for _, s := range serialized {
		var turn types.ConversationTurn
		if err := json.Unmarshal([]byte(s), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message for session %s: %w. Corrupted data: %s", sessionID, err, s)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AddTurn 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddTurn(ctx context.Context, sessionID string, turn types.ConversationTurn) error {
	return rcm.AddTurns(ctx, sessionID, []types.ConversationTurn{turn})
}

// AddTurns 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddTurns(ctx context.Context, sessionID string, turns []types.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	key := rcm.buildKey(sessionID)

	// 使用 Pipeline 保证追加和续期的原子性
	pipe := rcm.redisClient.TxPipeline()
	for _, turn := range turns {
		serialized, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal message for session %s: %w", sessionID, err)
		}
		pipe.RPush(ctx, key, serialized)
	}
	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add messages to redis for session %s: %w", sessionID, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	key := rcm.buildKey(sessionID)

	if err := rcm.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history from redis for session %s: %w", sessionID, err)
	}
	return nil
}

var _ ChatMemory = (*RedisChatMemory)(nil)
