package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedLLMModel 包装一个对话模型，所有调用都先经过令牌桶。
// 对上层表现为普通的 ToolCallingChatModel。
type RateLimitedLLMModel struct {
	original    model.ToolCallingChatModel
	rateLimiter *TokenBucket
}

// NewRateLimitedLLMModel 按 QPM 包装模型，突发容量取 QPM 的一半
func NewRateLimitedLLMModel(original model.ToolCallingChatModel, qpm int) *RateLimitedLLMModel {
	return &RateLimitedLLMModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
	}
}

// WithRetryPolicy 覆盖底层令牌桶的重试参数
func (m *RateLimitedLLMModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedLLMModel {
	m.rateLimiter.WithRetryPolicy(waitTime, maxRetries)
	return m
}

// Generate 在限流和重试约束下调用底层模型
func (m *RateLimitedLLMModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var result *schema.Message

	err := m.rateLimiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		result, genErr = m.original.Generate(ctx, input, opts...)
		return genErr
	})

	return result, err
}

// Stream 流式调用同样走限流，重试只覆盖建立流的阶段
func (m *RateLimitedLLMModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var result *schema.StreamReader[*schema.Message]

	err := m.rateLimiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		result, streamErr = m.original.Stream(ctx, input, opts...)
		return streamErr
	})

	return result, err
}

// WithTools 绑定工具后返回新的包装，与原包装共享同一个令牌桶
func (m *RateLimitedLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	toolModel, err := m.original.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedLLMModel{
		original:    toolModel,
		rateLimiter: m.rateLimiter,
	}, nil
}

// NewLLMWithRateLimit 按配置把模型套上限流。
// 配置表里有该模型的限额时取其 90% 留出余量；
// 否则用 customQPM；都没有时回落到 30 QPM。
func NewLLMWithRateLimit(
	original model.ToolCallingChatModel,
	modelName string,
	qpmLimits map[string]int,
	customQPM int,
	maxRetries int,
	retryWaitTime time.Duration,
) model.ToolCallingChatModel {
	qpm := customQPM
	if qpmLimits != nil && modelName != "" {
		if limit, ok := qpmLimits[modelName]; ok && limit > 0 {
			qpm = limit * 90 / 100
		}
	}
	if qpm <= 0 {
		qpm = 30
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return NewRateLimitedLLMModel(original, qpm).WithRetryPolicy(retryWaitTime, maxRetries)
}
