// Package counselor 编排一次用户回合：解析简历文本、检索上下文、
// 组装提示词、调用模型，并在路线图请求时完成解析校验和课程富化。
package counselor

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/prompt"
	"career-agent-go/internal/retriever"
	"career-agent-go/internal/roadmap"
	"career-agent-go/internal/tracing"
	"career-agent-go/internal/types"
)

// Components 编排器依赖的外部组件
type Components struct {
	// LLMModel 对话用的语言模型客户端（通常套了限流代理）
	LLMModel model.ToolCallingChatModel
	// RoadmapModel 路线图生成专用模型，温度通常更低。为 nil 时复用 LLMModel
	RoadmapModel model.ToolCallingChatModel
	// Retriever 简历上下文检索策略
	Retriever retriever.ContextRetriever
	// Enricher 课程富化器
	Enricher *roadmap.Enricher
	// ResumeResolver 会话简历文本解析器
	ResumeResolver ResumeTextResolver
}

// Settings 编排器的可调参数
type Settings struct {
	ChatTopK       int           // 对话检索分块数
	RoadmapTopK    int           // 路线图检索分块数
	ChatTimeout    time.Duration // 单次对话模型调用超时
	RoadmapTimeout time.Duration // 路线图模型调用超时
}

// Counselor 对话与路线图生成的编排器。
// 不持有任何会话状态，只读取 Session 字段并返回结果，持久化由调用方负责。
type Counselor struct {
	components Components
	settings   Settings
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// New 创建编排器
func New(components Components, settings Settings) *Counselor {
	if settings.ChatTopK <= 0 {
		settings.ChatTopK = constants.ChatTopK
	}
	if settings.RoadmapTopK <= 0 {
		settings.RoadmapTopK = constants.RoadmapTopK
	}
	if settings.ChatTimeout <= 0 {
		settings.ChatTimeout = constants.DefaultLLMTimeout
	}
	if settings.RoadmapTimeout <= 0 {
		settings.RoadmapTimeout = constants.DefaultLLMTimeout
	}
	if components.RoadmapModel == nil {
		components.RoadmapModel = components.LLMModel
	}
	return &Counselor{
		components: components,
		settings:   settings,
		tracer:     otel.Tracer("counselor"),
		logger:     logger.Component("counselor"),
	}
}

// HandleChatTurn 处理一次对话回合，返回模型的原样回复文本。
// 检索失败不影响回合；只有模型调用失败才返回错误。
func (c *Counselor) HandleChatTurn(ctx context.Context, session *types.Session, message string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "counselor.HandleChatTurn")
	defer span.End()

	if err := validateSession(session); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return "", err
	}
	span.SetAttributes(
		attribute.String("session.id", session.SessionID),
		attribute.String("session.status", string(session.Status)),
	)

	resumeText := c.components.ResumeResolver.ResolveText(ctx, session)
	// 对话场景用最新消息作为检索查询
	resumeContext := c.components.Retriever.RetrieveContext(ctx, resumeText, message, c.settings.ChatTopK)

	chatPrompt := prompt.ComposeChat(profileOf(session), resumeContext, session.HistoryText(), message)

	reply, err := c.invokeModel(ctx, c.components.LLMModel, session, "chat", chatPrompt, c.settings.ChatTimeout)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return "", err
	}

	c.logger.Info().
		Str("session_id", session.SessionID).
		Int("reply_chars", len(reply)).
		Msg("对话回合完成")
	return reply, nil
}

// HandleRoadmapRequest 处理路线图生成请求。
// 返回值三选一：成功的路线图；解析/校验失败时的统一错误负载；模型调用失败时的 error。
func (c *Counselor) HandleRoadmapRequest(ctx context.Context, session *types.Session) (*types.Roadmap, *types.ErrorPayload, error) {
	ctx, span := c.tracer.Start(ctx, "counselor.HandleRoadmapRequest")
	defer span.End()

	if err := validateSession(session); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, nil, err
	}
	span.SetAttributes(
		attribute.String("session.id", session.SessionID),
		attribute.String("session.status", string(session.Status)),
	)

	resumeText := c.components.ResumeResolver.ResolveText(ctx, session)
	// 路线图场景用完整会话历史作为检索查询
	historyText := session.HistoryText()
	resumeContext := c.components.Retriever.RetrieveContext(ctx, resumeText, historyText, c.settings.RoadmapTopK)

	roadmapPrompt := prompt.ComposeRoadmap(profileOf(session), resumeContext, historyText)

	raw, err := c.invokeModel(ctx, c.components.RoadmapModel, session, "roadmap", roadmapPrompt, c.settings.RoadmapTimeout)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, nil, err
	}

	variant := types.VariantForStatus(session.Status)
	parsed, parseErr := roadmap.Parse(raw, variant)
	if parseErr != nil {
		c.logger.Warn().
			Err(parseErr).
			Str("session_id", session.SessionID).
			Str("raw_output", tracing.SafePrompt(raw)).
			Msg("路线图输出解析或校验失败")
		tracing.RecordError(span, parseErr, tracing.ErrorTypeValidation)
		payload := roadmap.FailurePayload(parseErr)
		return nil, &payload, nil
	}

	// 学术版记录没有课程关键词，富化自然是 no-op
	c.components.Enricher.Enrich(ctx, parsed)

	c.logger.Info().
		Str("session_id", session.SessionID).
		Str("variant", string(variant)).
		Int("records", len(parsed.Records)).
		Msg("路线图生成完成")
	return parsed, nil, nil
}

// invokeModel 带超时调用指定模型并返回非空文本
func (c *Counselor) invokeModel(ctx context.Context, llm model.ToolCallingChatModel, session *types.Session, op, promptText string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []*schema.Message{schema.UserMessage(promptText)}
	resp, err := llm.Generate(ctx, messages)
	if err != nil {
		return "", NewModelInvocationError(session.SessionID, op, err.Error())
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return "", NewModelInvocationError(session.SessionID, op, "模型返回空内容")
	}
	return reply, nil
}

func validateSession(session *types.Session) error {
	if session == nil {
		return NewInvalidSessionError("", "session is nil")
	}
	if !session.Status.Valid() {
		return NewInvalidSessionError(session.SessionID, "unknown user status: "+string(session.Status))
	}
	return nil
}

func profileOf(session *types.Session) prompt.Profile {
	return prompt.Profile{
		Name:   session.Name,
		Status: session.Status,
		Age:    session.Age,
	}
}
