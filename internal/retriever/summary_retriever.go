package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/pkg/utils"
)

const summaryPromptTemplate = `From the resume below, extract and summarize only the content relevant to the following request. Cover education, skills, projects and work experience where relevant. Respond with the summary only.

Request:
%s

Resume:
%s`

// SummaryRetriever 基于 LLM 摘要的检索策略：
// 将简历文本（截断到上限）连同查询交给模型，提取与查询相关的摘要。
// 相同的简历文本和查询组合按 MD5 缓存复用。
type SummaryRetriever struct {
	llmModel    model.ToolCallingChatModel
	inputLimit  int
	redisClient *redis.Client // 可选，为 nil 时不缓存
	logger      zerolog.Logger
}

// SummaryOption 配置 SummaryRetriever
type SummaryOption func(*SummaryRetriever)

// WithSummaryCache 启用基于 Redis 的摘要缓存
func WithSummaryCache(client *redis.Client) SummaryOption {
	return func(r *SummaryRetriever) {
		r.redisClient = client
	}
}

// NewSummaryRetriever 创建摘要检索器。inputLimit 为送入模型的简历字符上限。
func NewSummaryRetriever(llmModel model.ToolCallingChatModel, inputLimit int, opts ...SummaryOption) *SummaryRetriever {
	if inputLimit <= 0 {
		inputLimit = constants.DefaultSummaryInputLimit
	}
	r := &SummaryRetriever{
		llmModel:   llmModel,
		inputLimit: inputLimit,
		logger:     logger.Component("summary_retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrieveContext 实现 ContextRetriever 接口。topK 对摘要策略无意义，被忽略。
func (r *SummaryRetriever) RetrieveContext(ctx context.Context, resumeText string, query string, topK int) string {
	if strings.TrimSpace(resumeText) == "" {
		return constants.NoResumeContext
	}

	truncated := resumeText
	if runes := []rune(truncated); len(runes) > r.inputLimit {
		truncated = string(runes[:r.inputLimit])
	}

	cacheKey := fmt.Sprintf(constants.KeyResumeSummary, utils.CalculateMD5([]byte(truncated+"|"+query)))
	if r.redisClient != nil {
		if cached, err := r.redisClient.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			r.logger.Debug().Msg("命中简历摘要缓存")
			return cached
		}
	}

	messages := []*schema.Message{
		schema.UserMessage(fmt.Sprintf(summaryPromptTemplate, query, truncated)),
	}
	resp, err := r.llmModel.Generate(ctx, messages)
	if err != nil {
		r.logger.Warn().Err(err).Msg("简历摘要生成失败，简历上下文不可用")
		return constants.ResumeContextUnavailable
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		r.logger.Warn().Msg("简历摘要为空，简历上下文不可用")
		return constants.ResumeContextUnavailable
	}

	if r.redisClient != nil {
		if err := r.redisClient.Set(ctx, cacheKey, summary, constants.ResumeSummaryTTL).Err(); err != nil {
			r.logger.Warn().Err(err).Msg("简历摘要缓存写入失败")
		}
	}

	return summary
}

var _ ContextRetriever = (*SummaryRetriever)(nil)
