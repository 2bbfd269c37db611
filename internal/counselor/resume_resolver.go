package counselor

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"
)

// ResumeFileStore 简历原始文件的只读访问
type ResumeFileStore interface {
	GetResumeFile(ctx context.Context, objectKey string) ([]byte, error)
}

// TextExtractor 从 PDF 字节中提取纯文本
type TextExtractor interface {
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string, options interface{}) (string, map[string]interface{}, error)
}

// ResumeTextResolver 解析会话关联的简历纯文本。
// 缺失（未上传、下载失败、解析失败）一律返回空字符串，
// 调用方把空字符串当作正常的"无简历"状态处理，不是异常。
type ResumeTextResolver interface {
	ResolveText(ctx context.Context, session *types.Session) string
}

// CachedResumeResolver 读透缓存的简历文本解析器：
// 优先读 Redis 缓存，未命中时从对象存储下载并提取，结果回写缓存。
// 并发重复提取是安全的（提取幂等且无副作用），缓存只是性能优化。
type CachedResumeResolver struct {
	fileStore   ResumeFileStore
	extractor   TextExtractor
	redisClient *redis.Client // 可选，为 nil 时每次都重新提取
	logger      zerolog.Logger
}

// NewCachedResumeResolver 创建简历文本解析器
func NewCachedResumeResolver(fileStore ResumeFileStore, extractor TextExtractor, redisClient *redis.Client) *CachedResumeResolver {
	return &CachedResumeResolver{
		fileStore:   fileStore,
		extractor:   extractor,
		redisClient: redisClient,
		logger:      logger.Component("resume_resolver"),
	}
}

// ResolveText 实现 ResumeTextResolver 接口
func (r *CachedResumeResolver) ResolveText(ctx context.Context, session *types.Session) string {
	if session == nil || session.ResumeObjectKey == "" {
		return ""
	}

	cacheKey := fmt.Sprintf(constants.KeyResumeText, session.SessionID)
	if r.redisClient != nil {
		if cached, err := r.redisClient.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached
		}
	}

	data, err := r.fileStore.GetResumeFile(ctx, session.ResumeObjectKey)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", session.SessionID).Str("object_key", session.ResumeObjectKey).Msg("下载简历文件失败，视为无简历")
		return ""
	}

	text, _, err := r.extractor.ExtractTextFromBytes(ctx, data, session.ResumeObjectKey, nil)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("简历文本提取失败，视为无简历")
		return ""
	}

	if r.redisClient != nil && text != "" {
		if err := r.redisClient.Set(ctx, cacheKey, text, constants.ResumeTextTTL).Err(); err != nil {
			r.logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("简历文本缓存写入失败")
		}
	}

	return text
}

var _ ResumeTextResolver = (*CachedResumeResolver)(nil)
