package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/parser"
)

// IndexRetriever 基于向量相似度的检索策略：
// 将简历切分为重叠分块，向量化后按与查询的余弦相似度取 topK。
type IndexRetriever struct {
	chunker  *parser.OverlapChunker
	embedder embedding.Embedder
	logger   zerolog.Logger
}

// NewIndexRetriever 创建向量检索器
func NewIndexRetriever(chunker *parser.OverlapChunker, embedder embedding.Embedder) *IndexRetriever {
	return &IndexRetriever{
		chunker:  chunker,
		embedder: embedder,
		logger:   logger.Component("index_retriever"),
	}
}

// RetrieveContext 实现 ContextRetriever 接口
func (r *IndexRetriever) RetrieveContext(ctx context.Context, resumeText string, query string, topK int) string {
	if strings.TrimSpace(resumeText) == "" {
		return constants.NoResumeContext
	}
	if topK <= 0 {
		topK = constants.ChatTopK
	}

	chunks := r.chunker.Split(resumeText)
	if len(chunks) == 0 {
		return constants.NoResumeContext
	}

	// 查询和所有分块一次请求完成向量化
	inputs := make([]string, 0, len(chunks)+1)
	inputs = append(inputs, query)
	inputs = append(inputs, chunks...)

	vectors, err := r.embedder.EmbedStrings(ctx, inputs)
	if err != nil {
		r.logger.Warn().Err(err).Int("chunks", len(chunks)).Msg("分块向量化失败，简历上下文不可用")
		return constants.ResumeContextUnavailable
	}
	if len(vectors) != len(inputs) {
		r.logger.Warn().Int("expected", len(inputs)).Int("got", len(vectors)).Msg("向量数量与输入不一致，简历上下文不可用")
		return constants.ResumeContextUnavailable
	}

	queryVec := vectors[0]
	type scoredChunk struct {
		index int
		score float64
	}
	scored := make([]scoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = scoredChunk{index: i, score: cosineSimilarity(queryVec, vectors[i+1])}
	}

	// 相似度降序，同分时保持原文顺序
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	// 按相似度排名顺序拼接
	selected := scored[:topK]
	parts := make([]string, len(selected))
	for i, sc := range selected {
		parts[i] = chunks[sc.index]
	}

	r.logger.Debug().Int("chunks", len(chunks)).Int("selected", len(selected)).Msg("简历上下文检索完成")
	return strings.Join(parts, "\n\n")
}

var _ ContextRetriever = (*IndexRetriever)(nil)
