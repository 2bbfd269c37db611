package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/parser"
)

// stubEmbedder 按预设向量表返回嵌入，用于构造可控的相似度排序
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := s.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0, 0, 1}
		}
	}
	return out, nil
}

func newTestChunker(t *testing.T, size, overlap int) *parser.OverlapChunker {
	t.Helper()
	chunker, err := parser.NewOverlapChunker(size, overlap)
	require.NoError(t, err)
	return chunker
}

// TestIndexRetrieverNoResume 无简历时返回固定哨兵文本，不应调用嵌入服务
func TestIndexRetrieverNoResume(t *testing.T) {
	r := NewIndexRetriever(newTestChunker(t, 1000, 200), &stubEmbedder{err: errors.New("must not be called")})

	got := r.RetrieveContext(context.Background(), "", "question", 2)
	assert.Equal(t, constants.NoResumeContext, got)

	got = r.RetrieveContext(context.Background(), "   \n ", "question", 2)
	assert.Equal(t, constants.NoResumeContext, got)
}

// TestIndexRetrieverEmbedFailure 向量化失败折叠为"不可用"哨兵，不返回错误
func TestIndexRetrieverEmbedFailure(t *testing.T) {
	r := NewIndexRetriever(newTestChunker(t, 1000, 200), &stubEmbedder{err: errors.New("embedding service down")})

	got := r.RetrieveContext(context.Background(), "some resume text", "question", 2)
	assert.Equal(t, constants.ResumeContextUnavailable, got)
}

// TestIndexRetrieverTopKSelection 应选出相似度最高的 topK 个分块并按原文顺序拼接
func TestIndexRetrieverTopKSelection(t *testing.T) {
	// 分块器 10/2，步长 8，24 字符 → 分块 [0:10) [8:18) [16:24)
	chunkA := "aaaaaaaabb"
	chunkB := "bbbbbbbbcc"
	chunkC := "cccccccc"
	resume := "aaaaaaaabbbbbbbbcccccccc"

	emb := &stubEmbedder{vectors: map[string][]float64{
		"query": {1, 0, 0},
		chunkA:  {0.9, 0.1, 0}, // 最相似
		chunkB:  {0, 1, 0},     // 最不相似
		chunkC:  {0.5, 0.5, 0}, // 次相似
	}}
	r := NewIndexRetriever(newTestChunker(t, 10, 2), emb)

	got := r.RetrieveContext(context.Background(), resume, "query", 2)
	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 2)
	// chunkA 与 chunkC 得分最高，按相似度排名顺序输出
	assert.Equal(t, chunkA, parts[0])
	assert.Equal(t, chunkC, parts[1])
}

// TestIndexRetrieverTopKLargerThanChunks topK 超过分块数时返回全部分块
func TestIndexRetrieverTopKLargerThanChunks(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float64{}}
	r := NewIndexRetriever(newTestChunker(t, 1000, 200), emb)

	resume := "short resume"
	got := r.RetrieveContext(context.Background(), resume, "query", 5)
	assert.Equal(t, resume, got)
}

// TestSummaryRetrieverNoResume 无简历时返回哨兵，不调用模型
func TestSummaryRetrieverNoResume(t *testing.T) {
	mock := agent.NewMockChatClient("", errors.New("must not be called"))
	r := NewSummaryRetriever(mock, 4000)

	got := r.RetrieveContext(context.Background(), "", "query", 0)
	assert.Equal(t, constants.NoResumeContext, got)
	assert.Empty(t, mock.ReceivedCalls)
}

// TestSummaryRetrieverSuccess 摘要成功时返回模型输出
func TestSummaryRetrieverSuccess(t *testing.T) {
	mock := agent.NewMockChatClient("Experienced Go developer with strong backend skills.", nil)
	r := NewSummaryRetriever(mock, 4000)

	got := r.RetrieveContext(context.Background(), "resume text here", "what are my strengths", 0)
	assert.Equal(t, "Experienced Go developer with strong backend skills.", got)

	// 提示词应同时包含简历文本和查询
	require.NotEmpty(t, mock.ReceivedCalls)
	assert.Contains(t, mock.LastCall()[0].Content, "resume text here")
	assert.Contains(t, mock.LastCall()[0].Content, "what are my strengths")
}

// TestSummaryRetrieverLLMFailure 模型失败折叠为"不可用"哨兵
func TestSummaryRetrieverLLMFailure(t *testing.T) {
	mock := agent.NewMockChatClient("", errors.New("llm unavailable"))
	r := NewSummaryRetriever(mock, 4000)

	got := r.RetrieveContext(context.Background(), "resume text", "query", 0)
	assert.Equal(t, constants.ResumeContextUnavailable, got)
}

// TestSummaryRetrieverTruncatesInput 超过上限的简历文本应被截断后再送入模型
func TestSummaryRetrieverTruncatesInput(t *testing.T) {
	mock := agent.NewMockChatClient("summary", nil)
	r := NewSummaryRetriever(mock, 100)

	long := strings.Repeat("r", 500)
	got := r.RetrieveContext(context.Background(), long, "query", 0)
	assert.Equal(t, "summary", got)

	prompt := mock.LastCall()[0].Content
	assert.Contains(t, prompt, strings.Repeat("r", 100))
	assert.NotContains(t, prompt, strings.Repeat("r", 101))
}

// TestCosineSimilarity 边界情况：零向量与维度不一致
func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Zero(t, cosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
