// Package retriever 负责从简历文本中挑选与当前问题相关的上下文片段。
// 无论底层策略如何失败，检索永远不向上层返回错误：
// 没有简历或检索失败都折叠为固定的哨兵文本，由提示词直接消费。
package retriever

import (
	"context"
	"math"
)

// ContextRetriever 简历上下文检索策略
type ContextRetriever interface {
	// RetrieveContext 根据查询返回简历上下文文本。
	// resumeText 为空时返回"无简历"哨兵；任何内部失败返回"不可用"哨兵。
	RetrieveContext(ctx context.Context, resumeText string, query string, topK int) string
}

// cosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致或零向量返回 0。
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
