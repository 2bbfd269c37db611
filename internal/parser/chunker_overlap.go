package parser

import (
	"fmt"
	"unicode"

	"career-agent-go/internal/constants"
)

// OverlapChunker 将长文本切分为固定长度、相邻重叠的分块。
// 按字符（rune）计数，避免多字节文本被从中间截断。
type OverlapChunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewOverlapChunker 创建分块器。chunkOverlap 必须小于 chunkSize。
func NewOverlapChunker(chunkSize, chunkOverlap int) (*OverlapChunker, error) {
	if chunkSize <= 0 {
		chunkSize = constants.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = constants.DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("分块重叠 (%d) 必须小于分块长度 (%d)", chunkOverlap, chunkSize)
	}
	return &OverlapChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Split 切分文本。空文本返回空切片；
// 不超过分块长度的文本原样作为唯一分块返回。
// 切点优先落在空白字符上，窗口内没有空白时按固定长度硬切。
func (c *OverlapChunker) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	step := c.chunkSize - c.chunkOverlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	start := 0
	for {
		end := start + c.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		end = c.cutAt(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.chunkOverlap
	}
}

// cutAt 在重叠窗口内向前回退到最近的空白字符后面，避免把词语从中间切断。
// 回退下界同时保证下一个分块的起点仍然前进。
func (c *OverlapChunker) cutAt(runes []rune, start, end int) int {
	limit := end - c.chunkOverlap
	if floor := start + c.chunkOverlap + 1; limit < floor {
		limit = floor
	}
	for i := end - 1; i >= limit; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
