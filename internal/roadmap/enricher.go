package roadmap

import (
	"context"

	"github.com/rs/zerolog"

	"career-agent-go/internal/course"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"
)

// Enricher 将模型给出的可搜索课程关键词替换为
// 搜索服务验证过的真实课程引用。
type Enricher struct {
	searcher course.Searcher
	logger   zerolog.Logger
}

// NewEnricher 创建课程富化器
func NewEnricher(searcher course.Searcher) *Enricher {
	return &Enricher{
		searcher: searcher,
		logger:   logger.Component("course_enricher"),
	}
}

// Enrich 就地富化路线图。对每条记录：
//   - 缺少 courses_to_find 字段的记录（学术版）不做任何处理；
//   - 对每个关键词做一次 top-1 搜索，收集有效结果；
//   - 用验证过的引用替换课程字段，并移除关键词字段。
//
// 单个关键词搜索失败或无结果只意味着该课程缺席，
// 绝不让整个路线图失败。
func (e *Enricher) Enrich(ctx context.Context, roadmap *types.Roadmap) {
	if roadmap == nil {
		return
	}
	for i := range roadmap.Records {
		record := &roadmap.Records[i]
		// 字段缺失才是学术版；空列表意味着职业版仍要产出空的课程列表
		if record.CoursesToFind == nil {
			continue
		}

		verified := make([]types.CourseRef, 0, len(record.CoursesToFind))
		for _, term := range record.CoursesToFind {
			refs, err := e.searcher.Search(ctx, term, 1)
			if err != nil {
				e.logger.Warn().Err(err).Str("term", term).Str("record", record.Title).Msg("课程搜索失败，该课程降级为缺席")
				continue
			}
			if len(refs) == 0 {
				e.logger.Debug().Str("term", term).Str("record", record.Title).Msg("课程搜索无结果")
				continue
			}
			verified = append(verified, refs[0])
		}

		record.Courses = &verified
		record.CoursesToFind = nil
	}
}
