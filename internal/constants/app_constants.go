package constants

import "time"

// 简历上下文哨兵值。检索层永远不向上层返回错误，
// 缺失或失败都折叠为下面两个固定字符串，由提示词直接消费。
const (
	// NoResumeContext 会话没有上传过简历
	NoResumeContext = "No resume has been provided by the user."
	// ResumeContextUnavailable 简历存在但检索失败（解析、向量化或摘要出错）
	ResumeContextUnavailable = "Resume context is currently unavailable."
)

// 路线图失败负载文案
const (
	// RoadmapParseFailureMessage 模型输出中找不到可解析的 JSON
	RoadmapParseFailureMessage = "Failed to generate a valid roadmap. The model response could not be parsed."
	// RoadmapSchemaFailureMessage JSON 可解析但结构不符合要求
	RoadmapSchemaFailureMessage = "Failed to generate a valid roadmap. The model response did not match the expected format."
)

// 检索参数，与分块策略配套
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	// ChatTopK 对话场景取 2 个最相关分块
	ChatTopK = 2
	// RoadmapTopK 路线图场景取 3 个
	RoadmapTopK = 3
	// DefaultSummaryInputLimit 摘要策略送入模型的简历文本上限（字符）
	DefaultSummaryInputLimit = 4000
)

// RoadmapRecordCount 路线图恒定的记录条数
const RoadmapRecordCount = 3

// 校验边界
const (
	MinNameLength = 2
	MinAge        = 10
	MaxAge        = 100
	// 技能数量边界，与两个版本提示词中的要求一致
	AcademicMinSkills = 3
	AcademicMaxSkills = 5
	CareerMinSkills   = 5
	CareerMaxSkills   = 7
)

// 默认超时
const (
	DefaultLLMTimeout          = 90 * time.Second
	DefaultCourseSearchTimeout = 10 * time.Second
	DefaultPDFParseTimeout     = 30 * time.Second
)
