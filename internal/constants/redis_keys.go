package constants

import "time"

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// SessionModulePrefix 会话模块
	SessionModulePrefix = "session"
	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"
	// RoadmapModulePrefix 路线图模块
	RoadmapModulePrefix = "roadmap"

	// EntityHistory 会话历史实体
	EntityHistory = "history"
	// EntityText 简历文本实体
	EntityText = "text"
	// EntitySummary 简历摘要实体
	EntitySummary = "summary"
	// EntitySnapshot 路线图快照实体
	EntitySnapshot = "snapshot"

	// KeySessionHistory 会话历史 (LIST，元素为 JSON 序列化的消息)
	// 格式: app:session:history:{sessionID}
	KeySessionHistory = AppPrefix + ":" + SessionModulePrefix + ":" + EntityHistory + ":%s"

	// KeyResumeText 解析后的简历纯文本缓存 (STRING)
	// 格式: app:resume:text:{sessionID}
	KeyResumeText = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityText + ":%s"

	// KeyResumeSummary 摘要策略生成的简历摘要缓存 (STRING)
	// 格式: app:resume:summary:{textMD5}，相同简历文本共享摘要
	KeyResumeSummary = AppPrefix + ":" + ResumeModulePrefix + ":" + EntitySummary + ":%s"

	// KeyRoadmapSnapshot 最近一次成功生成的路线图 (STRING，JSON)
	// 格式: app:roadmap:snapshot:{sessionID}
	KeyRoadmapSnapshot = AppPrefix + ":" + RoadmapModulePrefix + ":" + EntitySnapshot + ":%s"

	// KeyResumeFileMD5Set 已上传简历文件MD5集合 (SET)，用于重复上传检测
	KeyResumeFileMD5Set = AppPrefix + ":" + ResumeModulePrefix + ":md5set"

	// KeyRoadmapLock 路线图生成锁
	// 格式: app:roadmap:lock:{sessionID}
	KeyRoadmapLock = AppPrefix + ":" + RoadmapModulePrefix + ":lock:%s"
)

// 缓存有效期
const (
	SessionHistoryTTL  = 24 * time.Hour
	ResumeTextTTL      = 24 * time.Hour
	ResumeSummaryTTL   = 24 * time.Hour
	RoadmapSnapshotTTL = 24 * time.Hour
	ResumeMD5SetTTL    = 365 * 24 * time.Hour
	RoadmapLockTTL     = 2 * time.Minute
)
