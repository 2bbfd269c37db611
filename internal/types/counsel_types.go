package types

import (
	"strings"
	"time"
)

// UserStatus 用户身份状态，决定对话策略与路线图变体
type UserStatus string

const (
	// StatusSchoolStudent 在校中学生
	StatusSchoolStudent UserStatus = "school_student"
	// StatusCollegeStudent 在校大学生
	StatusCollegeStudent UserStatus = "college_student"
	// StatusPassout 毕业生/职场人士
	StatusPassout UserStatus = "passout"
)

// Valid 判断状态值是否为已知的三种身份之一
func (s UserStatus) Valid() bool {
	switch s {
	case StatusSchoolStudent, StatusCollegeStudent, StatusPassout:
		return true
	}
	return false
}

// NeedsResume 是否应在第三条助手消息时请求简历
func (s UserStatus) NeedsResume() bool {
	return s == StatusCollegeStudent || s == StatusPassout
}

// TurnRole 会话消息的角色
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn 一条会话消息，追加后不可变
type ConversationTurn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
	Ordinal int      `json:"ordinal"`
}

// Session 一次咨询会话的只读视图。
// 核心流程只读取这里的字段，持久化由调用方（handler）负责。
type Session struct {
	SessionID       string             `json:"session_id"`
	Name            string             `json:"name"`
	Status          UserStatus         `json:"status"`
	Age             int                `json:"age"`
	ResumeObjectKey string             `json:"resume_object_key,omitempty"` // MinIO 对象键，为空表示未上传简历
	History         []ConversationTurn `json:"history"`
	CreatedAt       time.Time          `json:"created_at"`
}

// HistoryText 将会话历史拼接为提示词中使用的纯文本形式
func (s *Session) HistoryText() string {
	var b strings.Builder
	for _, turn := range s.History {
		switch turn.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Counselor: ")
		default:
			b.WriteString(string(turn.Role))
			b.WriteString(": ")
		}
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// AssistantTurnCount 助手已发送的消息条数，用于判定会话阶段
func (s *Session) AssistantTurnCount() int {
	n := 0
	for _, turn := range s.History {
		if turn.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// CourseRef 课程搜索服务返回的一条已验证课程引用
type CourseRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// RoadmapVariant 路线图变体，由用户身份决定
type RoadmapVariant string

const (
	// VariantAcademic 学生版：推荐学术方向（school_student）
	VariantAcademic RoadmapVariant = "academic"
	// VariantCareer 职业版：推荐职业路径（college_student / passout）
	VariantCareer RoadmapVariant = "career"
)

// VariantForStatus 根据用户身份返回对应的路线图变体
func VariantForStatus(s UserStatus) RoadmapVariant {
	if s == StatusSchoolStudent {
		return VariantAcademic
	}
	return VariantCareer
}

// RoadmapRecord 一条路线图记录。两种变体共用同一结构：
// 学术版只填 Title/Skills/Reasoning；职业版额外要求
// Salary/Growth，CoursesToFind 是模型给出的可搜索关键词，
// 课程富化后被清空，Courses 只保留搜索服务验证过的真实课程。
// Courses 用切片指针区分"字段不存在"（学术版，序列化时省略）和
// "列表为空"（职业版所有搜索都落空，序列化为 []）。
type RoadmapRecord struct {
	Title         string       `json:"title"`
	Skills        []string     `json:"skills"`
	CoursesToFind []string     `json:"courses_to_find,omitempty"`
	Courses       *[]CourseRef `json:"courses,omitempty"`
	Salary        string       `json:"salary,omitempty"`
	Growth        string       `json:"growth,omitempty"`
	Reasoning     string       `json:"reasoning"`
}

// Roadmap 路线图生成的最终结果，恒为三条记录
type Roadmap struct {
	Records []RoadmapRecord `json:"roadmap"`
}

// ErrorPayload 路线图解析/校验失败时返回给调用方的统一负载
type ErrorPayload struct {
	Error string `json:"error"`
}
