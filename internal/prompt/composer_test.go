package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/types"
)

func testProfile(status types.UserStatus) Profile {
	return Profile{Name: "Ravi", Status: status, Age: 21}
}

// TestComposeChatContainsAllSections 对话提示词应包含画像、上下文、历史和最新消息
func TestComposeChatContainsAllSections(t *testing.T) {
	p := ComposeChat(testProfile(types.StatusCollegeStudent),
		"resume context here",
		"User: hi\nCounselor: hello\n",
		"what should I learn next?")

	assert.Contains(t, p, "Ravi")
	assert.Contains(t, p, string(types.StatusCollegeStudent))
	assert.Contains(t, p, "21")
	assert.Contains(t, p, "resume context here")
	assert.Contains(t, p, "Counselor: hello")
	assert.Contains(t, p, "what should I learn next?")
	// 三阶段协议必须写入指令
	assert.Contains(t, p, "Phase 1")
	assert.Contains(t, p, "Phase 2")
	assert.Contains(t, p, "Phase 3")
	assert.Contains(t, p, "upload their resume")
}

// TestComposeChatWithSentinelContext 哨兵上下文原样进入提示词
func TestComposeChatWithSentinelContext(t *testing.T) {
	p := ComposeChat(testProfile(types.StatusSchoolStudent),
		constants.NoResumeContext, "", "hello")
	assert.Contains(t, p, constants.NoResumeContext)
}

// TestComposeRoadmapAcademicVariant 学生身份使用学术版变体
func TestComposeRoadmapAcademicVariant(t *testing.T) {
	p := ComposeRoadmap(testProfile(types.StatusSchoolStudent), "ctx", "history")

	assert.Contains(t, p, "academic fields")
	assert.Contains(t, p, `"reasoning"`)
	assert.Contains(t, p, "3 to 5")
	// 学术版不应出现职业版字段
	assert.NotContains(t, p, "courses_to_find")
	assert.NotContains(t, p, `"salary"`)
	assert.NotContains(t, p, `"growth"`)
}

// TestComposeRoadmapCareerVariant 非学生身份使用职业版变体
func TestComposeRoadmapCareerVariant(t *testing.T) {
	for _, status := range []types.UserStatus{types.StatusCollegeStudent, types.StatusPassout} {
		p := ComposeRoadmap(testProfile(status), "ctx", "history")

		assert.Contains(t, p, "career pathways")
		assert.Contains(t, p, "courses_to_find")
		assert.Contains(t, p, `"salary"`)
		assert.Contains(t, p, "High, Medium or Low")
		assert.Contains(t, p, "5 to 7")
		// 模型只能给可搜索关键词，不能编造课程数据
		assert.Contains(t, p, "NOT URLs or real course data")
	}
}

// TestComposeRoadmapRequiresJSONOnly 两种变体都要求只输出 JSON
func TestComposeRoadmapRequiresJSONOnly(t *testing.T) {
	for _, status := range []types.UserStatus{types.StatusSchoolStudent, types.StatusPassout} {
		p := ComposeRoadmap(testProfile(status), "ctx", "history")
		assert.Contains(t, p, "ONLY a single JSON object")
		assert.Contains(t, p, `"roadmap"`)
	}
}
