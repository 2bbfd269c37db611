package roadmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-agent-go/internal/constants"
	"career-agent-go/internal/types"
)

const validAcademicJSON = `{
  "roadmap": [
    {"title": "Computer Science", "skills": ["Programming", "Math", "Logic"], "reasoning": "Strong analytical aptitude shown in conversation."},
    {"title": "Design", "skills": ["Sketching", "Color theory", "Typography"], "reasoning": "Creative interests expressed repeatedly."},
    {"title": "Economics", "skills": ["Statistics", "Writing", "Analysis"], "reasoning": "Curiosity about how markets work."}
  ]
}`

const validCareerJSON = `{
  "roadmap": [
    {"title": "Backend Engineer", "skills": ["Go", "SQL", "Docker", "Linux", "Networking"], "courses_to_find": ["Go programming", "System design"], "salary": "8-15 LPA", "growth": "High", "reasoning": "Resume shows solid server-side project work."},
    {"title": "Data Engineer", "skills": ["Python", "SQL", "Spark", "Airflow", "ETL"], "courses_to_find": ["Data engineering", "Apache Spark"], "salary": "10-18 LPA", "growth": "High", "reasoning": "Strong data handling experience in projects."},
    {"title": "DevOps Engineer", "skills": ["CI/CD", "Kubernetes", "AWS", "Terraform", "Monitoring"], "courses_to_find": ["Kubernetes basics"], "salary": "9-16 LPA", "growth": "Medium", "reasoning": "Interest in automation and infrastructure."}
  ]
}`

// TestExtractJSONFenced 围栏代码块内的 JSON 应被精确提取
func TestExtractJSONFenced(t *testing.T) {
	raw := "Here is your roadmap:\n```json\n" + validAcademicJSON + "\n```\nGood luck!"
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, validAcademicJSON, got)

	// 无语言标记的围栏同样有效
	raw = "```\n" + validAcademicJSON + "\n```"
	got, err = ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, validAcademicJSON, got)
}

// TestExtractJSONBareBraces 整体裁剪后恰好是 {...} 的输出走第二条路径
func TestExtractJSONBareBraces(t *testing.T) {
	raw := "\n  " + validCareerJSON + "  \n"
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, validCareerJSON, got)
}

// TestExtractJSONTrailingText 无围栏且有尾随文本时必须是 ParseFailure，
// 不允许退化为括号匹配式的模糊提取
func TestExtractJSONTrailingText(t *testing.T) {
	raw := `Sure! Here is the plan: {"roadmap": []}extra trailing text`
	_, err := ExtractJSON(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailure)
}

// TestExtractJSONNoJSON 完全没有 JSON 的输出是 ParseFailure
func TestExtractJSONNoJSON(t *testing.T) {
	_, err := ExtractJSON("I'm sorry, I cannot generate a roadmap right now.")
	assert.ErrorIs(t, err, ErrParseFailure)
}

// TestParseAcademicVariant 学术版：3 条记录，键集合精确匹配
func TestParseAcademicVariant(t *testing.T) {
	roadmap, err := Parse(validAcademicJSON, types.VariantAcademic)
	require.NoError(t, err)
	require.Len(t, roadmap.Records, 3)

	first := roadmap.Records[0]
	assert.Equal(t, "Computer Science", first.Title)
	assert.Len(t, first.Skills, 3)
	assert.NotEmpty(t, first.Reasoning)
	assert.Empty(t, first.Salary)
	assert.Empty(t, first.CoursesToFind)
}

// TestParseCareerVariant 职业版：salary/growth/courses_to_find 必填
func TestParseCareerVariant(t *testing.T) {
	roadmap, err := Parse(validCareerJSON, types.VariantCareer)
	require.NoError(t, err)
	require.Len(t, roadmap.Records, 3)

	first := roadmap.Records[0]
	assert.Equal(t, "Backend Engineer", first.Title)
	assert.Equal(t, []string{"Go programming", "System design"}, first.CoursesToFind)
	assert.Equal(t, "High", first.Growth)
	assert.Equal(t, "8-15 LPA", first.Salary)
}

// TestParseSyntaxError JSON 语法错误是 ParseFailure
func TestParseSyntaxError(t *testing.T) {
	_, err := Parse(`{"roadmap": [}`, types.VariantAcademic)
	assert.ErrorIs(t, err, ErrParseFailure)
}

// TestParseMissingRoadmapKey 缺少顶层 roadmap 键是 SchemaFailure
func TestParseMissingRoadmapKey(t *testing.T) {
	_, err := Parse(`{"plan": []}`, types.VariantAcademic)
	assert.ErrorIs(t, err, ErrSchemaFailure)
}

// TestParseWrongRecordCount 记录数不是 3 是 SchemaFailure
func TestParseWrongRecordCount(t *testing.T) {
	_, err := Parse(`{"roadmap": [{"title": "CS", "skills": ["a"], "reasoning": "r"}]}`, types.VariantAcademic)
	assert.ErrorIs(t, err, ErrSchemaFailure)
}

// TestParseUnexpectedKey 学术版记录携带职业版字段是 SchemaFailure
func TestParseUnexpectedKey(t *testing.T) {
	raw := `{"roadmap": [
		{"title": "CS", "skills": ["a"], "reasoning": "r", "salary": "10 LPA"},
		{"title": "B", "skills": ["b"], "reasoning": "r"},
		{"title": "C", "skills": ["c"], "reasoning": "r"}
	]}`
	_, err := Parse(raw, types.VariantAcademic)
	assert.ErrorIs(t, err, ErrSchemaFailure)
}

// TestParseCareerMissingGrowth 职业版缺 growth 是 SchemaFailure
func TestParseCareerMissingGrowth(t *testing.T) {
	raw := `{"roadmap": [
		{"title": "A", "skills": ["s1", "s2", "s3", "s4", "s5"], "courses_to_find": ["c"], "salary": "10 LPA", "reasoning": "r"},
		{"title": "B", "skills": ["s1", "s2", "s3", "s4", "s5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "High", "reasoning": "r"},
		{"title": "C", "skills": ["s1", "s2", "s3", "s4", "s5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "Low", "reasoning": "r"}
	]}`
	_, err := Parse(raw, types.VariantCareer)
	assert.ErrorIs(t, err, ErrSchemaFailure)
}

// TestParseInvalidGrowthTier growth 取值必须是 High/Medium/Low
func TestParseInvalidGrowthTier(t *testing.T) {
	raw := `{"roadmap": [
		{"title": "A", "skills": ["s1", "s2", "s3", "s4", "s5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "Explosive", "reasoning": "r"},
		{"title": "B", "skills": ["s1", "s2", "s3", "s4", "s5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "High", "reasoning": "r"},
		{"title": "C", "skills": ["s1", "s2", "s3", "s4", "s5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "Low", "reasoning": "r"}
	]}`
	_, err := Parse(raw, types.VariantCareer)
	assert.ErrorIs(t, err, ErrSchemaFailure)
}

// TestParseSkillCountBounds 技能数量必须落在各版本的边界内
func TestParseSkillCountBounds(t *testing.T) {
	// 学术版：6 个技能超出 3-5 的上限
	academicTooMany := `{"roadmap": [
		{"title": "A", "skills": ["1", "2", "3", "4", "5", "6"], "reasoning": "r"},
		{"title": "B", "skills": ["1", "2", "3"], "reasoning": "r"},
		{"title": "C", "skills": ["1", "2", "3"], "reasoning": "r"}
	]}`
	_, err := Parse(academicTooMany, types.VariantAcademic)
	assert.ErrorIs(t, err, ErrSchemaFailure)

	// 职业版：4 个技能低于 5-7 的下限
	careerTooFew := `{"roadmap": [
		{"title": "A", "skills": ["1", "2", "3", "4"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "High", "reasoning": "r"},
		{"title": "B", "skills": ["1", "2", "3", "4", "5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "High", "reasoning": "r"},
		{"title": "C", "skills": ["1", "2", "3", "4", "5"], "courses_to_find": ["c"], "salary": "10 LPA", "growth": "Low", "reasoning": "r"}
	]}`
	_, err = Parse(careerTooFew, types.VariantCareer)
	assert.ErrorIs(t, err, ErrSchemaFailure)
}

// TestFailurePayload 两类失败映射到各自的统一文案
func TestFailurePayload(t *testing.T) {
	_, parseErr := Parse("no json here", types.VariantAcademic)
	payload := FailurePayload(parseErr)
	assert.Equal(t, constants.RoadmapParseFailureMessage, payload.Error)

	_, schemaErr := Parse(`{"plan": []}`, types.VariantAcademic)
	payload = FailurePayload(schemaErr)
	assert.Equal(t, constants.RoadmapSchemaFailureMessage, payload.Error)
}
