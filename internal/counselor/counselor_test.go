package counselor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/roadmap"
	"career-agent-go/internal/types"
)

// staticResolver 返回固定的简历文本
type staticResolver struct {
	text string
}

func (s *staticResolver) ResolveText(ctx context.Context, session *types.Session) string {
	return s.text
}

// recordingRetriever 记录收到的查询并返回固定上下文，空简历时返回哨兵
type recordingRetriever struct {
	context string
	queries []string
	topKs   []int
}

func (r *recordingRetriever) RetrieveContext(ctx context.Context, resumeText, query string, topK int) string {
	r.queries = append(r.queries, query)
	r.topKs = append(r.topKs, topK)
	if resumeText == "" {
		return constants.NoResumeContext
	}
	return r.context
}

// fixedSearcher 所有查询都返回同一个课程引用
type fixedSearcher struct {
	refs  []types.CourseRef
	err   error
	calls int
}

func (f *fixedSearcher) Search(ctx context.Context, query string, maxResults int) ([]types.CourseRef, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.refs, nil
}

func testSession(status types.UserStatus) *types.Session {
	return &types.Session{
		SessionID: "sess-1",
		Name:      "Priya",
		Status:    status,
		Age:       22,
		History: []types.ConversationTurn{
			{Role: types.RoleAssistant, Content: "Welcome Priya!", Ordinal: 0},
			{Role: types.RoleUser, Content: "I like building things.", Ordinal: 1},
		},
	}
}

func newTestCounselor(mock *agent.MockChatClient, resolver ResumeTextResolver, ret *recordingRetriever, searcher *fixedSearcher) *Counselor {
	return New(Components{
		LLMModel:       mock,
		Retriever:      ret,
		Enricher:       roadmap.NewEnricher(searcher),
		ResumeResolver: resolver,
	}, Settings{
		ChatTopK:       2,
		RoadmapTopK:    3,
		ChatTimeout:    5 * time.Second,
		RoadmapTimeout: 5 * time.Second,
	})
}

const careerRoadmapOutput = "```json\n" + `{
  "roadmap": [
    {"title": "Frontend Engineer", "skills": ["JS", "React", "CSS", "HTML", "Testing"], "courses_to_find": ["React developer skills"], "salary": "8-14 LPA", "growth": "High", "reasoning": "Strong frontend project experience."},
    {"title": "Fullstack Engineer", "skills": ["JS", "Go", "SQL", "React", "Docker"], "courses_to_find": ["Fullstack development"], "salary": "9-16 LPA", "growth": "High", "reasoning": "Breadth across the stack."},
    {"title": "UI Engineer", "skills": ["CSS", "Design systems", "React", "Accessibility", "Animation"], "courses_to_find": ["UI engineering"], "salary": "7-12 LPA", "growth": "Medium", "reasoning": "Strong eye for interface detail."}
  ]
}` + "\n```"

// TestHandleChatTurn 对话回合：按最新消息检索、返回模型原样回复
func TestHandleChatTurn(t *testing.T) {
	mock := agent.NewMockChatClient("That sounds exciting! What do you enjoy building most?", nil)
	ret := &recordingRetriever{context: "resume context"}
	c := newTestCounselor(mock, &staticResolver{text: "resume text"}, ret, &fixedSearcher{})

	reply, err := c.HandleChatTurn(context.Background(), testSession(types.StatusCollegeStudent), "I built a web app")
	require.NoError(t, err)
	assert.Equal(t, "That sounds exciting! What do you enjoy building most?", reply)

	// 检索查询是最新消息，topK 用对话配置
	require.Len(t, ret.queries, 1)
	assert.Equal(t, "I built a web app", ret.queries[0])
	assert.Equal(t, 2, ret.topKs[0])

	// 提示词包含检索到的上下文和历史
	promptText := mock.LastCall()[0].Content
	assert.Contains(t, promptText, "resume context")
	assert.Contains(t, promptText, "Welcome Priya!")
	assert.Contains(t, promptText, "I built a web app")
}

// TestHandleChatTurnNoResume 简历缺失（含损坏的PDF）不影响回合，提示词带"无简历"哨兵
func TestHandleChatTurnNoResume(t *testing.T) {
	mock := agent.NewMockChatClient("Tell me more about your interests!", nil)
	ret := &recordingRetriever{}
	c := newTestCounselor(mock, &staticResolver{text: ""}, ret, &fixedSearcher{})

	reply, err := c.HandleChatTurn(context.Background(), testSession(types.StatusPassout), "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.Contains(t, mock.LastCall()[0].Content, constants.NoResumeContext)
}

// TestHandleChatTurnModelFailure 模型调用失败作为错误向上传播
func TestHandleChatTurnModelFailure(t *testing.T) {
	mock := agent.NewMockChatClient("", errors.New("provider unreachable"))
	c := newTestCounselor(mock, &staticResolver{}, &recordingRetriever{}, &fixedSearcher{})

	_, err := c.HandleChatTurn(context.Background(), testSession(types.StatusPassout), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelInvocationFailed)
}

// TestHandleChatTurnInvalidStatus 未知身份是会话校验错误
func TestHandleChatTurnInvalidStatus(t *testing.T) {
	c := newTestCounselor(agent.NewMockChatClient("x", nil), &staticResolver{}, &recordingRetriever{}, &fixedSearcher{})

	session := testSession(types.StatusPassout)
	session.Status = "alien"
	_, err := c.HandleChatTurn(context.Background(), session, "hi")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

// TestHandleRoadmapRequestCareer 职业版全流程：检索用完整历史、解析、富化
func TestHandleRoadmapRequestCareer(t *testing.T) {
	mock := agent.NewMockChatClient(careerRoadmapOutput, nil)
	ret := &recordingRetriever{context: "resume context"}
	searcher := &fixedSearcher{refs: []types.CourseRef{
		{Title: "React - The Complete Guide", URL: "https://example.com/react"},
	}}
	c := newTestCounselor(mock, &staticResolver{text: "resume"}, ret, searcher)

	session := testSession(types.StatusCollegeStudent)
	result, payload, err := c.HandleRoadmapRequest(context.Background(), session)
	require.NoError(t, err)
	require.Nil(t, payload)
	require.NotNil(t, result)
	require.Len(t, result.Records, 3)

	// 检索查询是完整会话历史，topK 用路线图配置
	require.Len(t, ret.queries, 1)
	assert.Contains(t, ret.queries[0], "Welcome Priya!")
	assert.Equal(t, 3, ret.topKs[0])

	// 富化完成：关键词字段被移除，课程是验证过的引用
	for _, record := range result.Records {
		assert.Nil(t, record.CoursesToFind)
		require.NotNil(t, record.Courses)
		require.Len(t, *record.Courses, 1)
		assert.Equal(t, "React - The Complete Guide", (*record.Courses)[0].Title)
	}
	assert.Equal(t, 3, searcher.calls)
}

// TestHandleRoadmapRequestUsesDedicatedModel 路线图走专用模型句柄，不触碰对话模型
func TestHandleRoadmapRequestUsesDedicatedModel(t *testing.T) {
	chatMock := agent.NewMockChatClient("chat reply", nil)
	roadmapMock := agent.NewMockChatClient(careerRoadmapOutput, nil)
	searcher := &fixedSearcher{refs: []types.CourseRef{{Title: "Course", URL: "https://example.com/c"}}}
	c := New(Components{
		LLMModel:       chatMock,
		RoadmapModel:   roadmapMock,
		Retriever:      &recordingRetriever{},
		Enricher:       roadmap.NewEnricher(searcher),
		ResumeResolver: &staticResolver{},
	}, Settings{})

	result, payload, err := c.HandleRoadmapRequest(context.Background(), testSession(types.StatusPassout))
	require.NoError(t, err)
	require.Nil(t, payload)
	require.Len(t, result.Records, 3)
	assert.Empty(t, chatMock.ReceivedCalls)
	assert.Len(t, roadmapMock.ReceivedCalls, 1)
}

// TestHandleRoadmapRequestAcademic 学术版：无课程字段，不触发任何搜索
func TestHandleRoadmapRequestAcademic(t *testing.T) {
	academicOutput := `{
  "roadmap": [
    {"title": "Computer Science", "skills": ["Math", "Logic", "Programming"], "reasoning": "Analytical strengths."},
    {"title": "Design", "skills": ["Sketching", "Color", "Layout"], "reasoning": "Creative interests."},
    {"title": "Physics", "skills": ["Math", "Experiments", "Modeling"], "reasoning": "Curiosity about mechanisms."}
  ]
}`
	mock := agent.NewMockChatClient(academicOutput, nil)
	searcher := &fixedSearcher{}
	c := newTestCounselor(mock, &staticResolver{}, &recordingRetriever{}, searcher)

	result, payload, err := c.HandleRoadmapRequest(context.Background(), testSession(types.StatusSchoolStudent))
	require.NoError(t, err)
	require.Nil(t, payload)
	require.Len(t, result.Records, 3)
	assert.Zero(t, searcher.calls)
}

// TestHandleRoadmapRequestParseFailure 带尾随文本的输出折叠为统一错误负载
func TestHandleRoadmapRequestParseFailure(t *testing.T) {
	mock := agent.NewMockChatClient(`Sure! Here is the plan: {"roadmap": []}extra trailing text`, nil)
	c := newTestCounselor(mock, &staticResolver{}, &recordingRetriever{}, &fixedSearcher{})

	result, payload, err := c.HandleRoadmapRequest(context.Background(), testSession(types.StatusPassout))
	require.NoError(t, err)
	assert.Nil(t, result)
	require.NotNil(t, payload)
	assert.Equal(t, constants.RoadmapParseFailureMessage, payload.Error)
}

// TestHandleRoadmapRequestSchemaFailure 结构非法折叠为统一错误负载
func TestHandleRoadmapRequestSchemaFailure(t *testing.T) {
	mock := agent.NewMockChatClient(`{"roadmap": [{"title": "only one", "skills": ["x"], "reasoning": "r"}]}`, nil)
	c := newTestCounselor(mock, &staticResolver{}, &recordingRetriever{}, &fixedSearcher{})

	result, payload, err := c.HandleRoadmapRequest(context.Background(), testSession(types.StatusSchoolStudent))
	require.NoError(t, err)
	assert.Nil(t, result)
	require.NotNil(t, payload)
	assert.Equal(t, constants.RoadmapSchemaFailureMessage, payload.Error)
}

// TestHandleRoadmapRequestModelFailure 模型调用失败作为错误向上传播
func TestHandleRoadmapRequestModelFailure(t *testing.T) {
	mock := agent.NewMockChatClient("", errors.New("timeout"))
	c := newTestCounselor(mock, &staticResolver{}, &recordingRetriever{}, &fixedSearcher{})

	_, payload, err := c.HandleRoadmapRequest(context.Background(), testSession(types.StatusPassout))
	require.Error(t, err)
	assert.Nil(t, payload)
	assert.ErrorIs(t, err, ErrModelInvocationFailed)
}
