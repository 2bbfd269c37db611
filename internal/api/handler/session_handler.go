package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/counselor"
	"career-agent-go/internal/logger"
	storage2 "career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"
	"career-agent-go/internal/types"
	"career-agent-go/pkg/utils"
)

// SessionHandler 会话处理器，负责协调咨询会话的完整流程
type SessionHandler struct {
	cfg       *config.Config
	storage   *storage2.Storage
	counselor *counselor.Counselor
	memory    agent.ChatMemory
	extractor counselor.TextExtractor
}

// NewSessionHandler 创建一个新的会话处理器
func NewSessionHandler(
	cfg *config.Config,
	storage *storage2.Storage,
	counselorModule *counselor.Counselor,
	memory agent.ChatMemory,
	extractor counselor.TextExtractor,
) *SessionHandler {
	return &SessionHandler{
		cfg:       cfg,
		storage:   storage,
		counselor: counselorModule,
		memory:    memory,
		extractor: extractor,
	}
}

// CreateSessionRequest 问卷提交请求
type CreateSessionRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Status string `json:"status"`
}

// CreateSessionResponse 会话创建响应
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting"`
}

// ChatResponse 对话回合响应
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SessionID string `json:"session_id"`
	ObjectKey string `json:"object_key"`
	Status    string `json:"status"`
}

// HistoryResponse 会话历史响应
type HistoryResponse struct {
	SessionID string                   `json:"session_id"`
	History   []types.ConversationTurn `json:"history"`
}

// HandleCreateSession 处理问卷提交，创建会话并返回开场白
func (h *SessionHandler) HandleCreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}
	status := types.UserStatus(req.Status)

	record := &models.CounselSession{
		Name:   strings.TrimSpace(req.Name),
		Status: string(status),
		Age:    req.Age,
	}
	if err := h.storage.MySQL.CreateSession(ctx, record); err != nil {
		return nil, fmt.Errorf("创建会话失败: %w", err)
	}

	greeting := composeGreeting(record.Name)
	firstTurn := types.ConversationTurn{
		Role:    types.RoleAssistant,
		Content: greeting,
		Ordinal: 0,
	}
	if err := h.appendTurns(ctx, record.SessionID, []types.ConversationTurn{firstTurn}); err != nil {
		return nil, err
	}

	logger.Info().
		Str("session_id", record.SessionID).
		Str("status", string(status)).
		Msg("会话创建成功")

	return &CreateSessionResponse{
		SessionID: record.SessionID,
		Greeting:  greeting,
	}, nil
}

// HandleSendMessage 处理一个用户对话回合
func (h *SessionHandler) HandleSendMessage(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("消息内容不能为空")
	}

	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := h.counselor.HandleChatTurn(ctx, session, message)
	if err != nil {
		return nil, err
	}

	// loadSession 已将历史与MySQL对齐，长度即下一个可用序号
	if err := h.appendTurns(ctx, sessionID, buildTurnPair(len(session.History), message, reply)); err != nil {
		return nil, err
	}

	return &ChatResponse{SessionID: sessionID, Reply: reply}, nil
}

// HandleResumeUpload 处理简历上传。
// 提取失败不阻断流程，会话将按无简历状态继续。
func (h *SessionHandler) HandleResumeUpload(ctx context.Context, sessionID, filename string, reader io.Reader) (*ResumeUploadResponse, error) {
	if _, err := h.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("上传文件为空")
	}
	fileMD5Hex := utils.CalculateMD5(fileBytes)

	// 先作废旧简历的文本缓存。之后即使新文件提取失败，
	// 会话也会按无简历处理，而不是继续命中上一份简历的文本
	if h.storage.Redis != nil {
		if err := h.storage.Redis.InvalidateResumeText(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("作废旧简历文本缓存失败: %w", err)
		}
	}

	// 重复上传同一份文件只记录，不拒绝
	if h.storage.Redis != nil {
		if exists, err := h.storage.Redis.CheckAndAddResumeMD5(ctx, fileMD5Hex); err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("检查文件MD5重复性失败")
		} else if exists {
			logger.Info().Str("md5", fileMD5Hex).Str("session_id", sessionID).Msg("检测到重复的简历文件")
		}
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	objectKey, _, err := h.storage.MinIO.UploadResumeFile(ctx, sessionID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	if err := h.storage.MySQL.UpdateSessionResume(ctx, sessionID, objectKey, fileMD5Hex); err != nil {
		return nil, fmt.Errorf("记录简历对象键失败: %w", err)
	}

	// 立即提取文本并缓存，后续检索可直接命中
	status := "UPLOADED"
	text, _, err := h.extractor.ExtractTextFromBytes(ctx, fileBytes, objectKey, nil)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("object_key", objectKey).
			Msg("简历文本提取失败，会话按无简历状态继续")
		status = "UPLOADED_TEXT_UNAVAILABLE"
	} else if h.storage.Redis != nil {
		if cacheErr := h.storage.Redis.SetResumeText(ctx, sessionID, text); cacheErr != nil {
			logger.Warn().Err(cacheErr).Str("session_id", sessionID).Msg("缓存简历文本失败")
		}
	}

	return &ResumeUploadResponse{
		SessionID: sessionID,
		ObjectKey: objectKey,
		Status:    status,
	}, nil
}

// HandleGetHistory 返回会话的完整历史
func (h *SessionHandler) HandleGetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := session.History
	if history == nil {
		history = []types.ConversationTurn{}
	}
	return &HistoryResponse{SessionID: sessionID, History: history}, nil
}

// HandleGetRoadmap 处理路线图生成请求。
// 成功时返回路线图并持久化快照；解析/校验失败时返回统一错误负载。
func (h *SessionHandler) HandleGetRoadmap(ctx context.Context, sessionID string) (*types.Roadmap, *types.ErrorPayload, error) {
	session, err := h.loadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	// 同一会话的并发生成请求只放行一个
	var lockValue string
	if h.storage.Redis != nil {
		lockValue, err = h.storage.Redis.AcquireRoadmapLock(ctx, sessionID)
		if err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("获取路线图生成锁失败，继续生成")
		} else if lockValue == "" {
			return nil, nil, fmt.Errorf("路线图正在生成中，请稍后重试")
		}
		if lockValue != "" {
			defer func() {
				if _, releaseErr := h.storage.Redis.ReleaseRoadmapLock(ctx, sessionID, lockValue); releaseErr != nil {
					logger.Warn().Err(releaseErr).Str("session_id", sessionID).Msg("释放路线图生成锁失败")
				}
			}()
		}
	}

	result, payload, err := h.counselor.HandleRoadmapRequest(ctx, session)
	if err != nil || payload != nil {
		return nil, payload, err
	}

	h.persistRoadmapSnapshot(ctx, session, result)
	return result, nil, nil
}

// HandleGetLatestRoadmap 返回该会话最近一次生成的路线图快照。
// 先查Redis缓存，未命中时回源MySQL。
func (h *SessionHandler) HandleGetLatestRoadmap(ctx context.Context, sessionID string) (*types.Roadmap, error) {
	if _, err := h.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	if h.storage.Redis != nil {
		if cached, err := h.storage.Redis.GetCachedRoadmapSnapshot(ctx, sessionID); err == nil && cached != "" {
			var result types.Roadmap
			if unmarshalErr := json.Unmarshal([]byte(cached), &result); unmarshalErr == nil {
				return &result, nil
			}
			logger.Warn().Str("session_id", sessionID).Msg("路线图快照缓存内容无效，回源MySQL")
		}
	}

	snapshot, err := h.storage.MySQL.GetLatestRoadmapSnapshot(ctx, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("该会话尚未生成路线图: %s", sessionID)
		}
		return nil, fmt.Errorf("查询路线图快照失败: %w", err)
	}

	var result types.Roadmap
	if err := json.Unmarshal(snapshot.RoadmapJSON, &result); err != nil {
		return nil, fmt.Errorf("解析路线图快照失败: %w", err)
	}
	return &result, nil
}

// persistRoadmapSnapshot 保存路线图快照到MySQL和Redis，失败仅记录
func (h *SessionHandler) persistRoadmapSnapshot(ctx context.Context, session *types.Session, result *types.Roadmap) {
	roadmapJSON, err := json.Marshal(result)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("序列化路线图失败，跳过快照")
		return
	}

	snapshot := &models.RoadmapSnapshot{
		SessionID:   session.SessionID,
		Variant:     string(types.VariantForStatus(session.Status)),
		RoadmapJSON: models.StringToJSON(string(roadmapJSON)),
		GeneratedAt: time.Now(),
	}
	if err := h.storage.MySQL.SaveRoadmapSnapshot(ctx, snapshot); err != nil {
		logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("保存路线图快照到MySQL失败")
	}

	if h.storage.Redis != nil {
		if err := h.storage.Redis.CacheRoadmapSnapshot(ctx, session.SessionID, string(roadmapJSON)); err != nil {
			logger.Warn().Err(err).Str("session_id", session.SessionID).Msg("缓存路线图快照失败")
		}
	}
}

// loadSession 从MySQL装载会话和历史，历史优先走Redis缓存
func (h *SessionHandler) loadSession(ctx context.Context, sessionID string) (*types.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id不能为空")
	}

	record, err := h.storage.MySQL.GetSessionByID(ctx, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("会话不存在: %s", sessionID)
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}

	history, err := h.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &types.Session{
		SessionID:       record.SessionID,
		Name:            record.Name,
		Status:          types.UserStatus(record.Status),
		Age:             record.Age,
		ResumeObjectKey: record.ResumeObjectKey,
		History:         history,
		CreatedAt:       record.CreatedAt,
	}, nil
}

// loadHistory 返回会话历史。Redis缓存只有在长度与MySQL的最大序号
// 对得上时才可信，对不上（缓存写入失败过、TTL过期后部分重建）就回源
// MySQL并重建缓存，否则后续追加会按过短的历史计算序号。
func (h *SessionHandler) loadHistory(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	var cached []types.ConversationTurn
	if h.memory != nil {
		turns, err := h.memory.GetHistory(ctx, sessionID)
		if err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("读取会话历史缓存失败，回源MySQL")
		} else {
			cached = turns
		}
	}

	maxOrdinal, err := h.storage.MySQL.MaxMessageOrdinal(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if historyInSync(cached, maxOrdinal) {
		return cached, nil
	}

	messages, err := h.storage.MySQL.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("查询会话历史失败: %w", err)
	}

	turns := make([]types.ConversationTurn, len(messages))
	for i, msg := range messages {
		turns[i] = types.ConversationTurn{
			Role:    types.TurnRole(msg.Role),
			Content: msg.Content,
			Ordinal: msg.Ordinal,
		}
	}

	// 缓存与MySQL不一致时整体重建，失败只记录
	if h.memory != nil && len(cached) != len(turns) {
		if err := h.memory.ClearHistory(ctx, sessionID); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("清除过期会话历史缓存失败")
		} else if len(turns) > 0 {
			if err := h.memory.AddTurns(ctx, sessionID, turns); err != nil {
				logger.Warn().Err(err).Str("session_id", sessionID).Msg("重建会话历史缓存失败")
			}
		}
	}
	return turns, nil
}

// historyInSync 判断缓存的历史是否与持久存储对齐：
// 序号从0连续编号，长度必须恰好是最大序号加一
func historyInSync(cached []types.ConversationTurn, maxOrdinal int) bool {
	return cached != nil && len(cached) == maxOrdinal+1
}

// buildTurnPair 构造一个用户回合及其回复，序号紧接在已有历史之后
func buildTurnPair(base int, message, reply string) []types.ConversationTurn {
	return []types.ConversationTurn{
		{Role: types.RoleUser, Content: message, Ordinal: base},
		{Role: types.RoleAssistant, Content: reply, Ordinal: base + 1},
	}
}

// appendTurns 将消息写入MySQL并同步到Redis会话缓存
func (h *SessionHandler) appendTurns(ctx context.Context, sessionID string, turns []types.ConversationTurn) error {
	messages := make([]models.ConversationMessage, len(turns))
	for i, turn := range turns {
		messages[i] = models.ConversationMessage{
			SessionID: sessionID,
			Ordinal:   turn.Ordinal,
			Role:      string(turn.Role),
			Content:   turn.Content,
		}
	}
	if err := h.storage.MySQL.AppendMessages(ctx, messages); err != nil {
		return err
	}

	// 缓存写入失败不影响主流程，下次读取会回源MySQL
	if h.memory != nil {
		if err := h.memory.AddTurns(ctx, sessionID, turns); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("同步会话历史到缓存失败")
		}
	}
	return nil
}

// validateCreateRequest 校验问卷字段
func validateCreateRequest(req *CreateSessionRequest) error {
	if req == nil {
		return fmt.Errorf("请求不能为空")
	}
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < constants.MinNameLength {
		return fmt.Errorf("姓名至少需要%d个字符", constants.MinNameLength)
	}
	if req.Age < constants.MinAge || req.Age > constants.MaxAge {
		return fmt.Errorf("年龄必须在%d到%d之间", constants.MinAge, constants.MaxAge)
	}
	if !types.UserStatus(req.Status).Valid() {
		return fmt.Errorf("未知的用户身份: %s", req.Status)
	}
	return nil
}

// composeGreeting 生成会话开场白
func composeGreeting(name string) string {
	return fmt.Sprintf("Hi %s! I'm Disha, your career counselor. I'm really glad you're here. To start off, tell me a bit about yourself - what do you enjoy doing, and what's on your mind about your future?", name)
}
