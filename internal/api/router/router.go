package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"career-agent-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, sessionHandler *handler.SessionHandler) {
	api := h.Group("/api/v1")

	// 提交问卷，创建咨询会话
	api.POST("/sessions", func(c context.Context, ctx *app.RequestContext) {
		var req handler.CreateSessionRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
			return
		}

		resp, err := sessionHandler.HandleCreateSession(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 发送一条对话消息
	api.POST("/sessions/:session_id/messages", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		var req struct {
			Message string `json:"message"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
			return
		}

		resp, err := sessionHandler.HandleSendMessage(c, sessionID, req.Message)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 上传简历文件
	api.POST("/sessions/:session_id/resume", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		resp, err := sessionHandler.HandleResumeUpload(c, sessionID, fileHeader.Filename, file)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 获取会话历史
	api.GET("/sessions/:session_id/history", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		resp, err := sessionHandler.HandleGetHistory(c, sessionID)
		if err != nil {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	// 生成路线图
	api.POST("/sessions/:session_id/roadmap", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		result, payload, err := sessionHandler.HandleGetRoadmap(c, sessionID)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		if payload != nil {
			// 模型输出不可用时返回统一错误负载
			ctx.JSON(consts.StatusUnprocessableEntity, payload)
			return
		}
		ctx.JSON(consts.StatusOK, result)
	})

	// 查询最近一次生成的路线图
	api.GET("/sessions/:session_id/roadmap", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")

		result, err := sessionHandler.HandleGetLatestRoadmap(c, sessionID)
		if err != nil {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, result)
	})

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
