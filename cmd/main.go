package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/api/router"
	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/counselor"
	"career-agent-go/internal/course"
	"career-agent-go/internal/parser"
	"career-agent-go/internal/retriever"
	"career-agent-go/internal/roadmap"
	"career-agent-go/internal/storage"
	"career-agent-go/pkg/ratelimit"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/cloudwego/eino/components/model"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/pflag"

	appCoreLogger "career-agent-go/internal/logger"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "career-agent-go" //nolint:gochecknoglobals
)

// @title Career Counseling Agent API
// @version 1.0
// @description Conversational career counseling service with resume-grounded roadmap generation.
// @BasePath /api/v1
func main() {
	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	chatModelName := cfg.GetModelForTask("chat")
	rawChatModel, err := agent.NewAliyunQwenChatModel(
		cfg.Aliyun.APIKey,
		chatModelName,
		cfg.Aliyun.APIURL,
		agent.WithTemperature(cfg.Counselor.ChatTemperature),
		agent.WithMaxTokens(cfg.Counselor.MaxTokens),
	)
	if err != nil {
		glog.Fatalf("初始化阿里云聊天模型失败: %v", err)
	}
	// 所有模型调用都经过限流代理，避免触发服务端QPM限制
	llmChatModel := ratelimit.NewLLMWithRateLimit(rawChatModel, chatModelName, cfg.ModelQPMLimits, 0, 3, time.Second)
	glog.Infof("聊天模型初始化成功: %s (带限流)", chatModelName)

	// 路线图生成单独建一个模型句柄，用更低的温度换取稳定的JSON输出
	roadmapModelName := cfg.GetModelForTask("roadmap")
	rawRoadmapModel, err := agent.NewAliyunQwenChatModel(
		cfg.Aliyun.APIKey,
		roadmapModelName,
		cfg.Aliyun.APIURL,
		agent.WithTemperature(cfg.Counselor.RoadmapTemperature),
		agent.WithMaxTokens(cfg.Counselor.MaxTokens),
	)
	if err != nil {
		glog.Fatalf("初始化路线图模型失败: %v", err)
	}
	llmRoadmapModel := ratelimit.NewLLMWithRateLimit(rawRoadmapModel, roadmapModelName, cfg.ModelQPMLimits, 0, 3, time.Second)
	glog.Infof("路线图模型初始化成功: %s (带限流)", roadmapModelName)

	contextRetriever, err := buildRetriever(cfg, storageManager, llmChatModel)
	if err != nil {
		glog.Fatalf("初始化简历检索器失败: %v", err)
	}
	glog.Infof("简历检索器初始化成功, 策略: %s", cfg.Retriever.Strategy)

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(appCoreLogger.Component("pdf-extractor")))
	if err != nil {
		glog.Fatalf("创建PDF提取器失败: %v", err)
	}
	glog.Info("PDF提取器初始化成功")

	courseClient, err := course.NewClient(cfg.CourseSearch)
	if err != nil {
		glog.Fatalf("初始化课程搜索客户端失败: %v", err)
	}
	courseEnricher := roadmap.NewEnricher(courseClient)
	glog.Info("课程搜索客户端初始化成功")

	resumeResolver := counselor.NewCachedResumeResolver(storageManager.MinIO, pdfExtractor, storageManager.Redis.Client)

	counselorModule := counselor.New(
		counselor.Components{
			LLMModel:       llmChatModel,
			RoadmapModel:   llmRoadmapModel,
			Retriever:      contextRetriever,
			Enricher:       courseEnricher,
			ResumeResolver: resumeResolver,
		},
		counselor.Settings{
			ChatTopK:       cfg.Retriever.ChatTopK,
			RoadmapTopK:    cfg.Retriever.RoadmapTopK,
			ChatTimeout:    config.GetDuration(cfg.Counselor.ChatTimeout, constants.DefaultLLMTimeout),
			RoadmapTimeout: config.GetDuration(cfg.Counselor.RoadmapTimeout, constants.DefaultLLMTimeout),
		},
	)
	glog.Info("咨询编排器初始化成功")

	chatMemory, err := agent.NewRedisChatMemory(storageManager.Redis.Client, constants.SessionHistoryTTL)
	if err != nil {
		glog.Fatalf("初始化会话记忆失败: %v", err)
	}

	sessionHandler := handler.NewSessionHandler(cfg, storageManager, counselorModule, chatMemory, pdfExtractor)
	glog.Info("SessionHandler初始化成功")

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, sessionHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("%s v%s 启动中，监听地址: %s", serviceName, version, cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildRetriever 按配置选择简历上下文检索策略。
// index 策略需要向量化组件；summary 策略复用聊天模型并带Redis缓存。
func buildRetriever(cfg *config.Config, storageManager *storage.Storage, llmChatModel model.ToolCallingChatModel) (retriever.ContextRetriever, error) {
	switch cfg.Retriever.Strategy {
	case "summary":
		return retriever.NewSummaryRetriever(
			llmChatModel,
			cfg.Retriever.SummaryInputLimit,
			retriever.WithSummaryCache(storageManager.Redis.Client),
		), nil
	default: // "index"
		chunker, err := parser.NewOverlapChunker(cfg.Retriever.ChunkSize, cfg.Retriever.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
		if err != nil {
			return nil, err
		}
		return retriever.NewIndexRetriever(chunker, embedder), nil
	}
}

func initLogger() {
	logFilePath := "logs/app.log"
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatalf("无法创建日志目录: %v", err)
	}
	fileWriter, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("无法打开日志文件 %s: %v", logFilePath, err)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	multiWriter := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	level := zerolog.DebugLevel
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = "15:04:05"

	logger := zerolog.New(multiWriter).With().Timestamp().Caller().Logger()

	appCoreLogger.Logger = logger
	zlog.Logger = logger

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)

	glog.SetLogger(hertzCompatibleLogger)
	glog.SetLevel(glog.LevelDebug)

	log.Println("Logger initialized with Zerolog (appCoreLogger & glog via adapter), writing to console and file:", logFilePath)
}
