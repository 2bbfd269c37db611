package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`          // 最大重试次数
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"` // 最小重试间隔(毫秒)
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"` // 最大重试间隔(毫秒)
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
}

// Config 应用程序配置
type Config struct {
	Aliyun struct {
		APIKey     string            `yaml:"api_key"`
		APIURL     string            `yaml:"api_url"`
		Model      string            `yaml:"model"`
		TaskModels map[string]string `yaml:"task_models"` // 任务专用模型
		Embedding  EmbeddingConfig   `yaml:"embedding"`   // Embedding specific config
	} `yaml:"aliyun"`

	// 简历上下文检索配置
	Retriever RetrieverConfig `yaml:"retriever"`

	// 课程搜索服务配置
	CourseSearch CourseSearchConfig `yaml:"course_search"`

	// 咨询对话配置
	Counselor CounselorConfig `yaml:"counselor"`

	// MinIO配置
	MinIO MinIOConfig `yaml:"minio"`

	// MySQL配置
	MySQL MySQLConfig `yaml:"mysql"`

	// Redis配置
	Redis RedisConfig `yaml:"redis"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`

	// 模型QPM限制配置
	ModelQPMLimits map[string]int `yaml:"model_qpm_limits"`
}

// EmbeddingConfig Aliyun Embedding specific configuration
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
}

// RetrieverConfig 简历上下文检索配置。
// Strategy 取值 "index"（向量相似度）或 "summary"（LLM摘要）。
type RetrieverConfig struct {
	Strategy          string `yaml:"strategy"`
	ChunkSize         int    `yaml:"chunk_size"`          // 分块长度(字符)
	ChunkOverlap      int    `yaml:"chunk_overlap"`       // 相邻分块重叠(字符)
	ChatTopK          int    `yaml:"chat_top_k"`          // 对话检索返回的分块数
	RoadmapTopK       int    `yaml:"roadmap_top_k"`       // 路线图检索返回的分块数
	SummaryInputLimit int    `yaml:"summary_input_limit"` // 摘要策略送入模型的文本上限(字符)
}

// CourseSearchConfig 课程搜索服务配置
type CourseSearchConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 单次搜索超时(秒)
	MaxResults     int    `yaml:"max_results"`     // 每个关键词保留的课程数
}

// CounselorConfig 咨询对话与路线图生成的模型参数
type CounselorConfig struct {
	ChatTemperature    float64 `yaml:"chat_temperature"`
	RoadmapTemperature float64 `yaml:"roadmap_temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	ChatTimeout        string  `yaml:"chat_timeout"`    // 例如 "60s"
	RoadmapTimeout     string  `yaml:"roadmap_timeout"` // 例如 "90s"
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	ResumeBucket    string `yaml:"resumeBucket"` // 原始简历存储桶
	Location        string `yaml:"location"`     // 可选，存储桶区域
	// 对象生命周期管理
	ResumeExpireDays int `yaml:"resume_expire_days"` // 原始简历过期天数
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int `yaml:"max_open_conns"` // 最大打开连接数
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"` // 连接超时(秒)
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`    // 读取超时(秒)
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`   // 写入超时(秒)
	// 日志设置
	LogLevel int `yaml:"log_level"` // 日志级别(1-4)
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	// 如果未指定配置文件路径，则尝试在默认位置查找
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			"../../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".career-agent", "config.yaml"),
		}

		// 可执行文件所在目录及其上级目录
		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths, filepath.Join(execDir, "config.yaml"))
			searchPaths = append(searchPaths, filepath.Join(execDir, "..", "config.yaml"))
		}

		// 测试环境下额外搜索可能的项目根目录
		workDir, err := os.Getwd()
		if err == nil && isTestEnvironment(workDir) {
			projectRoots := []string{
				workDir,
				filepath.Join(workDir, ".."),
				filepath.Join(workDir, "..", ".."),
				filepath.Join(workDir, "..", "..", ".."),
			}
			for _, root := range projectRoots {
				searchPaths = append(searchPaths, filepath.Join(root, "config.yaml"))
			}
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		// 如果仍找不到配置文件，测试环境返回默认配置而不抛出错误
		if configPath == "" {
			if isTestEnvironment("") {
				return createDefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	// 检查文件是否存在
	if _, err := os.Stat(configPath); err != nil {
		if isTestEnvironment("") {
			return createDefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置文件
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}
	if envURL := os.Getenv("ALIYUN_API_URL"); envURL != "" {
		config.Aliyun.APIURL = envURL
	}
	if envModel := os.Getenv("ALIYUN_MODEL"); envModel != "" {
		config.Aliyun.Model = envModel
	}
	if envKey := os.Getenv("COURSE_SEARCH_API_KEY"); envKey != "" {
		config.CourseSearch.APIKey = envKey
	}

	applyDefaults(&config)

	return &config, nil
}

// isTestEnvironment 粗略判断当前是否运行在 go test 下
func isTestEnvironment(workDir string) bool {
	if workDir != "" && strings.Contains(workDir, "tmp") && strings.Contains(workDir, "test") {
		return true
	}
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}

// applyDefaults 为未填写的配置项填入默认值
func applyDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Retriever.Strategy == "" {
		config.Retriever.Strategy = "index"
	}
	if config.Retriever.ChunkSize == 0 {
		config.Retriever.ChunkSize = 1000
	}
	if config.Retriever.ChunkOverlap == 0 {
		config.Retriever.ChunkOverlap = 200
	}
	if config.Retriever.ChatTopK == 0 {
		config.Retriever.ChatTopK = 2
	}
	if config.Retriever.RoadmapTopK == 0 {
		config.Retriever.RoadmapTopK = 3
	}
	if config.Retriever.SummaryInputLimit == 0 {
		config.Retriever.SummaryInputLimit = 4000
	}
	if config.CourseSearch.TimeoutSeconds == 0 {
		config.CourseSearch.TimeoutSeconds = 10
	}
	if config.CourseSearch.MaxResults == 0 {
		config.CourseSearch.MaxResults = 3
	}
	if config.Counselor.ChatTimeout == "" {
		config.Counselor.ChatTimeout = "60s"
	}
	if config.Counselor.RoadmapTimeout == "" {
		config.Counselor.RoadmapTimeout = "90s"
	}
	if config.Counselor.MaxTokens == 0 {
		config.Counselor.MaxTokens = 2048
	}
	if config.Aliyun.Embedding.Model == "" {
		config.Aliyun.Embedding.Model = "text-embedding-v3"
	}
	if config.Aliyun.Embedding.Dimensions == 0 {
		config.Aliyun.Embedding.Dimensions = 1024
	}
	if config.Aliyun.Embedding.BaseURL == "" {
		config.Aliyun.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}
}

// 创建一个默认配置，用于测试环境
func createDefaultConfig() *Config {
	config := &Config{}
	config.Aliyun.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	config.Aliyun.Model = "qwen-turbo"

	// 检索默认配置
	config.Retriever.Strategy = "index"
	config.Retriever.ChunkSize = 1000
	config.Retriever.ChunkOverlap = 200
	config.Retriever.ChatTopK = 2
	config.Retriever.RoadmapTopK = 3
	config.Retriever.SummaryInputLimit = 4000

	// 课程搜索默认配置
	config.CourseSearch.BaseURL = "https://api.tavily.com/search"
	config.CourseSearch.TimeoutSeconds = 10
	config.CourseSearch.MaxResults = 3

	// 咨询对话默认配置
	config.Counselor.ChatTemperature = 0.7
	config.Counselor.RoadmapTemperature = 0.2
	config.Counselor.MaxTokens = 2048
	config.Counselor.ChatTimeout = "60s"
	config.Counselor.RoadmapTimeout = "90s"

	// MinIO默认配置
	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.AccessKeyID = "minioadmin"
	config.MinIO.SecretAccessKey = "minioadmin123"
	config.MinIO.UseSSL = false
	config.MinIO.ResumeBucket = "resumes"
	config.MinIO.Location = ""
	config.MinIO.ResumeExpireDays = 365

	// MySQL默认配置
	config.MySQL.Host = "localhost"
	config.MySQL.Port = 3306
	config.MySQL.Username = "root"
	config.MySQL.Password = "password"
	config.MySQL.Database = "career_agent"
	config.MySQL.MaxIdleConns = 10
	config.MySQL.MaxOpenConns = 100
	config.MySQL.ConnMaxLifetimeMinutes = 60
	config.MySQL.ConnMaxIdleTimeMinutes = 30
	config.MySQL.ConnectTimeoutSeconds = 10
	config.MySQL.ReadTimeoutSeconds = 30
	config.MySQL.WriteTimeoutSeconds = 30
	config.MySQL.LogLevel = 4 // Info级别

	// Redis默认配置
	config.Redis.Address = "localhost:6379"
	config.Redis.Password = ""
	config.Redis.DB = 0
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.MaxRetries = 3
	config.Redis.MinRetryBackoffMS = 8
	config.Redis.MaxRetryBackoffMS = 512
	config.Redis.ConnMaxLifetimeMinutes = 60
	config.Redis.ConnMaxIdleTimeMinutes = 30

	// 环境变量覆盖API Key
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	} else {
		config.Aliyun.APIKey = "test_api_key"
	}
	if envKey := os.Getenv("COURSE_SEARCH_API_KEY"); envKey != "" {
		config.CourseSearch.APIKey = envKey
	} else {
		config.CourseSearch.APIKey = "test_search_key"
	}

	// 日志默认配置
	config.Logger.Level = "info"
	config.Logger.Format = "pretty" // 开发环境默认使用美化输出
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	// 默认的模型QPM限制
	config.ModelQPMLimits = map[string]int{
		"qwen-max":          1200,
		"qwen-max-latest":   1200,
		"qwen-plus":         15000,
		"qwen-plus-latest":  15000,
		"qwen-turbo":        1200,
		"qwen-turbo-latest": 1200,
	}

	config.Server.Address = ":8080"

	return config
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	config := createDefaultConfig()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	err = os.WriteFile(filePath, data, 0644)
	if err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}

	fmt.Printf("示例配置文件已创建: %s\n", filePath)
	return nil
}

// GetModelForTask 根据任务名称获取合适的模型
// 如果任务专用模型存在则返回专用模型，否则返回默认模型
func (c *Config) GetModelForTask(taskName string) string {
	if c.Aliyun.TaskModels != nil {
		if model, ok := c.Aliyun.TaskModels[taskName]; ok && model != "" {
			return model
		}
	}
	return c.Aliyun.Model
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
