package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigWithRetrieverSection 验证检索配置能被正确加载，未填项走默认值
func TestLoadConfigWithRetrieverSection(t *testing.T) {
	yamlContent := `
retriever:
  strategy: "summary"
  chunk_size: 800
  summary_input_limit: 3000
aliyun:
  api_url: "https://example.com/v1/chat/completions"
  model: "qwen-plus"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载具有正确语法的配置不应返回错误")
	require.NotNil(t, config, "配置对象不应为 nil")

	assert.Equal(t, "summary", config.Retriever.Strategy)
	assert.Equal(t, 800, config.Retriever.ChunkSize)
	assert.Equal(t, 3000, config.Retriever.SummaryInputLimit)
	// 未填写的字段应走默认值
	assert.Equal(t, 200, config.Retriever.ChunkOverlap)
	assert.Equal(t, 2, config.Retriever.ChatTopK)
	assert.Equal(t, 3, config.Retriever.RoadmapTopK)
	assert.Equal(t, "qwen-plus", config.Aliyun.Model)
}

// TestLoadConfigTaskModels 验证任务专用模型映射的加载和回退逻辑
func TestLoadConfigTaskModels(t *testing.T) {
	yamlContent := `
aliyun:
  model: "qwen-turbo"
  task_models:
    roadmap: "qwen-max"
    summary: "qwen-plus"
`
	tmpDir, err := os.MkdirTemp("", "config-test-models")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "qwen-max", config.GetModelForTask("roadmap"))
	assert.Equal(t, "qwen-plus", config.GetModelForTask("summary"))
	// 未配置的任务应回退到默认模型
	assert.Equal(t, "qwen-turbo", config.GetModelForTask("chat"))
}

// TestGetDuration 验证时长字符串解析及非法值回退
func TestGetDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, GetDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute))
}

// TestCreateDefaultConfig 验证测试环境的默认配置覆盖所有必需字段
func TestCreateDefaultConfig(t *testing.T) {
	config := createDefaultConfig()
	require.NotNil(t, config)

	assert.Equal(t, "index", config.Retriever.Strategy)
	assert.Equal(t, 1000, config.Retriever.ChunkSize)
	assert.Equal(t, 200, config.Retriever.ChunkOverlap)
	assert.NotEmpty(t, config.Aliyun.APIURL)
	assert.NotEmpty(t, config.CourseSearch.BaseURL)
	assert.NotEmpty(t, config.MySQL.Database)
	assert.NotEmpty(t, config.Redis.Address)
	assert.NotZero(t, config.ModelQPMLimits["qwen-turbo"])
}
