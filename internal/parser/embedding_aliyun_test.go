package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-agent-go/internal/config"
)

// TestNewAliyunEmbedder 验证Embedder构造参数校验与默认值
func TestNewAliyunEmbedder(t *testing.T) {
	_, err := NewAliyunEmbedder("", config.EmbeddingConfig{})
	require.Error(t, err, "空API密钥应返回错误")

	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{Dimensions: 1024})
	require.NoError(t, err)
	require.NotNil(t, embedder)
	assert.Equal(t, 1024, embedder.GetDimensions())
	assert.Equal(t, "text-embedding-v3", embedder.model, "未指定模型时应使用默认Embedding模型")
}

// TestEmbedStrings 通过本地HTTP桩验证请求构造与响应解析
func TestEmbedStrings(t *testing.T) {
	var gotAuth string
	var gotReq AliyunOpenAIEmbeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := AliyunOpenAIEmbeddingResponse{
			Object: "list",
			Data: []AliyunOpenAIDataEntry{
				{Object: "embedding", Embedding: []float64{0.1, 0.2, 0.3}, Index: 0},
				{Object: "embedding", Embedding: []float64{0.4, 0.5, 0.6}, Index: 1},
			},
			Model: "text-embedding-v3",
			Usage: AliyunOpenAIUsage{PromptTokens: 8, TotalTokens: 8},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{
		Model:      "text-embedding-v3",
		BaseURL:    server.URL,
		Dimensions: 3,
	})
	require.NoError(t, err)

	vectors, err := embedder.EmbedStrings(context.Background(), []string{"第一段文本", "第二段文本"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vectors[0])
	assert.Equal(t, []float64{0.4, 0.5, 0.6}, vectors[1])

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "text-embedding-v3", gotReq.Model)
	assert.Equal(t, 3, gotReq.Dimensions)
}

// TestEmbedStringsEmptyInput 空输入不应触发HTTP请求
func TestEmbedStringsEmptyInput(t *testing.T) {
	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)

	vectors, err := embedder.EmbedStrings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

// TestEmbedStringsAPIError 非200响应应返回带状态码的错误
func TestEmbedStringsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limit exceeded","type":"throttling","code":"429"}`))
	}))
	defer server.Close()

	embedder, err := NewAliyunEmbedder("test-key", config.EmbeddingConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.EmbedStrings(context.Background(), []string{"文本"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
