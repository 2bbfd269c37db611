package course

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

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.CourseSearchConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		TimeoutSeconds: 5,
		MaxResults:     3,
	})
	require.NoError(t, err)
	return client, server
}

// TestSearchReturnsVerifiedReferences 正常搜索应返回标题+URL齐全的课程引用
func TestSearchReturnsVerifiedReferences(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req["api_key"])
		assert.Contains(t, req["query"], "React developer skills")
		assert.EqualValues(t, 1, req["max_results"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{
				{"title": "React - The Complete Guide", "url": "https://example.com/react"},
			},
		})
	})

	refs, err := client.Search(context.Background(), "React developer skills", 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "React - The Complete Guide", refs[0].Title)
	assert.Equal(t, "https://example.com/react", refs[0].URL)
}

// TestSearchSkipsIncompleteResults 缺标题或URL的结果应被丢弃
func TestSearchSkipsIncompleteResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{
				{"title": "No URL course", "url": ""},
				{"title": "", "url": "https://example.com/untitled"},
				{"title": "Valid", "url": "https://example.com/valid"},
			},
		})
	})

	refs, err := client.Search(context.Background(), "golang", 3)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Valid", refs[0].Title)
}

// TestSearchEmptyResults 无结果返回空切片而非错误
func TestSearchEmptyResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []map[string]string{}})
	})

	refs, err := client.Search(context.Background(), "obscure topic", 1)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

// TestSearchProviderError 非 200 响应返回错误，由调用方降级
func TestSearchProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "golang", 1)
	assert.Error(t, err)
}
