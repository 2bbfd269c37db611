// Package course 封装外部课程搜索服务的客户端。
package course

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"
)

// Searcher 课程搜索能力。实现必须有有界超时，
// 单次查询失败返回错误由调用方决定如何降级。
type Searcher interface {
	// Search 按关键词搜索课程，最多返回 maxResults 条结果。
	// 无结果时返回空切片和 nil 错误。
	Search(ctx context.Context, query string, maxResults int) ([]types.CourseRef, error)
}

// Client 基于 Tavily 风格搜索 API 的课程搜索客户端
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient 创建课程搜索客户端
func NewClient(cfg config.CourseSearchConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("课程搜索服务地址不能为空")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = constants.DefaultCourseSearchTimeout
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 1
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Component("course_search"),
	}, nil
}

type searchRequest struct {
	APIKey     string `json:"api_key,omitempty"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search 实现 Searcher 接口
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]types.CourseRef, error) {
	if maxResults <= 0 || maxResults > c.maxResults {
		maxResults = c.maxResults
	}

	reqBody := searchRequest{
		APIKey:     c.apiKey,
		Query:      query + " online course",
		MaxResults: maxResults,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化搜索请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建搜索请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("课程搜索请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取搜索响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("课程搜索失败，状态 %s: %s", resp.Status, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析搜索响应失败: %w", err)
	}

	refs := make([]types.CourseRef, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		// 标题或 URL 缺失的结果不算有效课程引用
		if r.Title == "" || r.URL == "" {
			continue
		}
		refs = append(refs, types.CourseRef{Title: r.Title, URL: r.URL})
		if len(refs) >= maxResults {
			break
		}
	}

	c.logger.Debug().Str("query", query).Int("results", len(refs)).Msg("课程搜索完成")
	return refs, nil
}

var _ Searcher = (*Client)(nil)
