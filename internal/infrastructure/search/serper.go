// Package search 提供网页搜索客户端（Serper API）
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-notebook-ai-api/internal/application/generation"
	"z-notebook-ai-api/internal/config"
	"z-notebook-ai-api/internal/domain/entity"
)

var tracer = otel.Tracer("search")

// Client Serper 搜索客户端
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建搜索客户端
func NewClient(cfg *config.SearchConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://google.serper.dev"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type imageResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	ImageURL string `json:"imageUrl"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
	Images  []imageResult   `json:"images"`
}

// Search 执行一次搜索。零结果不是错误，返回空切片
func (c *Client) Search(ctx context.Context, query string, kind generation.SearchKind, count int) ([]entity.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "search.Client.Search",
		trace.WithAttributes(
			attribute.String("search.kind", string(kind)),
			attribute.Int("search.count", count),
		))
	defer span.End()

	path := "/search"
	if kind == generation.SearchKindImage {
		path = "/images"
	}

	reqBody, err := json.Marshal(&searchRequest{Q: query, Num: count})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		err := fmt.Errorf("search request failed: status=%d", httpResp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var resp searchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]entity.SearchResult, 0, count)
	if kind == generation.SearchKindImage {
		for _, img := range resp.Images {
			results = append(results, entity.SearchResult{
				Title:    img.Title,
				Link:     img.Link,
				ImageURL: img.ImageURL,
			})
		}
	} else {
		for _, org := range resp.Organic {
			results = append(results, entity.SearchResult{
				Title:   org.Title,
				Link:    org.Link,
				Snippet: org.Snippet,
			})
		}
	}
	if len(results) > count && count > 0 {
		results = results[:count]
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	return results, nil
}
