// Package image 提供图像生成客户端（OpenAI 兼容 images API）
package image

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

	"z-notebook-ai-api/internal/config"
)

var tracer = otel.Tracer("image")

// Client 图像生成客户端
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	size       string
	httpClient *http.Client
}

// NewClient 创建图像生成客户端
func NewClient(cfg *config.ImageConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "dall-e-3"
	}
	size := cfg.Size
	if size == "" {
		size = "1024x1024"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		size:    size,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate 生成一张图片，返回图片 URL
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "image.Client.Generate",
		trace.WithAttributes(attribute.String("image.model", c.model)))
	defer span.End()

	reqBody, err := json.Marshal(&generateRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   c.size,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		err := fmt.Errorf("image request failed: status=%d", httpResp.StatusCode)
		span.RecordError(err)
		return "", err
	}

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("image response contains no url")
	}
	return resp.Data[0].URL, nil
}
