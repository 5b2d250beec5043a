// Package generation 实现流式多阶段生成流水线：
// 网页检索 -> 正文抓取 -> 语料装配 -> LLM 合成 -> 配图 -> 产物组装与持久化。
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"z-notebook-ai-api/internal/config"
	"z-notebook-ai-api/internal/domain/entity"
	wfmodel "z-notebook-ai-api/internal/workflow/model"
)

// SearchKind 搜索类型
type SearchKind string

const (
	SearchKindText  SearchKind = "text"
	SearchKindImage SearchKind = "image"
)

// SearchProvider 网页搜索提供方
type SearchProvider interface {
	Search(ctx context.Context, query string, kind SearchKind, count int) ([]entity.SearchResult, error)
}

// PageFetcher 页面正文抓取
type PageFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// ImageProvider 图像生成提供方
type ImageProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CreditGate 积分预检。ok 为 false 表示额度不足；扣费只发生一次，失败不自动退款
type CreditGate interface {
	TryConsume(ctx context.Context, userID string, amount int64, feature string) (bool, error)
}

// SynthesisRunner 对合成链的最小依赖，便于测试替换
type SynthesisRunner interface {
	Invoke(ctx context.Context, in *wfmodel.SynthesisInput) (*wfmodel.SynthesisOutput, error)
}

// EventPublisher 产物创建事件发布（尽力而为，失败不影响运行结果）
type EventPublisher interface {
	PublishArtifactCreated(ctx context.Context, artifact *entity.Artifact) error
}

// ProviderConfig 一次运行中固定使用的 LLM 提供方配置。
// 在调用开始时从配置解析一次，之后不再读取任何全局可变状态。
type ProviderConfig struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ResolveProvider 从 LLM 配置解析提供方；name 为空时取默认提供方
func ResolveProvider(cfg *config.LLMConfig, name string) (ProviderConfig, error) {
	if cfg == nil {
		return ProviderConfig{}, fmt.Errorf("llm config is nil")
	}
	if strings.TrimSpace(name) == "" {
		name = cfg.DefaultProvider
	}
	pc, ok := cfg.Providers[name]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("provider %s not found in LLM config", name)
	}
	return ProviderConfig{
		Provider:    name,
		Model:       pc.Model,
		MaxTokens:   pc.MaxTokens,
		Temperature: pc.Temperature,
		Timeout:     pc.Timeout,
	}, nil
}
