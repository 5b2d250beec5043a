package generation

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"z-notebook-ai-api/internal/domain/entity"
	"z-notebook-ai-api/internal/workflow/node"
	"z-notebook-ai-api/pkg/logger"
	"z-notebook-ai-api/pkg/metrics"
	"z-notebook-ai-api/pkg/tracer"
)

// CorpusTruncationMarker 语料达到全局上限时追加的标记
const CorpusTruncationMarker = "\n\n[... corpus truncated ...]"

// CorpusOptions 语料装配参数
type CorpusOptions struct {
	// FetchTimeout 单页抓取超时
	FetchTimeout time.Duration
	// FetchConcurrency 抓取并发上限
	FetchConcurrency int
	// PerSourceCap 单条来源正文上限（字符）
	PerSourceCap int
	// MinUsefulChars 正文低于该长度视为无效，退化为摘要
	MinUsefulChars int
	// CorpusCap 语料总量上限（字符）
	CorpusCap int
}

// DefaultCorpusOptions 语料装配默认参数
func DefaultCorpusOptions() CorpusOptions {
	return CorpusOptions{
		FetchTimeout:     15 * time.Second,
		FetchConcurrency: 5,
		PerSourceCap:     1500,
		MinUsefulChars:   100,
		CorpusCap:        500000,
	}
}

// CorpusBuilder 将搜索结果装配为有界语料
type CorpusBuilder struct {
	fetcher PageFetcher
	opts    CorpusOptions
}

func NewCorpusBuilder(fetcher PageFetcher, opts CorpusOptions) *CorpusBuilder {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 5
	}
	if opts.PerSourceCap <= 0 {
		opts.PerSourceCap = 1500
	}
	if opts.MinUsefulChars <= 0 {
		opts.MinUsefulChars = 100
	}
	if opts.CorpusCap <= 0 {
		opts.CorpusCap = 500000
	}
	return &CorpusBuilder{fetcher: fetcher, opts: opts}
}

// Build 逐条抓取正文并装配来源记录。
// 单条失败或正文过短退化为搜索摘要，不中断整体流程；
// 并发抓取按原始下标回填，来源顺序与搜索结果一致。
func (b *CorpusBuilder) Build(ctx context.Context, results []entity.SearchResult) []entity.SourceRecord {
	ctx, span := tracer.Start(ctx, "generation.CorpusBuilder.Build")
	defer span.End()

	records := make([]entity.SourceRecord, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.FetchConcurrency)

	for i, res := range results {
		g.Go(func() error {
			records[i] = b.buildOne(gctx, res)
			return nil
		})
	}
	// buildOne 不返回错误，Wait 只用于并发汇合
	_ = g.Wait()

	return records
}

// buildOne 抓取单条来源，失败时退化为摘要
func (b *CorpusBuilder) buildOne(ctx context.Context, res entity.SearchResult) entity.SourceRecord {
	record := entity.SourceRecord{
		URL:   res.Link,
		Title: res.Title,
	}

	content, err := b.fetcher.Fetch(ctx, res.Link, b.opts.FetchTimeout)
	if err != nil || len(strings.TrimSpace(content)) < b.opts.MinUsefulChars {
		if err != nil {
			logger.Warn(ctx, "page fetch degraded to snippet", "url", res.Link, "error", err.Error())
		}
		record.Content = res.Snippet
		record.Degraded = true
		return record
	}

	truncated := node.TruncateByRunes(content, b.opts.PerSourceCap)
	record.Content = truncated
	record.Truncated = len(truncated) < len(content)
	return record
}

// Corpus 将来源记录拼接为送入 LLM 的语料文本，整体受 CorpusCap 约束
func (b *CorpusBuilder) Corpus(records []entity.SourceRecord) string {
	var sb strings.Builder
	for i, rec := range records {
		if rec.Content == "" {
			continue
		}
		sb.WriteString("Source ")
		sb.WriteString(rec.Title)
		sb.WriteString(" (")
		sb.WriteString(rec.URL)
		sb.WriteString(")\n")
		sb.WriteString(rec.Content)
		if i < len(records)-1 {
			sb.WriteString("\n\n")
		}
	}

	corpus := sb.String()
	if len([]rune(corpus)) > b.opts.CorpusCap {
		corpus = node.TruncateByRunes(corpus, b.opts.CorpusCap) + CorpusTruncationMarker
	}
	metrics.CorpusChars.Observe(float64(len([]rune(corpus))))
	return corpus
}
