// Package fetcher 提供页面正文抓取
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-shiori/go-readability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("fetcher")

// ReadabilityFetcher 基于 go-readability 的正文抽取抓取器。
// 返回去除标记后的正文文本，便于直接进入语料。
type ReadabilityFetcher struct{}

func NewReadabilityFetcher() *ReadabilityFetcher {
	return &ReadabilityFetcher{}
}

// Fetch 抓取并抽取页面正文
func (f *ReadabilityFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	_, span := tracer.Start(ctx, "fetcher.ReadabilityFetcher.Fetch",
		trace.WithAttributes(attribute.String("fetch.url", url)))
	defer span.End()

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	article, err := readability.FromURL(url, timeout)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	return article.TextContent, nil
}
