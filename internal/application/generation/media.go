package generation

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"z-notebook-ai-api/pkg/errors"
	"z-notebook-ai-api/pkg/logger"
	"z-notebook-ai-api/pkg/metrics"
	"z-notebook-ai-api/pkg/tracer"
)

// MediaStage 驱动封面与章节配图生成。
// 封面失败是致命错误（fiction 产物结构上要求封面）；单章配图失败只降级。
type MediaStage struct {
	provider    ImageProvider
	concurrency int
}

func NewMediaStage(provider ImageProvider, concurrency int) *MediaStage {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &MediaStage{provider: provider, concurrency: concurrency}
}

// GenerateCover 生成封面图
func (m *MediaStage) GenerateCover(ctx context.Context, seed string) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.MediaStage.GenerateCover")
	defer span.End()

	url, err := m.provider.Generate(ctx, coverPrompt(seed))
	if err != nil {
		span.RecordError(err)
		metrics.ImagesGeneratedTotal.WithLabelValues("cover", "error").Inc()
		return "", errors.Wrap(err, errors.CodeMediaFailed, "cover image generation failed")
	}
	metrics.ImagesGeneratedTotal.WithLabelValues("cover", "ok").Inc()
	return url, nil
}

// GenerateChapterImages 为每章生成配图，按原始下标回填。
// 单章失败记为降级，对应位置留空。
func (m *MediaStage) GenerateChapterImages(ctx context.Context, chapters []ParsedChapter) []string {
	ctx, span := tracer.Start(ctx, "generation.MediaStage.GenerateChapterImages")
	defer span.End()

	urls := make([]string, len(chapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i, ch := range chapters {
		g.Go(func() error {
			url, err := m.provider.Generate(gctx, chapterPrompt(ch))
			if err != nil {
				logger.Warn(gctx, "chapter image generation degraded", "chapter", i, "error", err.Error())
				metrics.ImagesGeneratedTotal.WithLabelValues("chapter", "error").Inc()
				return nil
			}
			metrics.ImagesGeneratedTotal.WithLabelValues("chapter", "ok").Inc()
			urls[i] = url
			return nil
		})
	}
	_ = g.Wait()

	return urls
}

// coverPrompt 封面提示词只由合成阶段产出的描述派生，不直接拼接用户输入
func coverPrompt(seed string) string {
	return fmt.Sprintf("Book cover illustration, no text or lettering. %s", strings.TrimSpace(seed))
}

// chapterPrompt 章节配图提示词派生自模型给出的场景描述，缺失时回退到章节标题
func chapterPrompt(ch ParsedChapter) string {
	seed := strings.TrimSpace(ch.ImageDescription)
	if seed == "" {
		seed = strings.TrimSpace(ch.Title)
	}
	return fmt.Sprintf("Story illustration, painterly style, no text. %s", seed)
}
