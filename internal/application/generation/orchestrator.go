package generation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-notebook-ai-api/internal/domain/entity"
	"z-notebook-ai-api/internal/domain/repository"
	wfmodel "z-notebook-ai-api/internal/workflow/model"
	"z-notebook-ai-api/pkg/errors"
	"z-notebook-ai-api/pkg/logger"
	"z-notebook-ai-api/pkg/metrics"
	"z-notebook-ai-api/pkg/tracer"
)

// 积分扣费的功能标识
const (
	FeatureDeepResearch    = "deep_research"
	FeatureStoryGeneration = "story_generation"
)

// Options 编排器参数
type Options struct {
	// SearchResultCount 检索条数上限
	SearchResultCount int
	// ResearchCost / FictionCost 两种模式的积分开销
	ResearchCost int64
	FictionCost  int64
}

// Orchestrator 生成流水线编排器。
// Generate 按固定阶段顺序推进，每个阶段边界检查取消并推送一条 StageUpdate；
// 致命错误以单条终止更新结束流，任何失败都不会越过流边界抛出。
type Orchestrator struct {
	credits   CreditGate
	search    SearchProvider
	corpus    *CorpusBuilder
	synthesis *SynthesisInvoker
	media     *MediaStage
	artifacts repository.ArtifactRepository
	publisher EventPublisher
	opts      Options
}

func NewOrchestrator(
	credits CreditGate,
	search SearchProvider,
	corpus *CorpusBuilder,
	synthesis *SynthesisInvoker,
	media *MediaStage,
	artifacts repository.ArtifactRepository,
	publisher EventPublisher,
	opts Options,
) *Orchestrator {
	if opts.SearchResultCount <= 0 {
		opts.SearchResultCount = 5
	}
	if opts.ResearchCost <= 0 {
		opts.ResearchCost = 10
	}
	if opts.FictionCost <= 0 {
		opts.FictionCost = 15
	}
	return &Orchestrator{
		credits:   credits,
		search:    search,
		corpus:    corpus,
		synthesis: synthesis,
		media:     media,
		artifacts: artifacts,
		publisher: publisher,
		opts:      opts,
	}
}

// Generate 执行一次流水线运行，返回进度流。
// 流在恰好一条携带 Result 或 Error 的终止更新后关闭。
func (o *Orchestrator) Generate(ctx context.Context, req *entity.GenerationRequest, provider ProviderConfig) <-chan entity.StageUpdate {
	ch := make(chan entity.StageUpdate, 8)
	go func() {
		defer close(ch)
		o.run(ctx, req, provider, ch)
	}()
	return ch
}

// run 驱动全部阶段。所有 emit 都经过取消检查；调用方停止消费后，
// 下一个阶段边界即停止发起新的外部调用（协作式取消，不抢占在途调用）。
func (o *Orchestrator) run(ctx context.Context, req *entity.GenerationRequest, provider ProviderConfig, ch chan<- entity.StageUpdate) {
	ctx, span := tracer.Start(ctx, "generation.Orchestrator.run",
		trace.WithAttributes(attribute.String("generation.mode", string(req.Mode))))
	defer span.End()

	started := time.Now()
	emit := func(u entity.StageUpdate) bool {
		select {
		case ch <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(progress float64, appErr *errors.AppError) {
		span.RecordError(appErr)
		metrics.GenerationTotal.WithLabelValues(string(req.Mode), "failed").Inc()
		logger.Error(ctx, "generation run failed", appErr, "mode", string(req.Mode))
		emit(entity.StageUpdate{
			Stage:    entity.StageFailed,
			Status:   appErr.Message,
			Progress: progress,
			Error:    &entity.RunError{Code: string(appErr.Code), Message: appErr.Message},
		})
	}

	// Initiated：请求校验，快速失败
	if !emit(entity.StageUpdate{Stage: entity.StageInitiated, Status: stageStatus(entity.StageInitiated, req.Mode), Progress: progressInitiated}) {
		return
	}
	if err := req.Validate(); err != nil {
		fail(progressInitiated, errors.AsAppError(err))
		return
	}

	// CreditChecked：任何外部网络调用之前完成扣费预检
	cost, feature := o.opts.ResearchCost, FeatureDeepResearch
	if req.Mode == entity.ModeFiction {
		cost, feature = o.opts.FictionCost, FeatureStoryGeneration
	}
	ok, err := o.credits.TryConsume(ctx, req.UserID, cost, feature)
	if err != nil {
		fail(progressInitiated, errors.Wrap(err, errors.CodeInternalError, "credit gate unavailable"))
		return
	}
	if !ok {
		fail(progressInitiated, errors.ErrCreditInsufficient)
		return
	}
	if !emit(entity.StageUpdate{Stage: entity.StageCreditChecked, Status: stageStatus(entity.StageCreditChecked, req.Mode), Progress: progressCreditChecked}) {
		return
	}

	var sources []entity.SourceRecord
	var corpusText string
	var imageResults []string

	if req.Mode == entity.ModeResearch {
		// Searching：零结果可容忍，搜索服务不可用才是致命错误
		if !emit(entity.StageUpdate{Stage: entity.StageSearching, Status: stageStatus(entity.StageSearching, req.Mode), Progress: progressSearching}) {
			return
		}
		stageStart := time.Now()
		results, err := o.search.Search(ctx, req.Query(), SearchKindText, o.opts.SearchResultCount)
		if err != nil {
			fail(progressSearching, errors.Wrap(err, errors.CodeSearchUnavailable, "search provider unavailable"))
			return
		}
		// 图片搜索是锦上添花，失败只记日志
		if imgs, imgErr := o.search.Search(ctx, req.Query(), SearchKindImage, o.opts.SearchResultCount); imgErr == nil {
			for _, img := range imgs {
				if img.ImageURL != "" {
					imageResults = append(imageResults, img.ImageURL)
				}
			}
		} else {
			logger.Warn(ctx, "image search degraded", "error", imgErr.Error())
		}
		metrics.StageDuration.WithLabelValues(string(entity.StageSearching)).Observe(time.Since(stageStart).Seconds())
		if !emit(entity.StageUpdate{Stage: entity.StageSearching, Status: stageStatus(entity.StageSearching, req.Mode), Progress: progressSearched, Images: imageResults}) {
			return
		}

		// Fetching：逐条抓取正文，失败退化为摘要
		if ctx.Err() != nil {
			return
		}
		if !emit(entity.StageUpdate{Stage: entity.StageFetching, Status: stageStatus(entity.StageFetching, req.Mode), Progress: progressFetching}) {
			return
		}
		stageStart = time.Now()
		sources = o.corpus.Build(ctx, results)
		corpusText = o.corpus.Corpus(sources)
		metrics.StageDuration.WithLabelValues(string(entity.StageFetching)).Observe(time.Since(stageStart).Seconds())
		if !emit(entity.StageUpdate{Stage: entity.StageFetching, Status: stageStatus(entity.StageFetching, req.Mode), Progress: progressFetched, Sources: stripContent(sources)}) {
			return
		}
	}

	// Synthesizing
	if ctx.Err() != nil {
		return
	}
	if !emit(entity.StageUpdate{Stage: entity.StageSynthesizing, Status: stageStatus(entity.StageSynthesizing, req.Mode), Progress: progressSynthesizing}) {
		return
	}
	stageStart := time.Now()
	parsed, usage, degraded, err := o.synthesis.Invoke(ctx, req, corpusText, provider)
	if err != nil {
		fail(progressSynthesizing, errors.AsAppError(err))
		return
	}
	recordUsage(usage)
	metrics.StageDuration.WithLabelValues(string(entity.StageSynthesizing)).Observe(time.Since(stageStart).Seconds())
	warning := ""
	if degraded {
		warning = "synthesis output could not be parsed; returning empty result"
	}
	if !emit(entity.StageUpdate{Stage: entity.StageSynthesizing, Status: stageStatus(entity.StageSynthesizing, req.Mode), Progress: progressSynthesized}) {
		return
	}

	// MediaGenerating（仅 fiction）：封面失败致命，单章配图失败降级
	var media MediaResult
	if req.Mode == entity.ModeFiction {
		if ctx.Err() != nil {
			return
		}
		if !emit(entity.StageUpdate{Stage: entity.StageMediaGenerating, Status: stageStatus(entity.StageMediaGenerating, req.Mode), Progress: progressMedia}) {
			return
		}
		stageStart = time.Now()
		coverSeed := parsed.CoverDescription
		if coverSeed == "" {
			coverSeed = parsed.Title
		}
		coverURL, err := o.media.GenerateCover(ctx, coverSeed)
		if err != nil {
			fail(progressMedia, errors.AsAppError(err))
			return
		}
		media.CoverURL = coverURL
		media.ChapterURLs = o.media.GenerateChapterImages(ctx, parsed.Chapters)
		metrics.StageDuration.WithLabelValues(string(entity.StageMediaGenerating)).Observe(time.Since(stageStart).Seconds())
		if !emit(entity.StageUpdate{Stage: entity.StageMediaGenerating, Status: stageStatus(entity.StageMediaGenerating, req.Mode), Progress: progressMediaDone, Images: nonEmpty(media.ChapterURLs)}) {
			return
		}
	}

	// Assembling
	if ctx.Err() != nil {
		return
	}
	if !emit(entity.StageUpdate{Stage: entity.StageAssembling, Status: stageStatus(entity.StageAssembling, req.Mode), Progress: progressAssembling}) {
		return
	}
	artifact := Assemble(req, parsed, sources, media)

	// Completed：持久化失败不丢弃产物，调用方手里已有数据
	persisted := true
	if saved, err := o.artifacts.Save(ctx, artifact); err != nil {
		persisted = false
		logger.Error(ctx, "artifact persistence failed", err, "artifact_id", artifact.ID)
		if warning == "" {
			warning = "artifact could not be persisted"
		}
	} else if saved != nil && saved.ID != "" {
		artifact.ID = saved.ID
	}

	if persisted && o.publisher != nil {
		if err := o.publisher.PublishArtifactCreated(ctx, artifact); err != nil {
			logger.Warn(ctx, "artifact created event publish failed", "error", err.Error())
		}
	}

	metrics.GenerationTotal.WithLabelValues(string(req.Mode), "completed").Inc()
	metrics.GenerationDuration.WithLabelValues(string(req.Mode)).Observe(time.Since(started).Seconds())
	logger.Info(ctx, "generation run completed",
		"mode", string(req.Mode),
		"artifact_id", artifact.ID,
		"chapters", len(artifact.Chapters),
		"persisted", persisted,
	)

	emit(entity.StageUpdate{
		Stage:     entity.StageCompleted,
		Status:    stageStatus(entity.StageCompleted, req.Mode),
		Progress:  progressCompleted,
		Result:    artifact,
		Persisted: persisted,
		Warning:   warning,
		Usage:     usageOf(usage),
	})
}

// stripContent 去掉来源记录的正文后再对外推送，正文只进语料不出流
func stripContent(sources []entity.SourceRecord) []entity.SourceRecord {
	out := make([]entity.SourceRecord, len(sources))
	for i, src := range sources {
		out[i] = entity.SourceRecord{
			URL:       src.URL,
			Title:     src.Title,
			Truncated: src.Truncated,
			Degraded:  src.Degraded,
		}
	}
	return out
}

func nonEmpty(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// usageOf 将合成阶段的用量元数据转成对外结构，空元数据返回 nil
func usageOf(meta wfmodel.LLMUsageMeta) *entity.LLMUsage {
	if meta.Provider == "" && meta.Model == "" {
		return nil
	}
	return &entity.LLMUsage{
		Provider:         meta.Provider,
		Model:            meta.Model,
		PromptTokens:     meta.PromptTokens,
		CompletionTokens: meta.CompletionTokens,
	}
}

func recordUsage(meta wfmodel.LLMUsageMeta) {
	if meta.Provider == "" {
		return
	}
	if meta.PromptTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(meta.Provider, meta.Model, "prompt").Add(float64(meta.PromptTokens))
	}
	if meta.CompletionTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(meta.Provider, meta.Model, "completion").Add(float64(meta.CompletionTokens))
	}
}
