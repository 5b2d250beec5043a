package generation

import (
	"context"
	"encoding/json"
	"strings"

	"z-notebook-ai-api/internal/domain/entity"
	wfmodel "z-notebook-ai-api/internal/workflow/model"
	"z-notebook-ai-api/internal/workflow/node"
	"z-notebook-ai-api/pkg/errors"
	"z-notebook-ai-api/pkg/logger"
	"z-notebook-ai-api/pkg/tracer"
)

// ParsedChapter 模型输出中的单个章节
type ParsedChapter struct {
	Title            string `json:"title"`
	Content          string `json:"content"`
	ImageDescription string `json:"image_description"`
	Hook             string `json:"hook"`
	Cliffhanger      string `json:"cliffhanger"`
}

// ParsedCharacter 模型输出中的角色
type ParsedCharacter struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// ParsedResult 合成结果的统一结构。
// 解析在这一处完成，缺失字段按 schema 取零值，调用侧不再各自兜底。
type ParsedResult struct {
	Title            string            `json:"title"`
	Synopsis         string            `json:"synopsis"`
	CoverDescription string            `json:"cover_description"`
	Characters       []ParsedCharacter `json:"characters"`
	Chapters         []ParsedChapter   `json:"chapters"`
}

// SynthesisInvoker 构造提示词、调用 LLM 并解析结构化输出
type SynthesisInvoker struct {
	runner SynthesisRunner
}

func NewSynthesisInvoker(runner SynthesisRunner) *SynthesisInvoker {
	return &SynthesisInvoker{runner: runner}
}

// Invoke 执行一次合成。
// 提供方层面的失败（网络/鉴权/限流）是致命错误；
// 输出无法解析默认退化为空结果并返回 degraded=true，strict 时判定失败。
func (s *SynthesisInvoker) Invoke(ctx context.Context, req *entity.GenerationRequest, corpus string, provider ProviderConfig) (result *ParsedResult, meta wfmodel.LLMUsageMeta, degraded bool, err error) {
	ctx, span := tracer.Start(ctx, "generation.SynthesisInvoker.Invoke")
	defer span.End()

	spec, _ := req.Length.Spec()

	in := &wfmodel.SynthesisInput{
		Mode:            string(req.Mode),
		Query:           req.Query(),
		Style:           req.Style,
		Genre:           req.Genre,
		Tone:            req.Tone,
		Setting:         req.Setting,
		Corpus:          corpus,
		ChapterCount:    spec.Chapters,
		WordsPerChapter: spec.WordsPerChapter,
		Provider:        provider.Provider,
		Model:           provider.Model,
	}
	if provider.Temperature > 0 {
		t := float32(provider.Temperature)
		in.Temperature = &t
	}
	if provider.MaxTokens > 0 {
		mt := provider.MaxTokens
		in.MaxTokens = &mt
	}

	callCtx := ctx
	if provider.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, provider.Timeout)
		defer cancel()
	}

	out, err := s.runner.Invoke(callCtx, in)
	if err != nil {
		span.RecordError(err)
		return nil, meta, false, errors.Wrap(err, errors.CodeSynthesisFailed, "synthesis provider failed")
	}
	meta = out.Meta

	parsed, parseErr := parseSynthesis(out.Content)
	if parseErr != nil {
		if req.StrictParse {
			span.RecordError(parseErr)
			return nil, meta, false, errors.Wrap(parseErr, errors.CodeSynthesisFailed, "unparsable synthesis output")
		}
		logger.Warn(ctx, "synthesis output unparsable, degrading to empty result", "error", parseErr.Error())
		return emptyResult(req), meta, true, nil
	}
	if strings.TrimSpace(parsed.Title) == "" {
		parsed.Title = req.Query()
	}
	return parsed, meta, false, nil
}

// parseSynthesis 从模型输出截取第一个完整 JSON 值并解析
func parseSynthesis(raw string) (*ParsedResult, error) {
	jsonText := node.ExtractJSONValue(raw)
	if jsonText == "" {
		return nil, errors.New(errors.CodeSynthesisFailed, "no json value in synthesis output")
	}

	var result ParsedResult
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, errors.Wrap(err, errors.CodeSynthesisFailed, "failed to parse synthesis json")
	}
	return &result, nil
}

// emptyResult 解析失败时的空结果：标题取请求主题，零章节
func emptyResult(req *entity.GenerationRequest) *ParsedResult {
	return &ParsedResult{
		Title:    req.Query(),
		Chapters: []ParsedChapter{},
	}
}
