package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	wfmodel "z-notebook-ai-api/internal/workflow/model"
	workflowport "z-notebook-ai-api/internal/workflow/port"
	workflowprompt "z-notebook-ai-api/internal/workflow/prompt"
)

// SynthesisChain 驱动一次 LLM 合成调用：按模式选择提示词模板，调用 ChatModel。
type SynthesisChain struct {
	factory workflowport.ChatModelFactory
}

func NewSynthesisChain(factory workflowport.ChatModelFactory) *SynthesisChain {
	return &SynthesisChain{factory: factory}
}

func (c *SynthesisChain) Invoke(ctx context.Context, in *wfmodel.SynthesisInput) (*wfmodel.SynthesisOutput, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if in.ChapterCount <= 0 {
		return nil, fmt.Errorf("chapter_count is required")
	}

	chatModel, err := c.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := formatSynthesisMessages(ctx, in)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildSynthesisModelOptions(in)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	out := &wfmodel.SynthesisOutput{
		Content: outMsg.Content,
		Meta: wfmodel.LLMUsageMeta{
			Provider:    strings.TrimSpace(in.Provider),
			Model:       strings.TrimSpace(in.Model),
			GeneratedAt: time.Now(),
		},
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		out.Meta.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		out.Meta.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}
	return out, nil
}

var synthesisPromptRegistry = workflowprompt.NewRegistry()

func formatSynthesisMessages(ctx context.Context, in *wfmodel.SynthesisInput) ([]*schema.Message, error) {
	id := workflowprompt.PromptResearchReportV1
	if in.Mode == "fiction" {
		id = workflowprompt.PromptFictionStoryV1
	}
	tpl, err := synthesisPromptRegistry.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"query":             strings.TrimSpace(in.Query),
		"style":             strings.TrimSpace(in.Style),
		"genre":             strings.TrimSpace(in.Genre),
		"tone":              strings.TrimSpace(in.Tone),
		"setting":           strings.TrimSpace(in.Setting),
		"corpus":            in.Corpus,
		"chapter_count":     in.ChapterCount,
		"words_per_chapter": in.WordsPerChapter,
	}
	return tpl.Format(ctx, vars)
}

func buildSynthesisModelOptions(in *wfmodel.SynthesisInput) []model.Option {
	opts := make([]model.Option, 0, 3)
	if in == nil {
		return opts
	}
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}
	return opts
}
