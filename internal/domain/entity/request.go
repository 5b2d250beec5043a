// Package entity 定义领域实体
package entity

import (
	"strings"

	"z-notebook-ai-api/pkg/errors"
)

// GenerationMode 生成模式
type GenerationMode string

const (
	// ModeResearch 深度研究：检索网页来源后合成报告
	ModeResearch GenerationMode = "research"
	// ModeFiction 故事创作：从提示词直接合成，并生成配图
	ModeFiction GenerationMode = "fiction"
)

// GenerationLength 目标篇幅档位
type GenerationLength string

const (
	LengthShort  GenerationLength = "short"
	LengthMedium GenerationLength = "medium"
	LengthLong   GenerationLength = "long"
)

// LengthSpec 篇幅档位对应的章节结构
type LengthSpec struct {
	Chapters        int
	WordsPerChapter int
}

// lengthSpecs 档位到章节结构的映射
var lengthSpecs = map[GenerationLength]LengthSpec{
	LengthShort:  {Chapters: 2, WordsPerChapter: 600},
	LengthMedium: {Chapters: 4, WordsPerChapter: 900},
	LengthLong:   {Chapters: 6, WordsPerChapter: 1200},
}

// Spec 返回档位对应的章节结构；未知档位返回 false
func (l GenerationLength) Spec() (LengthSpec, bool) {
	spec, ok := lengthSpecs[l]
	return spec, ok
}

// GenerationRequest 一次生成调用的请求参数，每次调用新建，不做持久化
type GenerationRequest struct {
	UserID     string           `json:"user_id"`
	Mode       GenerationMode   `json:"mode"`
	Topic      string           `json:"topic,omitempty"`
	Prompt     string           `json:"prompt,omitempty"`
	Style      string           `json:"style,omitempty"`
	Genre      string           `json:"genre,omitempty"`
	Tone       string           `json:"tone,omitempty"`
	Setting    string           `json:"setting,omitempty"`
	Length     GenerationLength `json:"length,omitempty"`
	NotebookID string           `json:"notebook_id,omitempty"`
	// StrictParse 为 true 时，模型输出无法解析为结构化结果将判定运行失败；
	// 默认 false，退化为空结果并附带 warning
	StrictParse bool `json:"strict_parse,omitempty"`
}

// Query 返回本次请求的主题或提示词（已去除首尾空白）
func (r *GenerationRequest) Query() string {
	if r.Mode == ModeResearch {
		return strings.TrimSpace(r.Topic)
	}
	return strings.TrimSpace(r.Prompt)
}

// Validate 校验请求参数
func (r *GenerationRequest) Validate() error {
	switch r.Mode {
	case ModeResearch:
		if strings.TrimSpace(r.Topic) == "" {
			return errors.New(errors.CodeInvalidRequest, "topic is required").WithDetail("research mode requires a non-empty topic")
		}
	case ModeFiction:
		if strings.TrimSpace(r.Prompt) == "" {
			return errors.New(errors.CodeInvalidRequest, "prompt is required").WithDetail("fiction mode requires a non-empty prompt")
		}
	default:
		return errors.New(errors.CodeInvalidRequest, "unknown generation mode").WithDetail(string(r.Mode))
	}

	if r.Length == "" {
		r.Length = LengthShort
	}
	if _, ok := r.Length.Spec(); !ok {
		return errors.New(errors.CodeInvalidRequest, "unknown length").WithDetail(string(r.Length))
	}
	return nil
}
