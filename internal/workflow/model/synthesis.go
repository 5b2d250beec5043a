package model

import "time"

// SynthesisInput 合成阶段的输入
type SynthesisInput struct {
	Mode  string // research | fiction
	Query string

	Style   string
	Genre   string
	Tone    string
	Setting string

	// Corpus 检索语料，仅 research 模式使用
	Corpus string

	ChapterCount    int
	WordsPerChapter int

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// LLMUsageMeta LLM 用量元数据
type LLMUsageMeta struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	GeneratedAt      time.Time
}

// SynthesisOutput 合成阶段的原始输出
type SynthesisOutput struct {
	Content string
	Meta    LLMUsageMeta
}
