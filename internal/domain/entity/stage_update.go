// Package entity 定义领域实体
package entity

// Stage 流水线阶段
type Stage string

const (
	StageInitiated       Stage = "initiated"
	StageCreditChecked   Stage = "credit_checked"
	StageSearching       Stage = "searching"
	StageFetching        Stage = "fetching"
	StageSynthesizing    Stage = "synthesizing"
	StageMediaGenerating Stage = "media_generating"
	StageAssembling      Stage = "assembling"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

// RunError 终止性错误，仅出现在最后一条更新上
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LLMUsage 单次运行消耗的模型用量，随成功的终止更新返回
type LLMUsage struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// StageUpdate 运行过程中向调用方推送的进度事件。
// 约定：Result 与 Error 至多出现其一，且只出现在最后一条更新上。
type StageUpdate struct {
	Stage    Stage   `json:"stage"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`

	Sources []SourceRecord `json:"sources,omitempty"`
	Images  []string       `json:"images,omitempty"`

	Result    *Artifact `json:"result,omitempty"`
	Persisted bool      `json:"persisted,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	Usage     *LLMUsage `json:"usage,omitempty"`
	Error     *RunError `json:"error,omitempty"`
}

// Terminal 判断是否为最后一条更新
func (u *StageUpdate) Terminal() bool {
	return u.Result != nil || u.Error != nil
}
