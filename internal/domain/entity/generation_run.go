// Package entity 定义领域实体
package entity

import (
	"time"
)

// RunStatus 运行状态
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// GenerationRun 一次流水线运行的持久化记录
type GenerationRun struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         string         `json:"user_id" gorm:"type:uuid;index"`
	NotebookID     string         `json:"notebook_id,omitempty" gorm:"type:uuid;index"`
	Mode           GenerationMode `json:"mode" gorm:"type:varchar(20);not null"`
	Query          string         `json:"query" gorm:"type:text"`
	Status         RunStatus      `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Progress       int            `json:"progress" gorm:"default:0"` // 0-100
	ArtifactID     string         `json:"artifact_id,omitempty" gorm:"type:uuid;index"`
	ErrorMessage   string         `json:"error_message,omitempty" gorm:"type:text"`
	Warning        string         `json:"warning,omitempty" gorm:"type:text"`
	LLMProvider    string         `json:"llm_provider,omitempty" gorm:"type:varchar(64)"`
	LLMModel       string         `json:"llm_model,omitempty" gorm:"type:varchar(128)"`
	TokensPrompt   int            `json:"tokens_prompt,omitempty"`
	TokensComplete int            `json:"tokens_completion,omitempty"`
	DurationMs     int            `json:"duration_ms,omitempty"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (GenerationRun) TableName() string {
	return "generation_runs"
}

// Start 标记运行开始
func (r *GenerationRun) Start() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// Complete 标记运行完成
func (r *GenerationRun) Complete(artifactID, warning string) {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.Progress = 100
	r.ArtifactID = artifactID
	r.Warning = warning
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.DurationMs = int(now.Sub(*r.StartedAt).Milliseconds())
	}
}

// Fail 标记运行失败
func (r *GenerationRun) Fail(errMsg string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.ErrorMessage = errMsg
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.DurationMs = int(now.Sub(*r.StartedAt).Milliseconds())
	}
}

// SetLLMMetrics 设置 LLM 使用指标
func (r *GenerationRun) SetLLMMetrics(provider, model string, promptTokens, completionTokens int) {
	r.LLMProvider = provider
	r.LLMModel = model
	r.TokensPrompt = promptTokens
	r.TokensComplete = completionTokens
}

// UpdateProgress 更新运行进度
func (r *GenerationRun) UpdateProgress(progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	r.Progress = progress
}
