// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"z-notebook-ai-api/internal/domain/entity"
)

// GenerateRequest 生成请求
type GenerateRequest struct {
	Mode        string `json:"mode" binding:"required"`
	Topic       string `json:"topic,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	Style       string `json:"style,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Tone        string `json:"tone,omitempty"`
	Setting     string `json:"setting,omitempty"`
	Length      string `json:"length,omitempty"`
	NotebookID  string `json:"notebook_id,omitempty"`
	StrictParse bool   `json:"strict_parse,omitempty"`
}

// ToEntity 转换为领域请求
func (r *GenerateRequest) ToEntity(userID string) *entity.GenerationRequest {
	return &entity.GenerationRequest{
		UserID:      userID,
		Mode:        entity.GenerationMode(r.Mode),
		Topic:       r.Topic,
		Prompt:      r.Prompt,
		Style:       r.Style,
		Genre:       r.Genre,
		Tone:        r.Tone,
		Setting:     r.Setting,
		Length:      entity.GenerationLength(r.Length),
		NotebookID:  r.NotebookID,
		StrictParse: r.StrictParse,
	}
}

// ArtifactSummary 产物列表项
type ArtifactSummary struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	Title         string `json:"title"`
	Synopsis      string `json:"synopsis,omitempty"`
	ChapterCount  int    `json:"chapter_count"`
	WordCount     int    `json:"word_count"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// FromArtifact 转换为产物列表项
func FromArtifact(a *entity.Artifact) *ArtifactSummary {
	return &ArtifactSummary{
		ID:            a.ID,
		Mode:          string(a.Mode),
		Title:         a.Title,
		Synopsis:      a.Synopsis,
		ChapterCount:  len(a.Chapters),
		WordCount:     a.WordCount(),
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// RunSummary 运行记录列表项
type RunSummary struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Query      string `json:"query"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Error      string `json:"error,omitempty"`
	Warning    string `json:"warning,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// FromRun 转换为运行记录列表项
func FromRun(r *entity.GenerationRun) *RunSummary {
	return &RunSummary{
		ID:         r.ID,
		Mode:       string(r.Mode),
		Query:      r.Query,
		Status:     string(r.Status),
		Progress:   r.Progress,
		ArtifactID: r.ArtifactID,
		Error:      r.ErrorMessage,
		Warning:    r.Warning,
		DurationMs: r.DurationMs,
		CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
