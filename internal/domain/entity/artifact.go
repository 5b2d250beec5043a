// Package entity 定义领域实体
package entity

import (
	"time"
)

// Chapter 成品章节
type Chapter struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url,omitempty"`
	Order       int    `json:"order"`
	Hook        string `json:"hook,omitempty"`
	Cliffhanger string `json:"cliffhanger,omitempty"`
}

// Character 故事角色（仅 fiction 模式产出）
type Character struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Description string `json:"description,omitempty"`
}

// Artifact 一次生成运行的最终产物，组装完成后不可变
type Artifact struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        string         `json:"user_id" gorm:"type:uuid;index"`
	NotebookID    string         `json:"notebook_id,omitempty" gorm:"type:uuid;index"`
	Mode          GenerationMode `json:"mode" gorm:"type:varchar(20);not null"`
	Title         string         `json:"title" gorm:"type:varchar(255)"`
	Synopsis      string         `json:"synopsis" gorm:"type:text"`
	Chapters      []Chapter      `json:"chapters" gorm:"type:jsonb;serializer:json"`
	Characters    []Character    `json:"characters,omitempty" gorm:"type:jsonb;serializer:json"`
	ImageURLs     []string       `json:"image_urls,omitempty" gorm:"type:jsonb;serializer:json"`
	CoverImageURL string         `json:"cover_image_url,omitempty" gorm:"type:text"`
	SourceURLs    []string       `json:"source_urls,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Artifact) TableName() string {
	return "artifacts"
}

// WordCount 统计全部章节字数
func (a *Artifact) WordCount() int {
	total := 0
	for _, ch := range a.Chapters {
		total += len([]rune(ch.Content))
	}
	return total
}
