// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-notebook-ai-api/internal/domain/entity"
)

// SaveResult 持久化结果
type SaveResult struct {
	ID        string
	Persisted bool
}

// ArtifactRepository 产物存储接口
type ArtifactRepository interface {
	// Save 保存产物；返回产物 ID 与是否落库成功
	Save(ctx context.Context, artifact *entity.Artifact) (*SaveResult, error)
	GetByID(ctx context.Context, id string) (*entity.Artifact, error)
	ListByNotebook(ctx context.Context, notebookID string, pagination Pagination) (*PagedResult[*entity.Artifact], error)
}
