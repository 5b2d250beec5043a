// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-notebook-ai-api/internal/domain/entity"
)

// RunRepository 运行记录存储接口
type RunRepository interface {
	Create(ctx context.Context, run *entity.GenerationRun) error
	Update(ctx context.Context, run *entity.GenerationRun) error
	GetByID(ctx context.Context, id string) (*entity.GenerationRun, error)
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.GenerationRun], error)
}
