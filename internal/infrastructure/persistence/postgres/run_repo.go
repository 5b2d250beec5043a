// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"z-notebook-ai-api/internal/domain/entity"
	"z-notebook-ai-api/internal/domain/repository"
)

type RunRepository struct {
	client *Client
}

func NewRunRepository(client *Client) *RunRepository {
	return &RunRepository{client: client}
}

func (r *RunRepository) Create(ctx context.Context, run *entity.GenerationRun) error {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.Create")
	defer span.End()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if err := r.client.db.WithContext(ctx).Create(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.GenerationRun) error {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.Update")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Save(run).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update generation run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*entity.GenerationRun, error) {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.GetByID")
	defer span.End()

	var run entity.GenerationRun
	if err := r.client.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get generation run: %w", err)
	}
	return &run, nil
}

func (r *RunRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationRun], error) {
	ctx, span := tracer.Start(ctx, "postgres.RunRepository.ListByUser")
	defer span.End()

	db := r.client.db.WithContext(ctx).Model(&entity.GenerationRun{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count generation runs: %w", err)
	}

	var runs []*entity.GenerationRun
	if err := db.Order("created_at DESC").Offset(pagination.Offset()).Limit(pagination.PageSize).Find(&runs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list generation runs: %w", err)
	}
	return &repository.PagedResult[*entity.GenerationRun]{Items: runs, Total: total}, nil
}
