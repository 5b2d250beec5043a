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

type ArtifactRepository struct {
	client *Client
}

func NewArtifactRepository(client *Client) *ArtifactRepository {
	return &ArtifactRepository{client: client}
}

// Save 保存产物
func (r *ArtifactRepository) Save(ctx context.Context, artifact *entity.Artifact) (*repository.SaveResult, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.Save")
	defer span.End()

	if artifact.ID == "" {
		artifact.ID = uuid.New().String()
	}
	if err := r.client.db.WithContext(ctx).Create(artifact).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	return &repository.SaveResult{ID: artifact.ID, Persisted: true}, nil
}

func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*entity.Artifact, error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.GetByID")
	defer span.End()

	var art entity.Artifact
	if err := r.client.db.WithContext(ctx).First(&art, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &art, nil
}

func (r *ArtifactRepository) ListByNotebook(ctx context.Context, notebookID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Artifact], error) {
	ctx, span := tracer.Start(ctx, "postgres.ArtifactRepository.ListByNotebook")
	defer span.End()

	db := r.client.db.WithContext(ctx).Model(&entity.Artifact{}).Where("notebook_id = ?", notebookID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count artifacts: %w", err)
	}

	var arts []*entity.Artifact
	if err := db.Order("created_at DESC").Offset(pagination.Offset()).Limit(pagination.PageSize).Find(&arts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return &repository.PagedResult[*entity.Artifact]{Items: arts, Total: total}, nil
}
