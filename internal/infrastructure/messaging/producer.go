// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-notebook-ai-api/internal/domain/entity"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishArtifactCreated 发布产物创建事件
func (p *Producer) PublishArtifactCreated(ctx context.Context, artifact *entity.Artifact) error {
	evt := &ArtifactCreatedMessage{
		ArtifactID: artifact.ID,
		UserID:     artifact.UserID,
		NotebookID: artifact.NotebookID,
		Mode:       string(artifact.Mode),
		Title:      artifact.Title,
		WordCount:  artifact.WordCount(),
	}

	msg, err := NewMessage(artifact.ID, "artifact_created", artifact.UserID, artifact.NotebookID, evt)
	if err != nil {
		return err
	}

	_, err = p.Publish(ctx, StreamArtifactCreated, msg)
	return err
}

// ArtifactCreatedMessage 产物创建事件消息
type ArtifactCreatedMessage struct {
	ArtifactID string `json:"artifact_id"`
	UserID     string `json:"user_id"`
	NotebookID string `json:"notebook_id,omitempty"`
	Mode       string `json:"mode"`
	Title      string `json:"title"`
	WordCount  int    `json:"word_count"`
}
