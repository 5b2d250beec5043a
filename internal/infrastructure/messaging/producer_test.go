package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-notebook-ai-api/internal/domain/entity"
)

func newTestProducer(t *testing.T) (*Producer, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProducer(rdb, 1000), rdb
}

func TestPublishArtifactCreated(t *testing.T) {
	producer, rdb := newTestProducer(t)
	ctx := context.Background()

	artifact := &entity.Artifact{
		ID:         "artifact-1",
		UserID:     "user-1",
		NotebookID: "nb-1",
		Mode:       entity.ModeFiction,
		Title:      "灯塔尽头",
		Chapters: []entity.Chapter{
			{Title: "一", Content: "四个字"},
		},
	}

	require.NoError(t, producer.PublishArtifactCreated(ctx, artifact))

	entries, err := rdb.XRange(ctx, string(StreamArtifactCreated), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &msg))
	assert.Equal(t, "artifact-1", msg.ID)
	assert.Equal(t, "artifact_created", msg.Type)
	assert.Equal(t, "user-1", msg.UserID)

	var evt ArtifactCreatedMessage
	require.NoError(t, msg.UnmarshalPayload(&evt))
	assert.Equal(t, "artifact-1", evt.ArtifactID)
	assert.Equal(t, "fiction", evt.Mode)
	assert.Equal(t, "灯塔尽头", evt.Title)
	assert.Equal(t, 3, evt.WordCount)
}

func TestMessageMetadata(t *testing.T) {
	msg, err := NewMessage("id-1", "artifact_created", "user-1", "", map[string]string{"k": "v"})
	require.NoError(t, err)

	msg.SetMetadata("source", "pipeline")
	assert.Equal(t, "pipeline", msg.GetMetadata("source"))
	assert.Equal(t, "", msg.GetMetadata("absent"))
}

func TestDLQStreamName(t *testing.T) {
	assert.Equal(t, "dlq:stream:artifact:created", StreamArtifactCreated.DLQStream())
}
