package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueTopicIsolation(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryHub()

	cleanQ := hub.Queue(TopicClean, 10)
	chunkQ := hub.Queue(TopicChunk, 10)

	// Clean stage publishes downstream
	require.NoError(t, cleanQ.Publish(ctx, TopicChunk, NewTaskMessage("/data/a_part0.json", "clean_complete")))

	// Clean's own topic stays empty
	msgs, err := cleanQ.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = chunkQ.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	task, err := DecodeTaskMessage(msgs[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "clean_complete", task.Stage)

	assert.NoError(t, chunkQ.Ack(ctx, msgs[0].ID))
}

func TestMemoryQueueBatchLimit(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryHub()
	q := hub.Queue(TopicClean, 2)

	for range 5 {
		require.NoError(t, q.Publish(ctx, TopicClean, NewTaskMessage("/data/a.xlsx", "init")))
	}
	assert.Equal(t, 5, hub.Len(TopicClean))

	msgs, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	assert.Equal(t, 3, hub.Len(TopicClean))
}
