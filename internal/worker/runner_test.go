package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragstage/ragstage/internal/queue"
)

// stubQueue hands out a fixed batch once and records acks.
type stubQueue struct {
	msgs    []queue.Message
	fetched bool
	acked   []string
}

func (q *stubQueue) Publish(ctx context.Context, topic string, task queue.TaskMessage) error {
	return nil
}

func (q *stubQueue) Fetch(ctx context.Context) ([]queue.Message, error) {
	if q.fetched {
		return nil, nil
	}
	q.fetched = true
	return q.msgs, nil
}

func (q *stubQueue) Ack(ctx context.Context, id string) error {
	q.acked = append(q.acked, id)
	return nil
}

func (q *stubQueue) Close() error { return nil }

// stubHandler fails by file path: "malformed" paths poison, "transient"
// paths error, everything else succeeds.
type stubHandler struct {
	handled []string
}

func (h *stubHandler) Stage() string { return StageChunk }

func (h *stubHandler) Handle(ctx context.Context, task queue.TaskMessage) error {
	h.handled = append(h.handled, task.FilePath)
	switch task.FilePath {
	case "malformed":
		return MarkMalformed(fmt.Errorf("bad payload"))
	case "transient":
		return fmt.Errorf("store unavailable")
	default:
		return nil
	}
}

func encoded(t *testing.T, id, filePath string) queue.Message {
	t.Helper()
	data, err := queue.NewTaskMessage(filePath, StageCleanComplete).Encode()
	require.NoError(t, err)
	return queue.Message{ID: id, Data: data}
}

func TestRunnerAckPolicy(t *testing.T) {
	q := &stubQueue{msgs: []queue.Message{
		encoded(t, "1", "ok"),
		encoded(t, "2", "malformed"),
		encoded(t, "3", "transient"),
		{ID: "4", Data: []byte("not a task message")},
	}}
	h := &stubHandler{}
	r := NewRunner(q, h, 0, nil)

	n, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Undecodable messages never reach the handler.
	assert.Equal(t, []string{"ok", "malformed", "transient"}, h.handled)

	// Success and poison are acked; the transient failure stays pending.
	assert.ElementsMatch(t, []string{"1", "2", "4"}, q.acked)
}

func TestRunnerEmptyFetch(t *testing.T) {
	q := &stubQueue{fetched: true}
	r := NewRunner(q, &stubHandler{}, 0, nil)

	n, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, q.acked)
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(&stubQueue{fetched: true}, &stubHandler{}, 0, nil)
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
