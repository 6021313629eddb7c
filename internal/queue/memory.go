package queue

import (
	"context"
	"fmt"
	"sync"
)

// MemoryHub is an in-process broker holding one buffer per topic. All
// stage queues sharing a hub see each other's publishes, which lets a
// whole pipeline run inside one process or one test.
type MemoryHub struct {
	mu     sync.Mutex
	nextID int
	topics map[string][]Message
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{topics: map[string][]Message{}}
}

// Queue returns a queue consuming the given topic through this hub.
func (h *MemoryHub) Queue(topic string, batchSize int) *MemoryQueue {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MemoryQueue{hub: h, topic: topic, batchSize: batchSize}
}

// Len reports how many messages are buffered on a topic.
func (h *MemoryHub) Len(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *MemoryHub) publish(topic string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.topics[topic] = append(h.topics[topic], Message{
		ID:   fmt.Sprintf("mem-%d", h.nextID),
		Data: data,
	})
}

func (h *MemoryHub) pop(topic string, max int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf := h.topics[topic]
	if len(buf) == 0 {
		return nil
	}
	if max > len(buf) {
		max = len(buf)
	}
	out := make([]Message, max)
	copy(out, buf[:max])
	h.topics[topic] = buf[max:]
	return out
}

// MemoryQueue consumes one topic of a MemoryHub. Delivery is
// at-most-once: messages leave the buffer on fetch and Ack is a no-op.
type MemoryQueue struct {
	hub       *MemoryHub
	topic     string
	batchSize int
}

// Publish appends a task message to the given topic on the shared hub.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, task TaskMessage) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}
	q.hub.publish(topic, data)
	return nil
}

// Fetch pops up to a batch of messages from this queue's topic.
func (q *MemoryQueue) Fetch(ctx context.Context) ([]Message, error) {
	return q.hub.pop(q.topic, q.batchSize), nil
}

// Ack is a no-op; fetched messages are already gone from the buffer.
func (q *MemoryQueue) Ack(ctx context.Context, id string) error {
	return nil
}

// Close is a no-op.
func (q *MemoryQueue) Close() error {
	return nil
}
