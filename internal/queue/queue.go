// Package queue provides the message transport between pipeline stages.
//
// Stages communicate through topics carrying small task messages; the
// document payload itself travels through object storage, not the queue.
// The Redis Streams implementation gives each stage a consumer group with
// at-least-once delivery; an in-memory implementation backs tests and
// single-process runs.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage topics. Each stage consumes its own topic and publishes to the
// next stage's topic.
const (
	TopicClean  = "clean_flow"
	TopicChunk  = "chunk_flow"
	TopicEnrich = "enrich_flow"
	TopicIndex  = "index_flow"
)

// GroupFor returns the consumer group name for a stage.
func GroupFor(stage string) string {
	return stage + "_group"
}

// ConsumerName returns the consumer name for a stage worker instance.
func ConsumerName(stage, id string) string {
	return "worker_" + stage + "_" + id
}

// TaskMessage is the unit of coordination between stages. It points at a
// payload file; it never carries document content.
type TaskMessage struct {
	FilePath  string  `json:"file_path"`
	Stage     string  `json:"stage"`
	Timestamp float64 `json:"timestamp"`
	TraceID   string  `json:"trace_id"`
}

// NewTaskMessage creates a task message for the given payload file with a
// fresh trace id and the current time.
func NewTaskMessage(filePath, stage string) TaskMessage {
	return TaskMessage{
		FilePath:  filePath,
		Stage:     stage,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		TraceID:   uuid.NewString(),
	}
}

// Encode serializes the task message for transport.
func (t TaskMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task message; %w", err)
	}
	return data, nil
}

// DecodeTaskMessage deserializes a task message from transport bytes.
func DecodeTaskMessage(data []byte) (TaskMessage, error) {
	var t TaskMessage
	if err := json.Unmarshal(data, &t); err != nil {
		return TaskMessage{}, fmt.Errorf("failed to decode task message; %w", err)
	}
	return t, nil
}

// Message is a raw delivery from a topic. Data is decoded by the
// consumer so that undecodable deliveries can still be acknowledged.
type Message struct {
	ID   string
	Data []byte
}

// Queue is the transport contract shared by the Redis and in-memory
// implementations. Fetch and Ack operate on the consumer's own topic;
// Publish may target any topic.
type Queue interface {
	Publish(ctx context.Context, topic string, task TaskMessage) error
	Fetch(ctx context.Context) ([]Message, error)
	Ack(ctx context.Context, id string) error
	Close() error
}
