package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// RedisConfig configures a RedisQueue consumer.
type RedisConfig struct {
	Topic    string
	Group    string
	Consumer string

	// BatchSize caps how many messages a single Fetch returns.
	BatchSize int64

	// Block is how long a fetch of new messages waits before returning
	// empty. Pending reads never block.
	Block time.Duration
}

// RedisQueue is a Redis Streams consumer-group client for one topic.
//
// Delivery is at-least-once: a fetched message stays in the group's
// pending entries list until acknowledged, so a consumer that restarts
// under the same name recovers work it fetched but never acked. Each
// consumer first drains its own pending entries before asking for new
// messages.
type RedisQueue struct {
	client *redis.Client
	cfg    RedisConfig

	// checkPending tracks whether the next fetch should read this
	// consumer's pending entries instead of new messages. It starts
	// true so a restarted consumer re-reads unacknowledged work first.
	checkPending bool
}

// NewRedisQueue creates the consumer group for the topic if it does not
// exist and returns a consumer bound to it.
func NewRedisQueue(ctx context.Context, client *redis.Client, cfg RedisConfig) (*RedisQueue, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = time.Second
	}

	// Create group reading from the beginning so messages published
	// before the first worker starts are not lost.
	err := client.XGroupCreateMkStream(ctx, cfg.Topic, cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group %q on %q; %w", cfg.Group, cfg.Topic, err)
	}

	return &RedisQueue{
		client:       client,
		cfg:          cfg,
		checkPending: true,
	}, nil
}

// Publish appends a task message to the given topic.
func (q *RedisQueue) Publish(ctx context.Context, topic string, task TaskMessage) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{payloadField: data},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %q; %w", topic, err)
	}
	return nil
}

// Fetch returns the next batch of messages for this consumer. Pending
// entries are drained before new messages are requested. An empty slice
// with a nil error means nothing is available right now.
func (q *RedisQueue) Fetch(ctx context.Context) ([]Message, error) {
	if q.checkPending {
		msgs, err := q.read(ctx, "0", -1)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		// Pending entries drained; switch to new messages
		q.checkPending = false
	}

	msgs, err := q.read(ctx, ">", q.cfg.Block)
	if err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		// New deliveries are now pending; if none of them get acked
		// (crash or transient failures) the next fetch re-reads them.
		q.checkPending = true
	}
	return msgs, nil
}

// Ack acknowledges a message, removing it from this consumer's pending
// entries. A failed ack forces the next fetch back to the pending list.
func (q *RedisQueue) Ack(ctx context.Context, id string) error {
	if err := q.client.XAck(ctx, q.cfg.Topic, q.cfg.Group, id).Err(); err != nil {
		q.checkPending = true
		return fmt.Errorf("failed to ack %s on %q; %w", id, q.cfg.Topic, err)
	}
	q.checkPending = false
	return nil
}

// Close releases nothing; the Redis client is owned by the caller.
func (q *RedisQueue) Close() error {
	return nil
}

func (q *RedisQueue) read(ctx context.Context, cursor string, block time.Duration) ([]Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Topic, cursor},
		Count:    q.cfg.BatchSize,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from %q as %s; %w", q.cfg.Topic, q.cfg.Consumer, err)
	}

	var msgs []Message
	for _, stream := range streams {
		for _, m := range stream.Messages {
			msg := Message{ID: m.ID}
			if raw, ok := m.Values[payloadField].(string); ok {
				msg.Data = []byte(raw)
			}
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}
