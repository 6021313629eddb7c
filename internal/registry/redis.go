package registry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	fileDoneKeyPrefix   = "ragstage:file_done:"
	fileChunksKeyPrefix = "ragstage:file_chunks:"
)

// Redis is a Registry shared by workers on multiple nodes. The
// completion key holds the file hash; the chunk set is a Redis set.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed registry on an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// IsFileProcessed reports whether the file was marked complete.
func (r *Redis) IsFileProcessed(ctx context.Context, fileName string) (bool, error) {
	n, err := r.client.Exists(ctx, fileDoneKeyPrefix+fileName).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check file status; %w", err)
	}
	return n > 0, nil
}

// ProcessedChunks returns the set of chunk ids recorded for the file.
func (r *Redis) ProcessedChunks(ctx context.Context, fileName string) (map[string]bool, error) {
	ids, err := r.client.SMembers(ctx, fileChunksKeyPrefix+fileName).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk progress; %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// MarkChunksProcessed records successfully indexed chunks, unioned with
// any already recorded.
func (r *Redis) MarkChunksProcessed(ctx context.Context, fileName string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	members := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		members[i] = id
	}
	if err := r.client.SAdd(ctx, fileChunksKeyPrefix+fileName, members...).Err(); err != nil {
		return fmt.Errorf("failed to record chunk progress; %w", err)
	}
	return nil
}

// MarkFileComplete stores the file's hash and drops its chunk set.
func (r *Redis) MarkFileComplete(ctx context.Context, fileName, fileHash string) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, fileDoneKeyPrefix+fileName, fileHash, 0)
	pipe.Del(ctx, fileChunksKeyPrefix+fileName)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark file complete; %w", err)
	}
	return nil
}
