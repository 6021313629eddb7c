package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistryContract(t *testing.T, reg Registry) {
	ctx := context.Background()
	const (
		fileName = "news_part0.json"
		fileHash = "7b3e1f4a-0000-5000-8000-000000000000"
	)

	done, err := reg.IsFileProcessed(ctx, fileName)
	require.NoError(t, err)
	assert.False(t, done)

	chunks, err := reg.ProcessedChunks(ctx, fileName)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	require.NoError(t, reg.MarkChunksProcessed(ctx, fileName, []string{"chunk-1", "chunk-2"}))
	// Recording unions with existing progress
	require.NoError(t, reg.MarkChunksProcessed(ctx, fileName, []string{"chunk-2", "chunk-3"}))

	chunks, err = reg.ProcessedChunks(ctx, fileName)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"chunk-1": true, "chunk-2": true, "chunk-3": true}, chunks)

	// Partial progress does not make the file processed
	done, err = reg.IsFileProcessed(ctx, fileName)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, reg.MarkFileComplete(ctx, fileName, fileHash))

	done, err = reg.IsFileProcessed(ctx, fileName)
	require.NoError(t, err)
	assert.True(t, done)

	// Chunk bookkeeping is purged on completion
	chunks, err = reg.ProcessedChunks(ctx, fileName)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// Other files are unaffected
	done, err = reg.IsFileProcessed(ctx, "other.json")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMemoryRegistry(t *testing.T) {
	testRegistryContract(t, NewMemory())
}

func TestMemoryRegistryStoresHash(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()

	_, ok := reg.CompletedHash("a.json")
	assert.False(t, ok)

	require.NoError(t, reg.MarkFileComplete(ctx, "a.json", "hash-a"))

	hash, ok := reg.CompletedHash("a.json")
	require.True(t, ok)
	assert.Equal(t, "hash-a", hash)
}

func TestRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	testRegistryContract(t, NewRedis(client))
}

func TestRedisRegistryStoresHash(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := NewRedis(client)
	require.NoError(t, reg.MarkFileComplete(ctx, "a.json", "hash-a"))

	hash, err := client.Get(ctx, fileDoneKeyPrefix+"a.json").Result()
	require.NoError(t, err)
	assert.Equal(t, "hash-a", hash)
}
