// Package setup builds the shared infrastructure clients from typed
// configuration. It keeps command wiring in one place so the worker and
// search commands assemble the same stack.
package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ragstage/ragstage/internal/config"
	"github.com/ragstage/ragstage/internal/embeddings"
	"github.com/ragstage/ragstage/internal/vectorstore"
)

// RedisClient creates the Redis client shared by the queue and the
// status registry.
func RedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// VectorStore assembles the hybrid store from configuration: a dense
// Chroma backend fed by TEI embeddings, a sparse Elasticsearch backend,
// or both.
func VectorStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (vectorstore.Store, error) {
	var dense, sparse vectorstore.Store

	if cfg.VectorStore.EnableDense {
		embedder := embeddings.NewTEIClient(cfg.Embeddings.URL, cfg.Embeddings.Model,
			embeddings.WithLogger(logger))
		dense = vectorstore.NewChromaStore(
			cfg.VectorStore.URI,
			cfg.VectorStore.Token,
			cfg.VectorStore.CollectionName,
			cfg.VectorStore.Overwrite,
			embedder,
			vectorstore.WithChromaLogger(logger),
		)
	}
	if cfg.VectorStore.EnableSparse {
		sparse = vectorstore.NewElasticStore(cfg.Elastic.URL, cfg.Elastic.Index,
			vectorstore.WithElasticLogger(logger))
	}

	store, err := vectorstore.NewHybrid(dense, sparse, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble vector store; %w", err)
	}
	return store, nil
}
