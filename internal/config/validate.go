package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by all validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks a Config for values the pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Redis.Addr == "" {
		return invalidf("redis.addr must not be empty")
	}

	if cfg.Pipeline.PollIntervalMs <= 0 {
		return invalidf("pipeline.poll_interval_ms must be positive, got %d", cfg.Pipeline.PollIntervalMs)
	}
	if cfg.Pipeline.RowsPerFile <= 0 {
		return invalidf("pipeline.rows_per_file must be positive, got %d", cfg.Pipeline.RowsPerFile)
	}
	if cfg.Pipeline.BatchSize <= 0 {
		return invalidf("pipeline.batch_size must be positive, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.MaxConcurrency <= 0 {
		return invalidf("pipeline.max_concurrency must be positive, got %d", cfg.Pipeline.MaxConcurrency)
	}

	if cfg.LLM.RateLimit <= 0 {
		return invalidf("llm.rate_limit must be positive, got %d", cfg.LLM.RateLimit)
	}

	if !cfg.VectorStore.EnableDense && !cfg.VectorStore.EnableSparse {
		return invalidf("vectorstore: at least one of enable_dense, enable_sparse must be true")
	}
	if cfg.VectorStore.URI == "" {
		return invalidf("vectorstore.uri must not be empty")
	}
	if cfg.VectorStore.EnableDense && cfg.VectorStore.Dim <= 0 {
		return invalidf("vectorstore.dim must be positive when enable_dense is true, got %d", cfg.VectorStore.Dim)
	}

	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
