// Package registry tracks indexing progress per source file: which
// chunks have been written and which files are fully indexed. The index
// stage consults it to make re-delivered work idempotent.
package registry

import (
	"context"
	"maps"
	"sync"
)

// Registry is the indexing progress contract. Files are keyed by name;
// completion stores the file's deterministic hash as the value.
//
// MarkFileComplete records the file as fully indexed and discards its
// per-chunk bookkeeping, which is only needed while indexing is in
// flight.
type Registry interface {
	IsFileProcessed(ctx context.Context, fileName string) (bool, error)
	ProcessedChunks(ctx context.Context, fileName string) (map[string]bool, error)
	MarkChunksProcessed(ctx context.Context, fileName string, chunkIDs []string) error
	MarkFileComplete(ctx context.Context, fileName, fileHash string) error
}

// Memory is an in-process Registry for single-node runs and tests.
type Memory struct {
	mu     sync.RWMutex
	files  map[string]string
	chunks map[string]map[string]bool
}

// NewMemory creates an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{
		files:  map[string]string{},
		chunks: map[string]map[string]bool{},
	}
}

// IsFileProcessed reports whether the file was marked complete.
func (m *Memory) IsFileProcessed(ctx context.Context, fileName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[fileName]
	return ok, nil
}

// ProcessedChunks returns the set of chunk ids recorded for the file.
func (m *Memory) ProcessedChunks(ctx context.Context, fileName string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.chunks[fileName]))
	maps.Copy(out, m.chunks[fileName])
	return out, nil
}

// MarkChunksProcessed records successfully indexed chunks, unioned with
// any already recorded.
func (m *Memory) MarkChunksProcessed(ctx context.Context, fileName string, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks[fileName] == nil {
		m.chunks[fileName] = map[string]bool{}
	}
	for _, id := range chunkIDs {
		m.chunks[fileName][id] = true
	}
	return nil
}

// MarkFileComplete stores the file's hash and drops its chunk set.
func (m *Memory) MarkFileComplete(ctx context.Context, fileName, fileHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fileName] = fileHash
	delete(m.chunks, fileName)
	return nil
}

// CompletedHash returns the hash stored for a completed file.
func (m *Memory) CompletedHash(fileName string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, ok := m.files[fileName]
	return hash, ok
}
