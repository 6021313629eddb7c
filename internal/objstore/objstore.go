// Package objstore persists task payloads between pipeline stages.
//
// Paths are plain strings; the backend is chosen by prefix. "s3://" goes
// to S3, "azure://" to Azure Blob Storage, everything else to the local
// filesystem. Cloud clients are created lazily on first use so local
// runs need no cloud credentials.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when the object at a path does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes byte blobs at string paths.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}

// FragmentPath returns the payload path for fragment idx of a source
// file: the extension is replaced by "_part{idx}.json".
func FragmentPath(path string, idx int) string {
	root := strings.TrimSuffix(path, filepath.Ext(path))
	return fmt.Sprintf("%s_part%d.json", root, idx)
}

// DerivedPath inserts a suffix before the extension, e.g.
// DerivedPath("a_part0.json", "_chunked") == "a_part0_chunked.json".
func DerivedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// Router dispatches reads and writes to a backend by path prefix.
type Router struct {
	mu    sync.Mutex
	local *LocalStore
	s3    Store
	azure Store
}

// NewRouter creates a router with the local backend ready and cloud
// backends initialized on demand.
func NewRouter() *Router {
	return &Router{local: NewLocalStore()}
}

// Read reads the object at path from its backend.
func (r *Router) Read(ctx context.Context, path string) ([]byte, error) {
	store, err := r.storeFor(ctx, path)
	if err != nil {
		return nil, err
	}
	return store.Read(ctx, path)
}

// Write writes the object at path to its backend.
func (r *Router) Write(ctx context.Context, path string, data []byte) error {
	store, err := r.storeFor(ctx, path)
	if err != nil {
		return err
	}
	return store.Write(ctx, path, data)
}

func (r *Router) storeFor(ctx context.Context, path string) (Store, error) {
	switch {
	case strings.HasPrefix(path, "s3://"):
		return r.s3Store(ctx)
	case strings.HasPrefix(path, "azure://"):
		return r.azureStore()
	default:
		return r.local, nil
	}
}

func (r *Router) s3Store(ctx context.Context) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s3 == nil {
		store, err := NewS3Store(ctx)
		if err != nil {
			return nil, err
		}
		r.s3 = store
	}
	return r.s3, nil
}

func (r *Router) azureStore() (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.azure == nil {
		store, err := NewAzureStore()
		if err != nil {
			return nil, err
		}
		r.azure = store
	}
	return r.azure, nil
}
