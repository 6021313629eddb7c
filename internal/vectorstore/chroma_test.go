package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbedder returns a constant-dimension vector per text.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

func TestChromaStoreInsertAndQuery(t *testing.T) {
	var resolves, adds atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/collections":
			resolves.Add(1)
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "rag_chunks", req["name"])
			assert.Equal(t, true, req["get_or_create"])
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1"})
		case "/api/v1/collections/col-1/add":
			adds.Add(1)
			var req chromaAddRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"doc:1", "doc:2"}, req.IDs)
			require.Len(t, req.Embeddings, 2)
			assert.Equal(t, "first", req.Documents[0])
			w.WriteHeader(http.StatusCreated)
		case "/api/v1/collections/col-1/query":
			_ = json.NewEncoder(w).Encode(chromaQueryResponse{
				IDs:       [][]string{{"doc:1"}},
				Documents: [][]string{{"first"}},
				Metadatas: [][]map[string]string{{{"file_name": "a.xlsx"}}},
				Distances: [][]float32{{0.25}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewChromaStore(server.URL, "", "rag_chunks", false, fixedEmbedder{})
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []Document{
		{ID: "doc:1", Text: "first", Metadata: map[string]string{"file_name": "a.xlsx"}},
		{ID: "doc:2", Text: "second", Metadata: map[string]string{"file_name": "a.xlsx"}},
	}))

	// Second insert reuses the cached collection id
	require.NoError(t, store.Insert(ctx, []Document{{ID: "doc:3", Text: "first"}}))
	assert.Equal(t, int64(1), resolves.Load())

	results, err := store.Search(ctx, "first", SearchDense, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc:1", results[0].Document.ID)
	assert.Equal(t, "a.xlsx", results[0].Document.Metadata["file_name"])
	assert.InDelta(t, 0.75, results[0].Score, 1e-6)
}

func TestChromaStoreEvictsVanishedCollection(t *testing.T) {
	var resolves atomic.Int64
	gone := true

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/collections":
			resolves.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1"})
		case "/api/v1/collections/col-1/add":
			if gone {
				gone = false
				http.Error(w, "collection not found", http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewChromaStore(server.URL, "", "rag_chunks", false, fixedEmbedder{})

	err := store.Insert(context.Background(), []Document{{ID: "doc:1", Text: "x"}})
	require.NoError(t, err)
	// First resolve, 404 on add, re-resolve, successful retry
	assert.Equal(t, int64(2), resolves.Load())
}

func TestChromaStoreOverwriteDropsCollectionOnce(t *testing.T) {
	var deletes atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/collections/rag_chunks":
			deletes.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/v1/collections":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1"})
		case r.URL.Path == "/api/v1/collections/col-1/add":
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewChromaStore(server.URL, "tok", "rag_chunks", true, fixedEmbedder{})
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, []Document{{ID: "a", Text: "x"}}))
	require.NoError(t, store.Insert(ctx, []Document{{ID: "b", Text: "y"}}))
	assert.Equal(t, int64(1), deletes.Load())
}
