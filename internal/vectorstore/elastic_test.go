package vectorstore

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElasticStoreInsert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_bulk", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))

		var lines []map[string]any
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var line map[string]any
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
			lines = append(lines, line)
		}
		require.Len(t, lines, 4) // two action lines, two documents

		action := lines[0]["index"].(map[string]any)
		assert.Equal(t, "rag_keywords", action["_index"])
		assert.Equal(t, "doc:1", action["_id"])
		assert.Equal(t, "first text", lines[1]["text"])

		_ = json.NewEncoder(w).Encode(map[string]any{"errors": false})
	}))
	defer server.Close()

	store := NewElasticStore(server.URL, "rag_keywords")

	err := store.Insert(context.Background(), []Document{
		{ID: "doc:1", Text: "first text", Metadata: map[string]string{"author": "lee"}},
		{ID: "doc:2", Text: "second text"},
	})
	require.NoError(t, err)
}

func TestElasticStoreBulkItemFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": true,
			"items": []map[string]any{
				{"index": map[string]any{"status": 429}},
			},
		})
	}))
	defer server.Close()

	store := NewElasticStore(server.URL, "rag_keywords")

	err := store.Insert(context.Background(), []Document{{ID: "a", Text: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestElasticStoreDeleteIgnoresNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": true,
			"items": []map[string]any{
				{"delete": map[string]any{"status": 404, "result": "not_found"}},
			},
		})
	}))
	defer server.Close()

	store := NewElasticStore(server.URL, "rag_keywords")
	assert.NoError(t, store.DeleteBatch(context.Background(), []string{"missing"}))
}

func TestElasticStoreSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rag_keywords/_search", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(5), req["size"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"hits": []map[string]any{
					{
						"_id":     "doc:1",
						"_score":  2.5,
						"_source": map[string]any{"text": "harbor news", "metadata": map[string]string{"author": "lee"}},
					},
				},
			},
		})
	}))
	defer server.Close()

	store := NewElasticStore(server.URL, "rag_keywords")

	results, err := store.Search(context.Background(), "harbor", SearchSparse, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc:1", results[0].Document.ID)
	assert.Equal(t, float32(2.5), results[0].Score)
	assert.Equal(t, "lee", results[0].Document.Metadata["author"])
}
