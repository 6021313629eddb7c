package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ragstage/ragstage/internal/embeddings"
)

// ChromaStore is the dense retriever, backed by a Chroma server. Texts
// are embedded through the configured embedder on both write and query.
//
// The collection id is resolved once and cached; if the server reports
// the collection gone (dropped or recreated elsewhere), the cache entry
// is evicted and the operation retried against a freshly resolved id.
type ChromaStore struct {
	baseURL    string
	token      string
	collection string
	overwrite  bool
	embedder   embeddings.Embedder
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	collectionID string
	didOverwrite bool
}

// ChromaOption configures a ChromaStore.
type ChromaOption func(*ChromaStore)

// WithChromaHTTPClient sets the HTTP client.
func WithChromaHTTPClient(client *http.Client) ChromaOption {
	return func(s *ChromaStore) {
		s.httpClient = client
	}
}

// WithChromaLogger sets the logger.
func WithChromaLogger(logger *slog.Logger) ChromaOption {
	return func(s *ChromaStore) {
		s.logger = logger
	}
}

// NewChromaStore creates a dense store on the Chroma server at baseURL.
// With overwrite set, the collection is dropped and recreated on first use.
func NewChromaStore(baseURL, token, collection string, overwrite bool, embedder embeddings.Embedder, opts ...ChromaOption) *ChromaStore {
	s := &ChromaStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		collection: collection,
		overwrite:  overwrite,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type chromaAddRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

type chromaQueryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float32           `json:"distances"`
}

// Insert embeds and adds the documents to the collection.
func (s *ChromaStore) Insert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch; %w", err)
	}

	req := chromaAddRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: vectors,
		Documents:  texts,
		Metadatas:  make([]map[string]string, len(docs)),
	}
	for i, doc := range docs {
		req.IDs[i] = doc.ID
		req.Metadatas[i] = doc.Metadata
	}

	return s.withCollection(ctx, func(id string) error {
		return s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/add", req, nil)
	})
}

// DeleteBatch removes the ids from the collection.
func (s *ChromaStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string][]string{"ids": ids}
	return s.withCollection(ctx, func(id string) error {
		return s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/delete", body, nil)
	})
}

// Search embeds the query and returns the nearest topK documents.
func (s *ChromaStore) Search(ctx context.Context, query string, mode SearchMode, topK int) ([]Result, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query; %w", err)
	}

	req := chromaQueryRequest{
		QueryEmbeddings: vectors,
		NResults:        topK,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	var resp chromaQueryResponse
	err = s.withCollection(ctx, func(id string) error {
		return s.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", req, &resp)
	})
	if err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		r := Result{Document: Document{ID: id}}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			r.Document.Text = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			r.Document.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Score = 1 - resp.Distances[0][i]
		}
		results = append(results, r)
	}
	return results, nil
}

// withCollection runs fn with the cached collection id, re-resolving the
// id and retrying once if the server no longer knows the collection.
func (s *ChromaStore) withCollection(ctx context.Context, fn func(id string) error) error {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return err
	}

	err = fn(id)
	if !isMissingCollection(err) {
		return err
	}

	s.logger.WarnContext(ctx, "collection vanished, re-resolving", "collection", s.collection)
	s.evict()

	id, rerr := s.resolveCollection(ctx)
	if rerr != nil {
		return rerr
	}
	return fn(id)
}

func (s *ChromaStore) resolveCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionID != "" {
		return s.collectionID, nil
	}

	if s.overwrite && !s.didOverwrite {
		err := s.do(ctx, http.MethodDelete, "/api/v1/collections/"+s.collection, nil, nil)
		if err != nil && !isMissingCollection(err) {
			return "", fmt.Errorf("failed to drop collection %q; %w", s.collection, err)
		}
		s.didOverwrite = true
	}

	var created struct {
		ID string `json:"id"`
	}
	body := map[string]any{"name": s.collection, "get_or_create": true}
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections", body, &created); err != nil {
		return "", fmt.Errorf("failed to resolve collection %q; %w", s.collection, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("collection %q resolved to empty id", s.collection)
	}

	s.collectionID = created.ID
	return s.collectionID, nil
}

func (s *ChromaStore) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionID = ""
}

// chromaAPIError carries the HTTP status for missing-collection detection.
type chromaAPIError struct {
	Status int
	Body   string
}

func (e *chromaAPIError) Error() string {
	return fmt.Sprintf("chroma returned %d: %s", e.Status, e.Body)
}

func isMissingCollection(err error) bool {
	var apiErr *chromaAPIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func (s *ChromaStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request; %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request; %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed; %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &chromaAPIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s; %w", path, err)
		}
	}
	return nil
}
