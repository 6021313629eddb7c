package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ElasticStore is the sparse keyword retriever, backed by an
// Elasticsearch index written through the bulk API.
type ElasticStore struct {
	baseURL    string
	index      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ElasticOption configures an ElasticStore.
type ElasticOption func(*ElasticStore)

// WithElasticHTTPClient sets the HTTP client.
func WithElasticHTTPClient(client *http.Client) ElasticOption {
	return func(s *ElasticStore) {
		s.httpClient = client
	}
}

// WithElasticLogger sets the logger.
func WithElasticLogger(logger *slog.Logger) ElasticOption {
	return func(s *ElasticStore) {
		s.logger = logger
	}
}

// NewElasticStore creates a sparse store on the cluster at baseURL.
func NewElasticStore(baseURL, index string, opts ...ElasticOption) *ElasticStore {
	s := &ElasticStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type elasticDoc struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Insert bulk-indexes the documents.
func (s *ElasticStore) Insert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		action := map[string]any{"index": map[string]string{"_index": s.index, "_id": doc.ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to encode bulk action; %w", err)
		}
		if err := enc.Encode(elasticDoc{Text: doc.Text, Metadata: doc.Metadata}); err != nil {
			return fmt.Errorf("failed to encode bulk document; %w", err)
		}
	}

	return s.bulk(ctx, &body)
}

// DeleteBatch bulk-deletes the ids; missing ids are not an error.
func (s *ElasticStore) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, id := range ids {
		action := map[string]any{"delete": map[string]string{"_index": s.index, "_id": id}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to encode bulk action; %w", err)
		}
	}

	return s.bulk(ctx, &body)
}

func (s *ElasticStore) bulk(ctx context.Context, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/_bulk", body)
	if err != nil {
		return fmt.Errorf("failed to create bulk request; %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bulk request failed; %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("bulk request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int    `json:"status"`
			Result string `json:"result"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode bulk response; %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for op, detail := range item {
				// not_found on delete is benign
				if detail.Status >= 400 && !(op == "delete" && detail.Status == http.StatusNotFound) {
					return fmt.Errorf("bulk %s item failed with status %d", op, detail.Status)
				}
			}
		}
	}
	return nil
}

type elasticSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string     `json:"_id"`
			Score  float32    `json:"_score"`
			Source elasticDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a match query over the text field.
func (s *ElasticStore) Search(ctx context.Context, query string, mode SearchMode, topK int) ([]Result, error) {
	body, err := json.Marshal(map[string]any{
		"size":  topK,
		"query": map[string]any{"match": map[string]any{"text": query}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request; %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", s.baseURL, s.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request; %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed; %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed elasticSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response; %w", err)
	}

	results := make([]Result, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		results = append(results, Result{
			Document: Document{ID: hit.ID, Text: hit.Source.Text, Metadata: hit.Source.Metadata},
			Score:    hit.Score,
		})
	}
	return results, nil
}
