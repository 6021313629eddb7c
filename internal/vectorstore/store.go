// Package vectorstore persists and retrieves indexed chunks.
//
// The store is a dual-write composition: a dense retriever (Chroma with
// TEI embeddings) and a sparse keyword retriever (Elasticsearch). Either
// half can be disabled; hybrid search merges both result lists.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// SearchMode selects which retrievers serve a query.
type SearchMode string

const (
	SearchDense  SearchMode = "dense"
	SearchSparse SearchMode = "sparse"
	SearchHybrid SearchMode = "hybrid"
)

// Document is an indexed chunk. Metadata is flat string-to-string; the
// index stage flattens node metadata before handing documents over.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Result is a scored search hit.
type Result struct {
	Document Document
	Score    float32
}

// Store is the contract shared by the dense, sparse and composed stores.
type Store interface {
	Insert(ctx context.Context, docs []Document) error
	DeleteBatch(ctx context.Context, ids []string) error
	Search(ctx context.Context, query string, mode SearchMode, topK int) ([]Result, error)
}

// Hybrid composes a dense and a sparse store. Writes go to every
// enabled half; a failed write on either half fails the whole insert so
// the indexer can roll back.
type Hybrid struct {
	dense  Store
	sparse Store
	logger *slog.Logger
}

// NewHybrid creates the composed store. Either half may be nil.
func NewHybrid(dense, sparse Store, logger *slog.Logger) (*Hybrid, error) {
	if dense == nil && sparse == nil {
		return nil, errors.New("at least one of dense, sparse store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hybrid{dense: dense, sparse: sparse, logger: logger}, nil
}

// Insert writes the documents to every enabled half.
func (h *Hybrid) Insert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if h.dense != nil {
		if err := h.dense.Insert(ctx, docs); err != nil {
			return fmt.Errorf("dense insert failed; %w", err)
		}
	}
	if h.sparse != nil {
		if err := h.sparse.Insert(ctx, docs); err != nil {
			return fmt.Errorf("sparse insert failed; %w", err)
		}
	}
	return nil
}

// DeleteBatch removes the ids from every enabled half. Both halves are
// attempted even if one fails.
func (h *Hybrid) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var errs []error
	if h.dense != nil {
		if err := h.dense.DeleteBatch(ctx, ids); err != nil {
			errs = append(errs, fmt.Errorf("dense delete failed; %w", err))
		}
	}
	if h.sparse != nil {
		if err := h.sparse.DeleteBatch(ctx, ids); err != nil {
			errs = append(errs, fmt.Errorf("sparse delete failed; %w", err))
		}
	}
	return errors.Join(errs...)
}

// Search serves the query from the requested retrievers. Hybrid mode
// over-fetches two times topK from each half, deduplicates by id keeping
// the higher score, and returns the top topK.
func (h *Hybrid) Search(ctx context.Context, query string, mode SearchMode, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}

	switch mode {
	case SearchDense:
		if h.dense == nil {
			return nil, errors.New("dense retrieval is disabled")
		}
		return h.dense.Search(ctx, query, mode, topK)
	case SearchSparse:
		if h.sparse == nil {
			return nil, errors.New("sparse retrieval is disabled")
		}
		return h.sparse.Search(ctx, query, mode, topK)
	case SearchHybrid:
		return h.searchHybrid(ctx, query, topK)
	default:
		return nil, fmt.Errorf("unknown search mode %q", mode)
	}
}

func (h *Hybrid) searchHybrid(ctx context.Context, query string, topK int) ([]Result, error) {
	var merged []Result

	for _, half := range []Store{h.dense, h.sparse} {
		if half == nil {
			continue
		}
		results, err := half.Search(ctx, query, SearchHybrid, 2*topK)
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}

	best := make(map[string]Result, len(merged))
	for _, r := range merged {
		if prev, ok := best[r.Document.ID]; !ok || r.Score > prev.Score {
			best[r.Document.ID] = r
		}
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
