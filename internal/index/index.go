// Package index writes enriched payload nodes into the vector store in
// idempotent batches.
//
// Chunk ids are derived from the payload path plus each node's internal
// id (or a content hash when absent), so re-delivered work overwrites
// rather than duplicates. Progress is tracked in the status registry;
// with strict consistency enabled, a batch whose progress cannot be
// recorded is deleted from the store again before the error surfaces,
// leaving earlier batches in place for the retry to skip.
package index

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ragstage/ragstage/internal/metrics"
	"github.com/ragstage/ragstage/internal/payload"
	"github.com/ragstage/ragstage/internal/registry"
	"github.com/ragstage/ragstage/internal/vectorstore"
)

// DefaultBatchSize is the number of chunks written per store call.
const DefaultBatchSize = 50

// metadataFields are the node metadata keys carried onto documents,
// flattened to strings with "" for missing values.
var metadataFields = []string{"author", "title", "keywords", "summary"}

// Indexer writes payloads to the store and tracks progress.
type Indexer struct {
	store     vectorstore.Store
	registry  registry.Registry
	batchSize int
	strict    bool
	logger    *slog.Logger
}

// New creates an Indexer. With strict set, a batch that inserts but
// fails to record its progress is rolled back with a compensating
// delete of that batch's chunks.
func New(store vectorstore.Store, reg registry.Registry, batchSize int, strict bool, logger *slog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		store:     store,
		registry:  reg,
		batchSize: batchSize,
		strict:    strict,
		logger:    logger,
	}
}

// FileHash returns the deterministic registry key for a source file
// name: a version-5 style UUID over the DNS namespace.
func FileHash(fileName string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fileName)).String()
}

// Index writes the payload's nodes to the store. Already-processed
// files return immediately; already-processed chunks are skipped.
func (ix *Indexer) Index(ctx context.Context, filePath string, p *payload.Payload) error {
	fileName := filepath.Base(filePath)

	done, err := ix.registry.IsFileProcessed(ctx, fileName)
	if err != nil {
		return fmt.Errorf("failed to check file status; %w", err)
	}
	if done {
		ix.logger.InfoContext(ctx, "file already indexed, skipping", "file", fileName)
		return nil
	}

	processed, err := ix.registry.ProcessedChunks(ctx, fileName)
	if err != nil {
		return fmt.Errorf("failed to read chunk progress; %w", err)
	}

	docs := BuildDocuments(filePath, p)

	pending := docs[:0:0]
	for _, doc := range docs {
		if !processed[doc.ID] {
			pending = append(pending, doc)
		}
	}

	if err := ix.writeBatches(ctx, fileName, pending); err != nil {
		return err
	}

	if err := ix.registry.MarkFileComplete(ctx, fileName, FileHash(fileName)); err != nil {
		return fmt.Errorf("failed to mark file complete; %w", err)
	}

	ix.logger.InfoContext(ctx, "payload indexed",
		"file", fileName,
		"chunks", len(pending),
		"skipped", len(docs)-len(pending),
	)
	return nil
}

// writeBatches inserts the documents batch by batch. The compensating
// rollback is scoped to the failing batch: chunks recorded by earlier
// batches stay in both the store and the registry, so a retry resumes
// exactly where this run stopped.
func (ix *Indexer) writeBatches(ctx context.Context, fileName string, docs []vectorstore.Document) error {
	for start := 0; start < len(docs); start += ix.batchSize {
		end := min(start+ix.batchSize, len(docs))
		batch := docs[start:end]

		ids := make([]string, len(batch))
		for i, doc := range batch {
			ids[i] = doc.ID
		}

		// Nothing from this batch is in the store yet; no rollback.
		if err := ix.store.Insert(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert batch; %w", err)
		}

		metrics.IndexBatchesTotal.Inc()
		metrics.IndexedChunksTotal.Add(float64(len(batch)))

		if err := ix.registry.MarkChunksProcessed(ctx, fileName, ids); err != nil {
			if ix.strict {
				ix.logger.WarnContext(ctx, "batch progress not recorded, rolling back inserted chunks",
					"inserted", len(ids), "error", err)
				metrics.IndexRollbacksTotal.Inc()
				if delErr := ix.store.DeleteBatch(ctx, ids); delErr != nil {
					ix.logger.ErrorContext(ctx, "rollback failed, store may hold unrecorded chunks",
						"error", delErr)
				}
			}
			return fmt.Errorf("failed to record chunk progress; %w", err)
		}
	}
	return nil
}

// BuildDocuments converts payload nodes to store documents, skipping
// nodes with empty content and flattening metadata to strings.
func BuildDocuments(filePath string, p *payload.Payload) []vectorstore.Document {
	fileName := filepath.Base(filePath)

	var docs []vectorstore.Document
	for _, node := range p.Content.Nodes {
		if strings.TrimSpace(node.PageContent) == "" {
			continue
		}

		internalID := flatten(node.Metadata["internal_id"])
		if internalID == "" {
			sum := md5.Sum([]byte(node.PageContent))
			internalID = hex.EncodeToString(sum[:])
		}

		meta := map[string]string{
			"file_name":   fileName,
			"internal_id": internalID,
			"insert_date": insertDate(node.Metadata),
		}
		for _, field := range metadataFields {
			meta[field] = flatten(node.Metadata[field])
		}

		docs = append(docs, vectorstore.Document{
			ID:       fmt.Sprintf("%s:%s", filePath, internalID),
			Text:     node.PageContent,
			Metadata: meta,
		})
	}
	return docs
}

// insertDate reads the canonical key with a fallback to the spelling
// the Excel cleaner emits.
func insertDate(meta map[string]any) string {
	if v := flatten(meta["insert_date"]); v != "" {
		return v
	}
	return flatten(meta["insertDate"])
}

// flatten renders a metadata value as a string; lists join with "|".
func flatten(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "|")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = flatten(item)
		}
		return strings.Join(parts, "|")
	default:
		return fmt.Sprint(val)
	}
}
