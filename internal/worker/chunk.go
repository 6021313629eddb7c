package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ragstage/ragstage/internal/chunkers"
	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/payload"
	"github.com/ragstage/ragstage/internal/queue"
)

// ChunkWorker splits payload nodes according to the payload's own
// instructions and hands the result to the enrich stage.
type ChunkWorker struct {
	store  objstore.Store
	queue  queue.Queue
	logger *slog.Logger
}

// NewChunkWorker creates the chunk stage handler.
func NewChunkWorker(store objstore.Store, q queue.Queue, logger *slog.Logger) *ChunkWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkWorker{store: store, queue: q, logger: logger}
}

// Stage returns the stage name.
func (w *ChunkWorker) Stage() string { return StageChunk }

// Handle chunks one payload. The chunk method is reset to none on the
// outgoing payload so a redelivered downstream task never re-chunks,
// and a payload that asked for no enrichment is upgraded to the default
// summary and keywords methods.
func (w *ChunkWorker) Handle(ctx context.Context, task queue.TaskMessage) error {
	p, err := loadPayload(ctx, w.store, task.FilePath)
	if err != nil {
		return err
	}

	in := &p.Content.Instructions
	chunker := chunkers.ForMethod(in.ChunkMethod, in.ChunkSize, in.ChunkOverlap)

	nodes := chunker.Split(p.Content.Nodes)
	strategyMeta := chunker.Metadata()
	for i := range nodes {
		nodes[i].Metadata = chunkers.MergeMetadata(nodes[i].Metadata, strategyMeta)
	}

	w.logger.InfoContext(ctx, "payload chunked",
		"file", task.FilePath,
		"method", in.ChunkMethod,
		"nodes_in", len(p.Content.Nodes),
		"nodes_out", len(nodes),
	)

	p.Content.Nodes = nodes
	in.ChunkMethod = payload.ChunkNone
	if in.EnrichmentIsNone() {
		in.EnrichmentMethods = []payload.EnrichMethod{payload.EnrichSummary, payload.EnrichKeywords}
	}

	encoded, err := payload.Marshal(p)
	if err != nil {
		return err
	}

	out := objstore.DerivedPath(task.FilePath, "_chunked")
	if err := w.store.Write(ctx, out, encoded); err != nil {
		return fmt.Errorf("failed to write chunked payload; %w", err)
	}

	if err := w.queue.Publish(ctx, queue.TopicEnrich, forward(task, out, StageChunkComplete)); err != nil {
		return fmt.Errorf("failed to publish enrich task; %w", err)
	}
	return nil
}
