package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ragstage/ragstage/internal/enrich"
	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/payload"
	"github.com/ragstage/ragstage/internal/queue"
)

// EnrichWorker annotates payload nodes with LLM-generated metadata and
// hands the result to the index stage.
type EnrichWorker struct {
	store    objstore.Store
	queue    queue.Queue
	enricher *enrich.Enricher
	logger   *slog.Logger
}

// NewEnrichWorker creates the enrich stage handler.
func NewEnrichWorker(store objstore.Store, q queue.Queue, enricher *enrich.Enricher, logger *slog.Logger) *EnrichWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichWorker{store: store, queue: q, enricher: enricher, logger: logger}
}

// Stage returns the stage name.
func (w *EnrichWorker) Stage() string { return StageEnrich }

// Handle enriches one payload. Per-node failures leave that node's
// metadata alone and the payload still moves on; only a canceled
// context stops the task. Enrichment methods are reset to none on the
// outgoing payload, partial failures included, so redelivery downstream
// never re-enriches.
func (w *EnrichWorker) Handle(ctx context.Context, task queue.TaskMessage) error {
	p, err := loadPayload(ctx, w.store, task.FilePath)
	if err != nil {
		return err
	}

	failed, err := w.enricher.Enrich(ctx, p)
	if err != nil {
		return err
	}
	if failed > 0 {
		w.logger.WarnContext(ctx, "payload enriched with failures",
			"file", task.FilePath, "failed", failed)
	} else {
		w.logger.InfoContext(ctx, "payload enriched",
			"file", task.FilePath, "nodes", len(p.Content.Nodes))
	}

	p.Content.Instructions.EnrichmentMethods = []payload.EnrichMethod{payload.EnrichNone}

	encoded, err := payload.Marshal(p)
	if err != nil {
		return err
	}

	out := objstore.DerivedPath(task.FilePath, "_enriched")
	if err := w.store.Write(ctx, out, encoded); err != nil {
		return fmt.Errorf("failed to write enriched payload; %w", err)
	}

	if err := w.queue.Publish(ctx, queue.TopicIndex, forward(task, out, StageEnrichComplete)); err != nil {
		return fmt.Errorf("failed to publish index task; %w", err)
	}
	return nil
}
