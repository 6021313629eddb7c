package worker

import (
	"context"
	"log/slog"

	"github.com/ragstage/ragstage/internal/index"
	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/queue"
)

// IndexWorker writes enriched payloads into the vector store. It is the
// terminal stage and publishes nothing.
type IndexWorker struct {
	store   objstore.Store
	indexer *index.Indexer
	logger  *slog.Logger
}

// NewIndexWorker creates the index stage handler.
func NewIndexWorker(store objstore.Store, indexer *index.Indexer, logger *slog.Logger) *IndexWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexWorker{store: store, indexer: indexer, logger: logger}
}

// Stage returns the stage name.
func (w *IndexWorker) Stage() string { return StageIndex }

// Handle indexes one payload. Store failures are transient so the task
// is redelivered; the indexer's registry makes the retry idempotent.
func (w *IndexWorker) Handle(ctx context.Context, task queue.TaskMessage) error {
	p, err := loadPayload(ctx, w.store, task.FilePath)
	if err != nil {
		return err
	}
	return w.indexer.Index(ctx, task.FilePath, p)
}
