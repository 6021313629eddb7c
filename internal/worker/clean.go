package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ragstage/ragstage/internal/cleaners"
	"github.com/ragstage/ragstage/internal/metrics"
	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/payload"
	"github.com/ragstage/ragstage/internal/queue"
)

// CleanWorker reads raw source files, cleans them into document rows,
// and persists one payload fragment per rowsPerFile rows. All fragments
// are written before any task is published, so a crash mid-stage never
// leaves downstream tasks pointing at missing payloads.
type CleanWorker struct {
	store       objstore.Store
	queue       queue.Queue
	rowsPerFile int
	logger      *slog.Logger
}

// NewCleanWorker creates the clean stage handler.
func NewCleanWorker(store objstore.Store, q queue.Queue, rowsPerFile int, logger *slog.Logger) *CleanWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanWorker{
		store:       store,
		queue:       q,
		rowsPerFile: rowsPerFile,
		logger:      logger,
	}
}

// Stage returns the stage name.
func (w *CleanWorker) Stage() string { return StageClean }

// Handle cleans one source file and fans its fragments out to the chunk
// stage. Each fragment gets its own trace id so downstream work for
// different fragments is distinguishable in logs.
func (w *CleanWorker) Handle(ctx context.Context, task queue.TaskMessage) error {
	data, err := w.store.Read(ctx, task.FilePath)
	if errors.Is(err, objstore.ErrNotFound) {
		return MarkMalformed(err)
	}
	if err != nil {
		return fmt.Errorf("failed to read source file; %w", err)
	}

	cleaner, err := cleaners.ForPath(task.FilePath)
	if errors.Is(err, cleaners.ErrUnsupported) {
		return MarkMalformed(err)
	}
	if err != nil {
		return err
	}

	frags, err := cleaner.Clean(data, w.rowsPerFile)
	if err != nil {
		// The file content itself is broken; retrying cannot help.
		return MarkMalformed(fmt.Errorf("failed to clean %s; %w", task.FilePath, err))
	}

	fileName := filepath.Base(task.FilePath)

	var tasks []queue.TaskMessage
	for idx := 0; ; idx++ {
		nodes, ok := frags.Next()
		if !ok {
			break
		}

		p := payload.New(nodes, map[string]any{
			"file_name":      fileName,
			"fragment_index": idx,
			"source":         task.FilePath,
		})
		encoded, err := payload.Marshal(p)
		if err != nil {
			return err
		}

		path := objstore.FragmentPath(task.FilePath, idx)
		if err := w.store.Write(ctx, path, encoded); err != nil {
			return fmt.Errorf("failed to write fragment; %w", err)
		}
		metrics.FragmentsTotal.Inc()

		tasks = append(tasks, queue.NewTaskMessage(path, StageCleanComplete))
	}

	for _, t := range tasks {
		if err := w.queue.Publish(ctx, queue.TopicChunk, t); err != nil {
			return fmt.Errorf("failed to publish fragment task; %w", err)
		}
	}

	w.logger.InfoContext(ctx, "file cleaned", "file", fileName, "fragments", len(tasks))
	return nil
}
