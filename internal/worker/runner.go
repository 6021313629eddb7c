package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ragstage/ragstage/internal/logging"
	"github.com/ragstage/ragstage/internal/metrics"
	"github.com/ragstage/ragstage/internal/queue"
)

// DefaultPollInterval is the sleep between empty fetches.
const DefaultPollInterval = time.Second

// Handler processes one decoded task for a stage.
type Handler interface {
	Stage() string
	Handle(ctx context.Context, task queue.TaskMessage) error
}

// Runner drives a stage handler off its queue until the context ends.
type Runner struct {
	queue        queue.Queue
	handler      Handler
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewRunner creates a runner for a stage handler.
func NewRunner(q queue.Queue, handler Handler, pollInterval time.Duration, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		queue:        q,
		handler:      handler,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run consumes messages until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("worker started", "stage", r.handler.Stage())

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("worker stopping", "stage", r.handler.Stage())
			return err
		}

		n, err := r.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Error("fetch failed", "stage", r.handler.Stage(), "error", err)
			sleep(ctx, r.pollInterval)
			continue
		}
		if n == 0 {
			sleep(ctx, r.pollInterval)
		}
	}
}

// Tick fetches one batch and processes every message in it, returning
// the number of messages fetched. Per-message failures are handled by
// the ack policy and never surface; only fetch errors do.
func (r *Runner) Tick(ctx context.Context) (int, error) {
	msgs, err := r.queue.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		r.process(ctx, msg)
	}
	return len(msgs), nil
}

func (r *Runner) process(ctx context.Context, msg queue.Message) {
	stage := r.handler.Stage()
	metrics.MessagesTotal.WithLabelValues(stage).Inc()

	task, err := queue.DecodeTaskMessage(msg.Data)
	if err != nil {
		r.logger.Warn("dropping undecodable message", "stage", stage, "id", msg.ID, "error", err)
		r.ack(ctx, msg.ID, "poison")
		return
	}

	ctx = logging.WithTraceID(ctx, task.TraceID)
	r.logger.InfoContext(ctx, "processing task", "stage", stage, "file", task.FilePath)

	start := time.Now()
	err = r.handler.Handle(ctx, task)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		r.ack(ctx, msg.ID, "processed")
	case IsMalformed(err):
		r.logger.WarnContext(ctx, "dropping malformed task",
			"stage", stage, "file", task.FilePath, "error", err)
		r.ack(ctx, msg.ID, "poison")
	default:
		// Left pending; the consumer group redelivers it.
		metrics.StageErrorsTotal.WithLabelValues(stage).Inc()
		r.logger.ErrorContext(ctx, "task failed, leaving pending",
			"stage", stage, "file", task.FilePath, "error", err)
	}
}

func (r *Runner) ack(ctx context.Context, id, outcome string) {
	if err := r.queue.Ack(ctx, id); err != nil {
		r.logger.ErrorContext(ctx, "ack failed", "stage", r.handler.Stage(), "id", id, "error", err)
		return
	}
	metrics.AcksTotal.WithLabelValues(r.handler.Stage(), outcome).Inc()
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
