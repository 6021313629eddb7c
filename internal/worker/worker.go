// Package worker runs the pipeline stages: each worker consumes its
// stage topic, transforms the payload, persists the result, and hands a
// task to the next stage.
//
// Failure policy: malformed input (undecodable message, unsupported or
// missing payload) is acknowledged and dropped so it cannot wedge the
// stream; transient failures leave the message pending so the consumer
// group redelivers it.
package worker

import (
	"context"
	"errors"

	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/payload"
	"github.com/ragstage/ragstage/internal/queue"
)

// Stage names, used for consumer naming and logging.
const (
	StageClean  = "clean"
	StageChunk  = "chunk"
	StageEnrich = "enrich"
	StageIndex  = "index"
)

// Stage markers stamped on task messages as work moves downstream.
const (
	StageCleanComplete  = "clean_complete"
	StageChunkComplete  = "chunking_complete"
	StageEnrichComplete = "enrichment_complete"
)

// TopicForStage returns the topic a stage consumes.
func TopicForStage(stage string) (string, bool) {
	switch stage {
	case StageClean:
		return queue.TopicClean, true
	case StageChunk:
		return queue.TopicChunk, true
	case StageEnrich:
		return queue.TopicEnrich, true
	case StageIndex:
		return queue.TopicIndex, true
	default:
		return "", false
	}
}

// loadPayload reads and decodes a stage payload. A missing file or an
// undecodable payload is malformed; I/O failures are transient.
func loadPayload(ctx context.Context, store objstore.Store, path string) (*payload.Payload, error) {
	data, err := store.Read(ctx, path)
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, MarkMalformed(err)
	}
	if err != nil {
		return nil, err
	}

	p, err := payload.Unmarshal(data)
	if err != nil {
		return nil, MarkMalformed(err)
	}
	return p, nil
}

// forward builds the task message for the next stage, carrying the
// originating trace id through.
func forward(task queue.TaskMessage, path, stage string) queue.TaskMessage {
	next := queue.NewTaskMessage(path, stage)
	next.TraceID = task.TraceID
	return next
}
