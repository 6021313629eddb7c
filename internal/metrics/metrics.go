// Package metrics provides Prometheus metrics for the pipeline workers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "ragstage"
)

// Stage metrics track message flow through the pipeline.
var (
	// MessagesTotal is the total number of messages fetched per stage.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Total number of messages fetched",
	}, []string{"stage"})

	// AcksTotal is the total number of acknowledged messages by outcome.
	// Outcome is "processed" for successful work and "poison" for
	// malformed messages dropped from the queue.
	AcksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acks_total",
		Help:      "Total number of acknowledged messages",
	}, []string{"stage", "outcome"})

	// StageErrorsTotal is the total number of transient processing
	// failures that left the message pending for retry.
	StageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_errors_total",
		Help:      "Total number of transient stage failures",
	}, []string{"stage"})

	// StageDuration is a histogram of per-message processing duration.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of per-message stage processing in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"stage"})
)

// Clean stage metrics.
var (
	// FragmentsTotal is the total number of payload fragments emitted.
	FragmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fragments_total",
		Help:      "Total number of payload fragments emitted by the clean stage",
	})
)

// Enrichment metrics.
var (
	// EnrichmentsTotal is the total number of per-node enrichment
	// attempts by method and result.
	EnrichmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrichments_total",
		Help:      "Total number of node enrichment attempts",
	}, []string{"method", "result"})

	// LLMRequestDuration is a histogram of LLM request duration in seconds.
	LLMRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Duration of LLM completion requests in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~102s
	})
)

// Index stage metrics.
var (
	// IndexBatchesTotal is the total number of chunk batches written.
	IndexBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_batches_total",
		Help:      "Total number of chunk batches written to the store",
	})

	// IndexedChunksTotal is the total number of chunks written.
	IndexedChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "indexed_chunks_total",
		Help:      "Total number of chunks written to the store",
	})

	// IndexRollbacksTotal is the total number of compensating rollbacks.
	IndexRollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_rollbacks_total",
		Help:      "Total number of compensating rollbacks after a failed batch",
	})
)
