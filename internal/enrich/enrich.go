// Package enrich annotates payload nodes with LLM-generated metadata.
//
// All requested methods for a node are answered by a single model call
// whose prompt consolidates every task; nodes are processed concurrently
// under a weighted semaphore. Failures are isolated: when a call or its
// response is unusable the failure is logged and the node's metadata is
// left untouched, and the payload continues downstream.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/ragstage/ragstage/internal/llm"
	"github.com/ragstage/ragstage/internal/metrics"
	"github.com/ragstage/ragstage/internal/payload"
)

// DefaultMaxConcurrency bounds in-flight node enrichments.
const DefaultMaxConcurrency = 5

// Enricher runs enrichment strategies over payload nodes.
type Enricher struct {
	client     llm.Client
	sem        *semaphore.Weighted
	logger     *slog.Logger
	strategies map[payload.EnrichMethod]Strategy
}

// New creates an Enricher with the given concurrency cap.
func New(client llm.Client, maxConcurrency int, logger *slog.Logger) *Enricher {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		client:     client,
		sem:        semaphore.NewWeighted(int64(maxConcurrency)),
		logger:     logger,
		strategies: Strategies(),
	}
}

// Enrich applies the payload's requested enrichment methods to every
// node with content, mutating node metadata in place. It returns the
// number of failed enrichment attempts; the error is non-nil only when
// the context is canceled.
func (e *Enricher) Enrich(ctx context.Context, p *payload.Payload) (int, error) {
	var active []Strategy
	for _, method := range p.Content.Instructions.EnrichmentMethods {
		if method == payload.EnrichNone {
			continue
		}
		strategy, ok := e.strategies[method]
		if !ok {
			e.logger.WarnContext(ctx, "skipping unknown enrichment method", "method", method)
			continue
		}
		active = append(active, strategy)
	}
	if len(active) == 0 {
		return 0, nil
	}

	prompt := BuildPrompt(active)

	var failed atomic.Int64
	var wg sync.WaitGroup

	for i := range p.Content.Nodes {
		node := &p.Content.Nodes[i]
		if strings.TrimSpace(node.PageContent) == "" {
			continue
		}

		if err := e.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return int(failed.Load()), err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer e.sem.Release(1)
			failed.Add(int64(e.enrichNode(ctx, prompt, active, node)))
		}()
	}

	wg.Wait()
	return int(failed.Load()), nil
}

// enrichNode issues the single consolidated model call for one node and
// merges the decoded fields into its metadata. When the call fails or
// the response does not decode, the node's metadata is not modified at
// all; a field that is missing or invalid in an otherwise usable
// response is skipped without writing anything under its key.
func (e *Enricher) enrichNode(ctx context.Context, prompt string, active []Strategy, node *payload.Node) int {
	raw, err := e.client.Complete(ctx, prompt, node.PageContent)
	if err == nil {
		var obj map[string]any
		if obj, err = ParseObject(raw); err == nil {
			return e.merge(ctx, active, node, obj)
		}
	}

	for _, strategy := range active {
		metrics.EnrichmentsTotal.WithLabelValues(string(strategy.Method), "failed").Inc()
	}
	e.logger.WarnContext(ctx, "enrichment failed, leaving node metadata untouched",
		"internal_id", internalID(node),
		"error", err,
	)
	return len(active)
}

func (e *Enricher) merge(ctx context.Context, active []Strategy, node *payload.Node, obj map[string]any) int {
	failed := 0
	for _, strategy := range active {
		raw, ok := obj[strategy.OutputField]
		if !ok {
			failed++
			metrics.EnrichmentsTotal.WithLabelValues(string(strategy.Method), "failed").Inc()
			e.logger.WarnContext(ctx, "enrichment response missing field",
				"method", strategy.Method,
				"field", strategy.OutputField,
				"internal_id", internalID(node),
			)
			continue
		}

		value, err := strategy.Validate(raw)
		if err != nil {
			failed++
			metrics.EnrichmentsTotal.WithLabelValues(string(strategy.Method), "failed").Inc()
			e.logger.WarnContext(ctx, "enrichment result rejected",
				"method", strategy.Method,
				"internal_id", internalID(node),
				"error", err,
			)
			continue
		}

		metrics.EnrichmentsTotal.WithLabelValues(string(strategy.Method), "ok").Inc()
		if node.Metadata == nil {
			node.Metadata = map[string]any{}
		}
		node.Metadata[strategy.OutputField] = value
	}
	return failed
}

func internalID(node *payload.Node) any {
	return node.Metadata["internal_id"]
}
