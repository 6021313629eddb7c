package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragstage/ragstage/internal/enrich"
	"github.com/ragstage/ragstage/internal/index"
	"github.com/ragstage/ragstage/internal/objstore"
	"github.com/ragstage/ragstage/internal/payload"
	"github.com/ragstage/ragstage/internal/queue"
	"github.com/ragstage/ragstage/internal/registry"
	"github.com/ragstage/ragstage/internal/vectorstore"
)

// memStore is an in-memory object store for tests.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (s *memStore) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", objstore.ErrNotFound, path)
	}
	return data, nil
}

func (s *memStore) Write(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

func (s *memStore) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

// fakeLLM answers the consolidated enrichment prompt with a value for
// every field it asks for. With failKeywords set the keywords field is
// omitted from the answer.
type fakeLLM struct {
	failKeywords bool
}

func (c *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	var parts []string
	if strings.Contains(system, `"summary"`) {
		parts = append(parts, `"summary": "a short summary"`)
	}
	if strings.Contains(system, `"keywords"`) && !c.failKeywords {
		parts = append(parts, `"keywords": ["harbor", "port"]`)
	}
	if strings.Contains(system, `"suggested_questions"`) {
		parts = append(parts, `"suggested_questions": ["what happened?", "where?", "when?"]`)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func writePayload(t *testing.T, store objstore.Store, path string, p *payload.Payload) {
	t.Helper()
	data, err := payload.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), path, data))
}

func readPayload(t *testing.T, store objstore.Store, path string) *payload.Payload {
	t.Helper()
	data, err := store.Read(context.Background(), path)
	require.NoError(t, err)
	p, err := payload.Unmarshal(data)
	require.NoError(t, err)
	return p
}

func drain(t *testing.T, r *Runner) {
	t.Helper()
	for {
		n, err := r.Tick(context.Background())
		require.NoError(t, err)
		if n == 0 {
			return
		}
	}
}

func decodeTasks(t *testing.T, hub *queue.MemoryHub, topic string) []queue.TaskMessage {
	t.Helper()
	q := hub.Queue(topic, 100)
	msgs, err := q.Fetch(context.Background())
	require.NoError(t, err)

	tasks := make([]queue.TaskMessage, len(msgs))
	for i, msg := range msgs {
		task, err := queue.DecodeTaskMessage(msg.Data)
		require.NoError(t, err)
		tasks[i] = task
	}
	return tasks
}

func TestPipelineEndToEnd(t *testing.T) {
	hub := queue.NewMemoryHub()
	store := newMemStore()
	vstore := vectorstore.NewMemoryStore()
	reg := registry.NewMemory()

	records, err := json.Marshal([]string{
		"the harbor reopened after the storm",
		"container traffic doubled in march",
		"a new crane was installed at pier four",
	})
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), "/data/news.json", records))

	cleanQ := hub.Queue(queue.TopicClean, 10)
	chunkQ := hub.Queue(queue.TopicChunk, 10)
	enrichQ := hub.Queue(queue.TopicEnrich, 10)
	indexQ := hub.Queue(queue.TopicIndex, 10)

	runners := []*Runner{
		NewRunner(cleanQ, NewCleanWorker(store, cleanQ, 2, nil), 0, nil),
		NewRunner(chunkQ, NewChunkWorker(store, chunkQ, nil), 0, nil),
		NewRunner(enrichQ, NewEnrichWorker(store, enrichQ, enrich.New(&fakeLLM{}, 2, nil), nil), 0, nil),
		NewRunner(indexQ, NewIndexWorker(store, index.New(vstore, reg, 10, true, nil), nil), 0, nil),
	}

	require.NoError(t, cleanQ.Publish(context.Background(),
		queue.TopicClean, queue.NewTaskMessage("/data/news.json", StageClean)))

	for _, r := range runners {
		drain(t, r)
	}

	// Three rows at two rows per fragment give two fragments.
	require.True(t, store.has("/data/news_part0.json"))
	require.True(t, store.has("/data/news_part1.json"))
	require.True(t, store.has("/data/news_part0_chunked.json"))
	require.True(t, store.has("/data/news_part0_chunked_enriched.json"))

	assert.Equal(t, 3, vstore.Len())

	enriched := readPayload(t, store, "/data/news_part0_chunked_enriched.json")
	require.Len(t, enriched.Content.Nodes, 2)
	node := enriched.Content.Nodes[0]
	assert.Equal(t, "a short summary", node.Metadata["summary"])
	assert.Equal(t, "part0_0", node.Metadata["internal_id"])
	assert.True(t, enriched.Content.Instructions.EnrichmentIsNone())

	doc, ok := vstore.Get("/data/news_part0_chunked_enriched.json:part0_0")
	require.True(t, ok)
	assert.Equal(t, "the harbor reopened after the storm", doc.Text)
	assert.Equal(t, "harbor|port", doc.Metadata["keywords"])
	assert.Equal(t, "a short summary", doc.Metadata["summary"])

	for _, frag := range []string{"news_part0_chunked_enriched.json", "news_part1_chunked_enriched.json"} {
		done, err := reg.IsFileProcessed(context.Background(), frag)
		require.NoError(t, err)
		assert.True(t, done, frag)
	}
}

func TestCleanWorkerFansOutFragments(t *testing.T) {
	hub := queue.NewMemoryHub()
	store := newMemStore()
	q := hub.Queue(queue.TopicClean, 10)

	records, err := json.Marshal([]string{"one", "two", "three", "four", "five"})
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), "/data/rows.json", records))

	w := NewCleanWorker(store, q, 2, nil)
	require.NoError(t, w.Handle(context.Background(), queue.NewTaskMessage("/data/rows.json", StageClean)))

	tasks := decodeTasks(t, hub, queue.TopicChunk)
	require.Len(t, tasks, 3)

	seen := map[string]bool{}
	for i, task := range tasks {
		assert.Equal(t, fmt.Sprintf("/data/rows_part%d.json", i), task.FilePath)
		assert.Equal(t, StageCleanComplete, task.Stage)
		assert.NotEmpty(t, task.TraceID)
		seen[task.TraceID] = true
		require.True(t, store.has(task.FilePath))
	}
	// Every fragment starts its own trace.
	assert.Len(t, seen, 3)

	last := readPayload(t, store, "/data/rows_part2.json")
	require.Len(t, last.Content.Nodes, 1)
	assert.Equal(t, "five", last.Content.Nodes[0].PageContent)
	assert.Equal(t, "rows.json", last.Metadata["file_name"])
	assert.EqualValues(t, 2, last.Metadata["fragment_index"])
	assert.Equal(t, "/data/rows.json", last.Metadata["source"])
}

func TestCleanWorkerMalformedInputs(t *testing.T) {
	hub := queue.NewMemoryHub()
	store := newMemStore()
	q := hub.Queue(queue.TopicClean, 10)
	w := NewCleanWorker(store, q, 10, nil)

	// Missing source file
	err := w.Handle(context.Background(), queue.NewTaskMessage("/data/ghost.json", StageClean))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	// Unsupported extension
	require.NoError(t, store.Write(context.Background(), "/data/movie.mp4", []byte("binary")))
	err = w.Handle(context.Background(), queue.NewTaskMessage("/data/movie.mp4", StageClean))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	// Broken file content
	require.NoError(t, store.Write(context.Background(), "/data/broken.json", []byte("{not json")))
	err = w.Handle(context.Background(), queue.NewTaskMessage("/data/broken.json", StageClean))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	assert.Zero(t, hub.Len(queue.TopicChunk))
}

func TestChunkWorkerSplitsAndResetsInstructions(t *testing.T) {
	hub := queue.NewMemoryHub()
	store := newMemStore()
	q := hub.Queue(queue.TopicChunk, 10)
	w := NewChunkWorker(store, q, nil)

	p := payload.New([]payload.Node{{
		PageContent: strings.Repeat("ab", 50),
		Metadata:    map[string]any{"internal_id": "part0_0"},
	}}, nil)
	p.Content.Instructions.ChunkMethod = payload.ChunkFixedSize
	p.Content.Instructions.ChunkSize = 40
	p.Content.Instructions.ChunkOverlap = 10
	writePayload(t, store, "/data/a_part0.json", p)

	task := queue.NewTaskMessage("/data/a_part0.json", StageCleanComplete)
	require.NoError(t, w.Handle(context.Background(), task))

	tasks := decodeTasks(t, hub, queue.TopicEnrich)
	require.Len(t, tasks, 1)
	assert.Equal(t, "/data/a_part0_chunked.json", tasks[0].FilePath)
	assert.Equal(t, StageChunkComplete, tasks[0].Stage)
	assert.Equal(t, task.TraceID, tasks[0].TraceID)

	out := readPayload(t, store, "/data/a_part0_chunked.json")
	require.Len(t, out.Content.Nodes, 3)
	assert.Equal(t, "part0_0_c0", out.Content.Nodes[0].Metadata["internal_id"])
	assert.Equal(t, payload.ChunkNone, out.Content.Instructions.ChunkMethod)
	assert.Equal(t,
		[]payload.EnrichMethod{payload.EnrichSummary, payload.EnrichKeywords},
		out.Content.Instructions.EnrichmentMethods)
}

func TestChunkWorkerKeepsRequestedEnrichment(t *testing.T) {
	hub := queue.NewMemoryHub()
	store := newMemStore()
	q := hub.Queue(queue.TopicChunk, 10)
	w := NewChunkWorker(store, q, nil)

	p := payload.New([]payload.Node{{PageContent: "short", Metadata: map[string]any{}}}, nil)
	p.Content.Instructions.EnrichmentMethods = []payload.EnrichMethod{payload.EnrichSuggestedQuestions}
	writePayload(t, store, "/data/b_part0.json", p)

	require.NoError(t, w.Handle(context.Background(), queue.NewTaskMessage("/data/b_part0.json", StageCleanComplete)))

	out := readPayload(t, store, "/data/b_part0_chunked.json")
	assert.Equal(t,
		[]payload.EnrichMethod{payload.EnrichSuggestedQuestions},
		out.Content.Instructions.EnrichmentMethods)
}

func TestEnrichWorkerResetsMethodsOnPartialFailure(t *testing.T) {
	hub := queue.NewMemoryHub()
	store := newMemStore()
	q := hub.Queue(queue.TopicEnrich, 10)
	w := NewEnrichWorker(store, q, enrich.New(&fakeLLM{failKeywords: true}, 2, nil), nil)

	p := payload.New([]payload.Node{{PageContent: "the harbor reopened", Metadata: map[string]any{}}}, nil)
	p.Content.Instructions.EnrichmentMethods = []payload.EnrichMethod{payload.EnrichSummary, payload.EnrichKeywords}
	writePayload(t, store, "/data/c_chunked.json", p)

	require.NoError(t, w.Handle(context.Background(), queue.NewTaskMessage("/data/c_chunked.json", StageChunkComplete)))

	out := readPayload(t, store, "/data/c_chunked_enriched.json")
	require.Len(t, out.Content.Nodes, 1)
	node := out.Content.Nodes[0]
	assert.Equal(t, "a short summary", node.Metadata["summary"])
	// Failed method wrote nothing under its key; the payload still moved on.
	assert.NotContains(t, node.Metadata, "keywords")
	assert.True(t, out.Content.Instructions.EnrichmentIsNone())

	tasks := decodeTasks(t, hub, queue.TopicIndex)
	require.Len(t, tasks, 1)
	assert.Equal(t, StageEnrichComplete, tasks[0].Stage)
}

func TestIndexWorkerMalformedPayload(t *testing.T) {
	store := newMemStore()
	w := NewIndexWorker(store, index.New(vectorstore.NewMemoryStore(), registry.NewMemory(), 10, true, nil), nil)

	err := w.Handle(context.Background(), queue.NewTaskMessage("/data/missing.json", StageEnrichComplete))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	require.NoError(t, store.Write(context.Background(), "/data/garbage.json", []byte("{")))
	err = w.Handle(context.Background(), queue.NewTaskMessage("/data/garbage.json", StageEnrichComplete))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}
