package chunkers

import (
	"strings"
	"testing"

	"github.com/ragstage/ragstage/internal/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForMethod(t *testing.T) {
	tests := []struct {
		name     string
		method   payload.ChunkMethod
		wantType any
		wantTag  string
	}{
		{"none", payload.ChunkNone, &NoSplit{}, "none"},
		{"unknown", payload.ChunkMethod("recursive"), &NoSplit{}, "none"},
		{"llm degrades", payload.ChunkLLM, &NoSplit{}, "none"},
		{"semantic reserved", payload.ChunkSemantic, &NoSplit{}, "semantic_pending"},
		{"fixed size", payload.ChunkFixedSize, &FixedSize{}, "fixed_size"},
		{"sentence", payload.ChunkSentence, &Sentence{}, "sentence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ForMethod(tt.method, 500, 50)
			assert.IsType(t, tt.wantType, c)
			assert.Equal(t, tt.wantTag, c.Metadata()["strategy"])
		})
	}
}

func TestNoSplitPassesThrough(t *testing.T) {
	nodes := []payload.Node{
		{PageContent: "a", Metadata: map[string]any{"internal_id": "part0_0"}},
		{PageContent: "b", Metadata: map[string]any{"internal_id": "part0_1"}},
	}

	out := (&NoSplit{Tag: "none"}).Split(nodes)
	assert.Equal(t, nodes, out)
}

func TestMergeMetadataRightBiased(t *testing.T) {
	base := map[string]any{"author": "lee", "strategy": "old"}
	overlay := map[string]any{"strategy": "none"}

	merged := MergeMetadata(base, overlay)
	assert.Equal(t, "lee", merged["author"])
	assert.Equal(t, "none", merged["strategy"])
	// Inputs untouched
	assert.Equal(t, "old", base["strategy"])
}

func TestFixedSizeWindows(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 runes
	nodes := []payload.Node{{PageContent: text, Metadata: map[string]any{"internal_id": "part0_0"}}}

	out := (&FixedSize{Size: 40, Overlap: 10}).Split(nodes)
	require.Len(t, out, 3) // starts at 0, 30, 60

	assert.Equal(t, 40, len([]rune(out[0].PageContent)))
	assert.Equal(t, text[:40], out[0].PageContent)
	assert.Equal(t, text[30:70], out[1].PageContent)
	assert.Equal(t, text[60:], out[2].PageContent)

	// Internal ids are disambiguated per window
	assert.Equal(t, "part0_0_c0", out[0].Metadata["internal_id"])
	assert.Equal(t, "part0_0_c2", out[2].Metadata["internal_id"])
}

func TestFixedSizeShortNodeUntouched(t *testing.T) {
	nodes := []payload.Node{{PageContent: "short", Metadata: map[string]any{"internal_id": "part0_0"}}}

	out := (&FixedSize{Size: 500, Overlap: 50}).Split(nodes)
	require.Len(t, out, 1)
	assert.Equal(t, "short", out[0].PageContent)
	assert.Equal(t, "part0_0", out[0].Metadata["internal_id"])
}

func TestFixedSizeDegenerateOverlap(t *testing.T) {
	text := strings.Repeat("x", 30)
	nodes := []payload.Node{{PageContent: text, Metadata: map[string]any{}}}

	// Overlap >= size would never advance; it is ignored
	out := (&FixedSize{Size: 10, Overlap: 10}).Split(nodes)
	assert.Len(t, out, 3)
}

func TestSentencePacking(t *testing.T) {
	text := "One. Two two. Three three three. Four!"
	nodes := []payload.Node{{PageContent: text, Metadata: map[string]any{"internal_id": "part0_0"}}}

	out := (&Sentence{Size: 20}).Split(nodes)
	require.True(t, len(out) > 1)

	for _, n := range out {
		assert.NotEmpty(t, n.PageContent)
	}
	// All sentences survive, in order
	joined := ""
	for _, n := range out {
		joined += " " + n.PageContent
	}
	for _, s := range []string{"One.", "Two two.", "Three three three.", "Four!"} {
		assert.Contains(t, joined, s)
	}
}

func TestSentenceCJKTerminators(t *testing.T) {
	sentences := splitSentences("第一句。第二句！第三句？")
	assert.Equal(t, []string{"第一句。", "第二句！", "第三句？"}, sentences)
}

func TestSentenceShortTextUntouched(t *testing.T) {
	nodes := []payload.Node{{PageContent: "Tiny. Text.", Metadata: map[string]any{"internal_id": "part0_0"}}}

	out := (&Sentence{Size: 500}).Split(nodes)
	require.Len(t, out, 1)
	assert.Equal(t, "Tiny. Text.", out[0].PageContent)
}
