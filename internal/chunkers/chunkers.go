// Package chunkers splits payload nodes into retrieval-sized chunks.
//
// The strategy is selected from the payload's pipeline instructions.
// Unrecognized methods and "llm" degrade to no-split, and "semantic" is
// reserved: it also passes nodes through but tags them so a later
// semantic splitter can find them.
package chunkers

import (
	"fmt"
	"maps"

	"github.com/ragstage/ragstage/internal/payload"
)

// Chunker transforms a node list into a (possibly longer) node list and
// reports strategy metadata to merge onto every produced node.
type Chunker interface {
	Split(nodes []payload.Node) []payload.Node
	Metadata() map[string]any
}

// ForMethod returns the chunker for an instruction method. It always
// returns a usable chunker; unknown methods pass nodes through.
func ForMethod(m payload.ChunkMethod, size, overlap int) Chunker {
	switch m {
	case payload.ChunkFixedSize:
		return &FixedSize{Size: size, Overlap: overlap}
	case payload.ChunkSentence:
		return &Sentence{Size: size}
	case payload.ChunkSemantic:
		return &NoSplit{Tag: "semantic_pending"}
	default:
		return &NoSplit{Tag: "none"}
	}
}

// MergeMetadata combines two metadata maps; keys in overlay win.
func MergeMetadata(base, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))
	maps.Copy(merged, base)
	maps.Copy(merged, overlay)
	return merged
}

// NoSplit passes nodes through unchanged.
type NoSplit struct {
	// Tag becomes the strategy marker on produced nodes.
	Tag string
}

// Split returns the nodes as-is.
func (c *NoSplit) Split(nodes []payload.Node) []payload.Node {
	return nodes
}

// Metadata reports the strategy tag.
func (c *NoSplit) Metadata() map[string]any {
	return map[string]any{"strategy": c.Tag}
}

// chunkMeta copies a source node's metadata for chunk j of total,
// disambiguating the internal id when a node splits into several chunks.
func chunkMeta(src map[string]any, j, total int) map[string]any {
	meta := make(map[string]any, len(src))
	maps.Copy(meta, src)
	if total > 1 {
		if id, ok := meta["internal_id"]; ok {
			meta["internal_id"] = fmt.Sprintf("%v_c%d", id, j)
		}
	}
	return meta
}
