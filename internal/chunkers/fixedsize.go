package chunkers

import "github.com/ragstage/ragstage/internal/payload"

// FixedSize splits node text into rune windows of Size with Overlap
// runes shared between consecutive windows.
type FixedSize struct {
	Size    int
	Overlap int
}

// Split windows each node's text. Nodes shorter than Size pass through.
func (c *FixedSize) Split(nodes []payload.Node) []payload.Node {
	size := c.Size
	if size <= 0 {
		size = payload.DefaultChunkSize
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	var out []payload.Node
	for _, node := range nodes {
		runes := []rune(node.PageContent)
		if len(runes) <= size {
			out = append(out, node)
			continue
		}

		var windows []string
		for start := 0; start < len(runes); start += step {
			end := min(start+size, len(runes))
			windows = append(windows, string(runes[start:end]))
			if end == len(runes) {
				break
			}
		}

		for j, text := range windows {
			out = append(out, payload.Node{
				PageContent: text,
				Metadata:    chunkMeta(node.Metadata, j, len(windows)),
			})
		}
	}
	return out
}

// Metadata reports the strategy marker.
func (c *FixedSize) Metadata() map[string]any {
	return map[string]any{"strategy": "fixed_size"}
}
