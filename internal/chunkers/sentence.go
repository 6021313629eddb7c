package chunkers

import (
	"strings"

	"github.com/ragstage/ragstage/internal/payload"
)

// Sentence splits node text at sentence boundaries and packs whole
// sentences into chunks of at most Size runes. A sentence longer than
// Size becomes its own chunk rather than being cut.
type Sentence struct {
	Size int
}

// Split packs each node's sentences into bounded chunks.
func (c *Sentence) Split(nodes []payload.Node) []payload.Node {
	size := c.Size
	if size <= 0 {
		size = payload.DefaultChunkSize
	}

	var out []payload.Node
	for _, node := range nodes {
		chunks := packSentences(splitSentences(node.PageContent), size)
		if len(chunks) <= 1 {
			out = append(out, node)
			continue
		}
		for j, text := range chunks {
			out = append(out, payload.Node{
				PageContent: text,
				Metadata:    chunkMeta(node.Metadata, j, len(chunks)),
			})
		}
	}
	return out
}

// Metadata reports the strategy marker.
func (c *Sentence) Metadata() map[string]any {
	return map[string]any{"strategy": "sentence"}
}

// sentenceTerminators covers Latin and CJK sentence-ending punctuation.
const sentenceTerminators = ".!?。！？"

func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder

	for _, r := range text {
		sb.WriteRune(r)
		if strings.ContainsRune(sentenceTerminators, r) || r == '\n' {
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func packSentences(sentences []string, size int) []string {
	var chunks []string
	var sb strings.Builder

	for _, s := range sentences {
		if sb.Len() > 0 && len([]rune(sb.String()))+1+len([]rune(s)) > size {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	if sb.Len() > 0 {
		chunks = append(chunks, sb.String())
	}
	return chunks
}
