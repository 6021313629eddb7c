// Package payload defines the canonical task payload that pipeline
// stages persist between hops: a versioned content envelope holding
// pipeline instructions and document nodes, plus free-form metadata.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the payload schema version stamped on new payloads.
const Version = "1.0"

// ChunkMethod selects the chunking strategy applied by the chunk stage.
type ChunkMethod string

const (
	ChunkNone      ChunkMethod = "none"
	ChunkSentence  ChunkMethod = "sentence"
	ChunkSemantic  ChunkMethod = "semantic"
	ChunkLLM       ChunkMethod = "llm"
	ChunkFixedSize ChunkMethod = "fixed_size"
)

// EnrichMethod selects an enrichment applied by the enrich stage.
type EnrichMethod string

const (
	EnrichNone               EnrichMethod = "none"
	EnrichSummary            EnrichMethod = "summary"
	EnrichKeywords           EnrichMethod = "keywords"
	EnrichSuggestedQuestions EnrichMethod = "suggested_questions"
)

// Default instruction values applied when a field is absent.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Payload is the unit of work passed between pipeline stages.
type Payload struct {
	Content  Content        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Content is the versioned envelope holding instructions and nodes.
type Content struct {
	Version      string       `json:"version"`
	Instructions Instructions `json:"pipeline_instructions"`
	Nodes        []Node       `json:"nodes"`
}

// Node is a unit of document content with per-node metadata.
type Node struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Instructions tells downstream stages how to process the payload.
// Unknown fields survive a decode/encode round trip so that newer
// producers can pass options through older workers untouched.
type Instructions struct {
	ChunkMethod       ChunkMethod
	ChunkSize         int
	ChunkOverlap      int
	EnrichmentMethods []EnrichMethod

	// Extra holds fields this version does not interpret.
	Extra map[string]json.RawMessage
}

// DefaultInstructions returns instructions with all fields at their defaults.
func DefaultInstructions() Instructions {
	return Instructions{
		ChunkMethod:       ChunkNone,
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		EnrichmentMethods: []EnrichMethod{EnrichNone},
	}
}

// New creates a payload at the current schema version with default
// instructions.
func New(nodes []Node, metadata map[string]any) *Payload {
	return &Payload{
		Content: Content{
			Version:      Version,
			Instructions: DefaultInstructions(),
			Nodes:        nodes,
		},
		Metadata: metadata,
	}
}

// EnrichmentIsNone reports whether the instructions request no enrichment.
func (in *Instructions) EnrichmentIsNone() bool {
	if len(in.EnrichmentMethods) == 0 {
		return true
	}
	return len(in.EnrichmentMethods) == 1 && in.EnrichmentMethods[0] == EnrichNone
}

// MarshalJSON emits the known fields alongside any passthrough fields.
func (in Instructions) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(in.Extra)+4)
	for k, v := range in.Extra {
		out[k] = v
	}

	var err error
	if out["chunk_method"], err = json.Marshal(in.ChunkMethod); err != nil {
		return nil, err
	}
	if out["chunk_size"], err = json.Marshal(in.ChunkSize); err != nil {
		return nil, err
	}
	if out["chunk_overlap"], err = json.Marshal(in.ChunkOverlap); err != nil {
		return nil, err
	}
	if out["enrichment_methods"], err = json.Marshal(in.EnrichmentMethods); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the known fields, applies defaults for absent
// ones, and retains everything else in Extra.
func (in *Instructions) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*in = DefaultInstructions()

	if v, ok := raw["chunk_method"]; ok {
		if err := json.Unmarshal(v, &in.ChunkMethod); err != nil {
			return fmt.Errorf("failed to decode chunk_method; %w", err)
		}
		delete(raw, "chunk_method")
	}
	if v, ok := raw["chunk_size"]; ok {
		if err := json.Unmarshal(v, &in.ChunkSize); err != nil {
			return fmt.Errorf("failed to decode chunk_size; %w", err)
		}
		delete(raw, "chunk_size")
	}
	if v, ok := raw["chunk_overlap"]; ok {
		if err := json.Unmarshal(v, &in.ChunkOverlap); err != nil {
			return fmt.Errorf("failed to decode chunk_overlap; %w", err)
		}
		delete(raw, "chunk_overlap")
	}
	if v, ok := raw["enrichment_methods"]; ok {
		if err := json.Unmarshal(v, &in.EnrichmentMethods); err != nil {
			return fmt.Errorf("failed to decode enrichment_methods; %w", err)
		}
		delete(raw, "enrichment_methods")
	}

	if len(raw) > 0 {
		in.Extra = raw
	}
	return nil
}

// Marshal encodes a payload to JSON without HTML escaping, so document
// text survives byte-for-byte.
func Marshal(p *Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode payload; %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a payload from JSON, applying instruction defaults
// for absent fields.
func Unmarshal(data []byte) (*Payload, error) {
	p := &Payload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode payload; %w", err)
	}
	if p.Content.Version == "" {
		p.Content.Version = Version
	}
	// A payload with no pipeline_instructions key at all gets defaults
	in := &p.Content.Instructions
	if in.ChunkMethod == "" && in.ChunkSize == 0 && in.EnrichmentMethods == nil {
		*in = DefaultInstructions()
	}
	return p, nil
}
