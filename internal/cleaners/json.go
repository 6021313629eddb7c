package cleaners

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSONCleaner extracts one row per record from a JSON document. The
// document is expected to be a list of records; a single record is
// accepted and treated as a one-element list.
type JSONCleaner struct{}

// Clean parses the document and returns its records as fragments.
func (c *JSONCleaner) Clean(data []byte, rowsPerFile int) (*Fragments, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON document; %w", err)
	}

	records, ok := doc.([]any)
	if !ok {
		records = []any{doc}
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		text, err := recordText(record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Text: text, Meta: map[string]any{}})
	}

	return newFragments(rows, rowsPerFile), nil
}

// recordText renders a record as row text: strings pass through,
// anything else becomes compact JSON.
func recordText(record any) (string, error) {
	if s, ok := record.(string); ok {
		return strings.TrimSpace(s), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("failed to encode record; %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
