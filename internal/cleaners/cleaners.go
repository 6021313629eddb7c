// Package cleaners turns raw source files into cleaned document rows
// and slices them into bounded fragments for downstream stages.
//
// A cleaner is selected by file extension. It extracts one row of text
// plus metadata per source record; the Fragments iterator then yields
// groups of at most rowsPerFile nodes, stamping each node with an
// internal id of the form "part{fragment}_{row}".
package cleaners

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/ragstage/ragstage/internal/payload"
)

// ErrUnsupported is returned for file types no cleaner handles.
var ErrUnsupported = errors.New("unsupported file type")

// Row is one cleaned source record before fragmentation.
type Row struct {
	Text string
	Meta map[string]any
}

// Cleaner extracts rows from a raw file.
type Cleaner interface {
	Clean(data []byte, rowsPerFile int) (*Fragments, error)
}

// ForPath returns the cleaner for a file path based on its extension.
func ForPath(path string) (Cleaner, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return &ExcelCleaner{}, nil
	case ".json":
		return &JSONCleaner{}, nil
	case ".txt", ".md":
		return &TextCleaner{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// Fragments yields successive groups of at most rowsPerFile nodes.
// Node internal ids are assigned at iteration time so they encode both
// the fragment index and the row's position within the fragment.
type Fragments struct {
	rows    []Row
	perFile int
	frag    int
}

func newFragments(rows []Row, rowsPerFile int) *Fragments {
	if rowsPerFile <= 0 {
		rowsPerFile = 100
	}
	return &Fragments{rows: rows, perFile: rowsPerFile}
}

// Next returns the next fragment of nodes, or false when exhausted.
func (f *Fragments) Next() ([]payload.Node, bool) {
	if len(f.rows) == 0 {
		return nil, false
	}

	n := min(f.perFile, len(f.rows))
	batch := f.rows[:n]
	f.rows = f.rows[n:]

	nodes := make([]payload.Node, n)
	for i, row := range batch {
		meta := make(map[string]any, len(row.Meta)+1)
		maps.Copy(meta, row.Meta)
		meta["internal_id"] = fmt.Sprintf("part%d_%d", f.frag, i)
		nodes[i] = payload.Node{PageContent: row.Text, Metadata: meta}
	}
	f.frag++
	return nodes, true
}
