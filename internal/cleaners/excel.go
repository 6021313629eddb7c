package cleaners

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Columns folded into a row's text, in output order.
var excelContentColumns = []string{"title", "summary", "content"}

// Columns carried as node metadata.
var excelMetaColumns = []string{"author", "keyWord", "contentMentionRegionList", "insertDate"}

// ExcelCleaner extracts article rows from the first sheet of a workbook.
// Content columns are HTML-stripped and joined as "col: value | col:
// value"; metadata columns are carried through as-is with datetimes
// normalized and missing cells as empty strings.
type ExcelCleaner struct{}

// Clean parses the workbook and returns its rows as fragments.
func (c *ExcelCleaner) Clean(data []byte, rowsPerFile int) (*Fragments, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook; %w", err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return newFragments(nil, rowsPerFile), nil
	}

	rawRows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q; %w", sheets[0], err)
	}
	if len(rawRows) < 2 {
		return newFragments(nil, rowsPerFile), nil
	}

	colIdx := map[string]int{}
	for i, name := range rawRows[0] {
		colIdx[strings.TrimSpace(name)] = i
	}

	var rows []Row
	for _, raw := range rawRows[1:] {
		cell := func(col string) string {
			idx, ok := colIdx[col]
			if !ok || idx >= len(raw) {
				return ""
			}
			return normalizeCell(raw[idx])
		}

		var parts []string
		for _, col := range excelContentColumns {
			if v := StripHTML(cell(col)); v != "" {
				parts = append(parts, col+": "+v)
			}
		}

		meta := make(map[string]any, len(excelMetaColumns))
		for _, col := range excelMetaColumns {
			meta[col] = cell(col)
		}

		rows = append(rows, Row{Text: strings.Join(parts, " | "), Meta: meta})
	}

	return newFragments(rows, rowsPerFile), nil
}

// cellTimeLayouts are spreadsheet datetime renderings worth normalizing.
var cellTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02 15:04:05",
	"1/2/06 15:04",
	"01-02-06",
	"2006-01-02",
}

// normalizeCell trims a cell and renders datetime-looking values in the
// canonical "2006-01-02 15:04:05" form.
func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range cellTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02 15:04:05")
		}
	}
	return s
}
