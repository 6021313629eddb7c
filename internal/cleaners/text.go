package cleaners

import "strings"

// TextCleaner handles plain text and markdown: paragraphs separated by
// blank lines become rows.
type TextCleaner struct{}

// Clean splits the document into paragraph rows.
func (c *TextCleaner) Clean(data []byte, rowsPerFile int) (*Fragments, error) {
	var rows []Row
	for _, para := range strings.Split(string(data), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		rows = append(rows, Row{Text: para, Meta: map[string]any{}})
	}
	return newFragments(rows, rowsPerFile), nil
}
