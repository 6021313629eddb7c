package cleaners

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML extracts the visible text of an HTML snippet, collapsing
// runs of whitespace to single spaces. Plain text passes through
// unchanged apart from trimming.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return collapseSpace(s)
	}

	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if isInvisibleTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isInvisibleTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}

func isInvisibleTag(name string) bool {
	return name == "script" || name == "style"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
