package render

import (
	"strings"

	"github.com/attilastrba/notion2hugo/internal/doctree"
)

// StyleText renders a sequence of annotated runs as inline markdown.
//
// Each run is wrapped in a fixed order: bold, italic, strikethrough,
// underline, code, link, equation, highlight. A run with empty text empties
// the whole sequence.
func StyleText(runs []doctree.Annotation) string {
	var sb strings.Builder
	for _, a := range runs {
		t := a.PlainText
		if t == "" {
			return ""
		}
		if a.Bold {
			t = "**" + t + "**"
		}
		if a.Italic {
			t = "_" + t + "_"
		}
		if a.Strikethrough {
			t = "~~" + t + "~~"
		}
		if a.Underline {
			t = "<ins>" + t + "</ins>"
		}
		if a.Code {
			t = "`" + t + "`"
		}
		if a.Href != "" {
			t = "[" + t + "](" + a.Href + ")"
		}
		if a.IsEquation {
			t = "$ " + t + " $"
		}
		if a.Highlight {
			t = "<mark>" + t + "</mark>"
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// SplitCaption separates an image caption into caption and alt text at the
// first backslash. Without a backslash the whole trimmed input is the caption.
func SplitCaption(s string) (caption, alt string) {
	before, after, found := strings.Cut(s, `\`)
	if !found {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
