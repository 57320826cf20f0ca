package formatter

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/attilastrba/notion2hugo/internal/doctree"
	"github.com/attilastrba/notion2hugo/internal/render"
)

// KeyOrder lists the front-matter keys that survive formatting, in output
// order. Every other page property is dropped.
var KeyOrder = []string{"Title", "featureImage", "Date", "Tags", "Summary", "Categories", "Lesedauer"}

// ReadingTimeKey holds the estimated reading time in minutes.
const ReadingTimeKey = "Lesedauer"

// HugoFormatter turns page properties into a Hugo front-matter header.
type HugoFormatter struct {
	wpm int
	log *slog.Logger
}

func NewHugoFormatter(wpm int, log *slog.Logger) *HugoFormatter {
	if wpm <= 0 {
		wpm = DefaultWPM
	}
	return &HugoFormatter{wpm: wpm, log: log}
}

// Format returns a copy of doc whose properties are filtered to KeyOrder and
// whose header carries the front matter. The footer is cleared.
func (f *HugoFormatter) Format(doc *doctree.Document) (*doctree.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("format: nil document")
	}

	props := doctree.NewProperties()
	for _, k := range doc.Properties.Keys() {
		v, _ := doc.Properties.Get(k)
		props.Set(k, v)
	}

	if v, ok := props.Get(ReadingTimeKey); !ok || v.Empty() {
		minutes, err := ReadingTime(PlainMarkdown(doc.Blobs), f.wpm)
		if err != nil {
			return nil, fmt.Errorf("reading time for %s: %w", doc.ID, err)
		}
		if minutes > 0 {
			props.Set(ReadingTimeKey, doctree.String(strconv.Itoa(minutes)))
		} else {
			props.Delete(ReadingTimeKey)
		}
	}

	ordered := orderProperties(props)
	f.log.Debug("formatted front matter", "page_id", doc.ID, "keys", ordered.Keys())

	return &doctree.Document{
		ID:         doc.ID,
		Properties: ordered,
		Blobs:      doc.Blobs,
		Header:     HeaderNode(ordered),
	}, nil
}

func orderProperties(props *doctree.Properties) *doctree.Properties {
	out := doctree.NewProperties()
	for _, k := range KeyOrder {
		if v, ok := props.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}

// FrontMatter renders "key: value" lines in property order, skipping empty
// values, between "---" fences.
func FrontMatter(props *doctree.Properties) string {
	var lines []string
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		if v.Empty() {
			continue
		}
		lines = append(lines, k+": "+v.Format())
	}
	return "---\n" + strings.Join(lines, "\n") + "\n---\n"
}

// HeaderNode wraps the front matter in a paragraph node so it renders like
// any other block.
func HeaderNode(props *doctree.Properties) *doctree.Node {
	return &doctree.Node{
		ID:       "header",
		Variant:  doctree.Paragraph,
		RichText: []doctree.Annotation{{PlainText: FrontMatter(props)}},
	}
}

// PlainMarkdown flattens the inline text of nodes and their descendants into
// markdown paragraphs. Shortcodes and media are left out.
func PlainMarkdown(nodes []*doctree.Node) string {
	var parts []string
	var walk func([]*doctree.Node)
	walk = func(ns []*doctree.Node) {
		for _, n := range ns {
			if n == nil || n.HasFeatureImage() {
				continue
			}
			if t := render.StyleText(n.RichText); t != "" {
				parts = append(parts, t)
			}
			for _, cell := range n.TableCells {
				if t := render.StyleText(cell); t != "" {
					parts = append(parts, t)
				}
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return strings.Join(parts, "\n\n")
}
