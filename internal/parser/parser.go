package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/attilastrba/notion2hugo/internal/doctree"
	"github.com/attilastrba/notion2hugo/internal/metrics"
	"github.com/attilastrba/notion2hugo/internal/notion"
	"github.com/tidwall/gjson"
)

// BlockParser converts raw Notion blocks into doctree nodes. A BlockParser
// numbers downloaded images sequentially and must not be shared between
// documents.
type BlockParser struct {
	downloadDir string
	downloader  Downloader
	log         *slog.Logger

	imgCount int
}

func NewBlockParser(downloadDir string, downloader Downloader, log *slog.Logger) *BlockParser {
	return &BlockParser{
		downloadDir: downloadDir,
		downloader:  downloader,
		log:         log,
	}
}

// Parse converts b and all of its children. The block's own fields are
// resolved before its children are parsed.
func (p *BlockParser) Parse(ctx context.Context, b notion.Block) (*doctree.Node, error) {
	variant, err := doctree.ParseVariant(b.Type)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", b.ID, err)
	}
	payload := gjson.ParseBytes(b.Payload)
	n := &doctree.Node{ID: b.ID, Variant: variant}

	switch {
	case truthy(payload.Get("rich_text")):
		n.RichText = annotations(payload.Get("rich_text"), false)

	case truthy(payload.Get("caption")) || truthy(payload.Get("file")) || truthy(payload.Get("external")):
		n.RichText = annotations(payload.Get("caption"), true)
		switch variant {
		case doctree.Image:
			remote := mediaURL(payload)
			if remote == "" {
				return nil, fmt.Errorf("block %s: file url expected for image", b.ID)
			}
			if n.File, err = p.downloadImage(ctx, remote); err != nil {
				return nil, fmt.Errorf("block %s: %w", b.ID, err)
			}
		case doctree.Video:
			n.URL = mediaURL(payload)
		}

	case truthy(payload.Get("expression")):
		n.RichText = []doctree.Annotation{{PlainText: payload.Get("expression").String()}}

	case truthy(payload.Get("cells")):
		for _, cell := range payload.Get("cells").Array() {
			n.TableCells = append(n.TableCells, annotations(cell, false))
		}
	}

	if lang := payload.Get("language"); lang.Exists() {
		n.Language = lang.String()
	}
	if width := payload.Get("table_width"); width.Exists() {
		w := int(width.Int())
		n.TableWidth = &w
	}
	if checked := payload.Get("checked"); checked.Exists() {
		c := checked.Bool()
		n.IsChecked = &c
	}

	metrics.BlocksParsed.WithLabelValues(string(variant)).Inc()

	for _, child := range b.Children {
		cn, err := p.Parse(ctx, child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, cn)
	}
	return n, nil
}

// ParseAll parses a sequence of sibling blocks in order.
func (p *BlockParser) ParseAll(ctx context.Context, blocks []notion.Block) ([]*doctree.Node, error) {
	nodes := make([]*doctree.Node, 0, len(blocks))
	for _, b := range blocks {
		n, err := p.Parse(ctx, b)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func annotations(runs gjson.Result, caption bool) []doctree.Annotation {
	var out []doctree.Annotation
	for _, t := range runs.Array() {
		a := t.Get("annotations")
		plain := t.Get("plain_text").String()
		color := a.Get("color").String()
		out = append(out, doctree.Annotation{
			PlainText:      plain,
			Bold:           a.Get("bold").Bool(),
			Italic:         a.Get("italic").Bool(),
			Strikethrough:  a.Get("strikethrough").Bool(),
			Underline:      a.Get("underline").Bool(),
			Code:           a.Get("code").Bool(),
			Color:          color,
			Highlight:      strings.HasSuffix(color, "_background"),
			Href:           t.Get("href").String(),
			IsEquation:     t.Get("type").String() == "equation",
			IsCaption:      caption,
			IsFeatureImage: plain == doctree.FeatureImageMarker,
		})
	}
	return out
}

// mediaURL prefers a Notion-hosted file over an external link.
func mediaURL(payload gjson.Result) string {
	if u := payload.Get("file.url").String(); u != "" {
		return u
	}
	return payload.Get("external.url").String()
}

// truthy reports whether r holds a non-empty value: missing fields, null,
// false, zero, "" and empty arrays or objects are all false.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return r.Float() != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	}
	return true
}
