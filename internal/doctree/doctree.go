package doctree

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVariant is returned when a block tag is outside the closed
// variant set, by the parser and by the renderer alike.
var ErrUnsupportedVariant = errors.New("unsupported block variant")

// Variant identifies the kind of block a Node holds.
type Variant string

const (
	Paragraph        Variant = "paragraph"
	Heading1         Variant = "heading_1"
	Heading2         Variant = "heading_2"
	Heading3         Variant = "heading_3"
	Divider          Variant = "divider"
	Equation         Variant = "equation"
	Code             Variant = "code"
	BulletedListItem Variant = "bulleted_list_item"
	NumberedListItem Variant = "numbered_list_item"
	ToDo             Variant = "to_do"
	Quote            Variant = "quote"
	Table            Variant = "table"
	TableRow         Variant = "table_row"
	Image            Variant = "image"
	Video            Variant = "video"
	ColumnList       Variant = "column_list"
	Column           Variant = "column"
	Callout          Variant = "callout"
)

// Variants lists every supported variant.
var Variants = []Variant{
	Paragraph, Heading1, Heading2, Heading3, Divider, Equation, Code,
	BulletedListItem, NumberedListItem, ToDo, Quote, Table, TableRow,
	Image, Video, ColumnList, Column, Callout,
}

// ParseVariant maps a raw block type tag onto a Variant.
func ParseVariant(tag string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == tag {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedVariant, tag)
}

// Annotation is one styled run of text.
type Annotation struct {
	PlainText     string
	Bold          bool
	Italic        bool
	Strikethrough bool
	Underline     bool
	Code          bool
	Highlight     bool
	Color         string
	Href          string // empty when the run is not a link

	IsEquation     bool
	IsCaption      bool
	IsFeatureImage bool
}

// Node is one block of content. Nodes are built once by the parser (or the
// formatter for header/footer) and not mutated afterwards; use WithFile to
// derive a relocated copy.
type Node struct {
	ID       string
	Variant  Variant
	RichText []Annotation
	Children []*Node

	File       string         // image: local path of the downloaded media
	Language   string         // code
	TableWidth *int           // table
	TableCells [][]Annotation // table_row: one annotation run per cell
	IsChecked  *bool          // to_do
	URL        string         // video
}

// WithFile returns a shallow copy of n pointing at a different media file.
// Children and annotation slices are shared with the original.
func (n *Node) WithFile(path string) *Node {
	cp := *n
	cp.File = path
	return &cp
}

// HasFeatureImage reports whether any run of n marks it as the feature image.
func (n *Node) HasFeatureImage() bool {
	for _, a := range n.RichText {
		if a.IsFeatureImage && a.PlainText == FeatureImageMarker {
			return true
		}
	}
	return false
}

// FeatureImageMarker is the caption text that designates a document thumbnail.
const FeatureImageMarker = "featureimage"

// Document is one parsed page ready for formatting and export.
type Document struct {
	ID         string
	Properties *Properties
	Blobs      []*Node
	Header     *Node
	Footer     *Node
}
