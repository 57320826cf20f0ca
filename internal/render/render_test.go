package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/attilastrba/notion2hugo/internal/doctree"
)

func text(s string) []doctree.Annotation {
	return []doctree.Annotation{{PlainText: s}}
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func mustRender(t *testing.T, r *Renderer, n *doctree.Node, indent int) string {
	t.Helper()
	out, err := r.Render(n, indent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestStyleText_CompositionOrder(t *testing.T) {
	tests := []struct {
		name string
		a    doctree.Annotation
		want string
	}{
		{"plain", doctree.Annotation{PlainText: "x"}, "x"},
		{"bold italic", doctree.Annotation{PlainText: "x", Bold: true, Italic: true}, "_**x**_"},
		{"strike underline", doctree.Annotation{PlainText: "x", Strikethrough: true, Underline: true}, "<ins>~~x~~</ins>"},
		{"code link", doctree.Annotation{PlainText: "x", Code: true, Href: "https://go.dev"}, "[`x`](https://go.dev)"},
		{"equation highlight", doctree.Annotation{PlainText: "x", IsEquation: true, Highlight: true}, "<mark>$ x $</mark>"},
		{
			"everything",
			doctree.Annotation{PlainText: "x", Bold: true, Italic: true, Strikethrough: true, Underline: true,
				Code: true, Href: "u", IsEquation: true, Highlight: true},
			"<mark>$ [`<ins>~~_**x**_~~</ins>`](u) $</mark>",
		},
		{"color ignored", doctree.Annotation{PlainText: "x", Color: "red"}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StyleText([]doctree.Annotation{tt.a}); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStyleText_EmptyRunShortCircuits(t *testing.T) {
	runs := []doctree.Annotation{
		{PlainText: "a", Bold: true},
		{PlainText: "", Bold: true, Italic: true, Href: "u"},
		{PlainText: "b"},
	}
	if got := StyleText(runs); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if got := StyleText(nil); got != "" {
		t.Errorf("expected empty output for nil, got %q", got)
	}
}

func TestStyleText_JoinsRuns(t *testing.T) {
	runs := []doctree.Annotation{{PlainText: "Hello "}, {PlainText: "world", Bold: true}}
	if got := StyleText(runs); got != "Hello **world**" {
		t.Errorf("expected %q, got %q", "Hello **world**", got)
	}
}

func TestSplitCaption(t *testing.T) {
	tests := []struct {
		in      string
		caption string
		alt     string
	}{
		{`Caption text\Alt text`, "Caption text", "Alt text"},
		{`  Caption \ Alt \ more `, "Caption", `Alt \ more`},
		{"  just a caption  ", "just a caption", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		caption, alt := SplitCaption(tt.in)
		if caption != tt.caption || alt != tt.alt {
			t.Errorf("SplitCaption(%q): expected (%q, %q), got (%q, %q)", tt.in, tt.caption, tt.alt, caption, alt)
		}
	}
}

func TestRender_NilNode(t *testing.T) {
	out, err := New(Context{}).Render(nil, 4)
	if err != nil || out != "" {
		t.Errorf("expected empty output and no error, got %q, %v", out, err)
	}
}

func TestRender_UnsupportedVariant(t *testing.T) {
	_, err := New(Context{}).Render(&doctree.Node{ID: "x", Variant: "toggle"}, 0)
	if !errors.Is(err, doctree.ErrUnsupportedVariant) {
		t.Fatalf("expected ErrUnsupportedVariant, got %v", err)
	}
}

func TestRender_UnsupportedVariantNested(t *testing.T) {
	n := &doctree.Node{Variant: doctree.Paragraph, RichText: text("p"), Children: []*doctree.Node{
		{Variant: "synced_block"},
	}}
	if _, err := New(Context{}).Render(n, 0); !errors.Is(err, doctree.ErrUnsupportedVariant) {
		t.Fatalf("expected ErrUnsupportedVariant from child, got %v", err)
	}
}

func TestRender_SimpleVariants(t *testing.T) {
	r := New(Context{})
	tests := []struct {
		name string
		node *doctree.Node
		want string
	}{
		{"paragraph", &doctree.Node{Variant: doctree.Paragraph, RichText: text("Hi")}, "\nHi"},
		{"heading_1", &doctree.Node{Variant: doctree.Heading1, RichText: text("T")}, "\n# T"},
		{"heading_2", &doctree.Node{Variant: doctree.Heading2, RichText: text("T")}, "\n## T"},
		{"heading_3", &doctree.Node{Variant: doctree.Heading3, RichText: text("T")}, "\n### T"},
		{"divider", &doctree.Node{Variant: doctree.Divider}, "\n\n---\n"},
		{"equation", &doctree.Node{Variant: doctree.Equation, RichText: text("e=mc^2")}, "\n$$\ne=mc^2\n$$"},
		{"code", &doctree.Node{Variant: doctree.Code, Language: "go", RichText: text("x := 1")}, "\n```go\nx := 1\n```"},
		{"bulleted", &doctree.Node{Variant: doctree.BulletedListItem, RichText: text("a")}, "\n- a"},
		{"numbered", &doctree.Node{Variant: doctree.NumberedListItem, RichText: text("a")}, "\n1. a"},
		{"todo checked", &doctree.Node{Variant: doctree.ToDo, RichText: text("a"), IsChecked: boolPtr(true)}, "\n- [X] a"},
		{"todo unchecked", &doctree.Node{Variant: doctree.ToDo, RichText: text("a"), IsChecked: boolPtr(false)}, "\n- [ ] a"},
		{"todo unset", &doctree.Node{Variant: doctree.ToDo, RichText: text("a")}, "\n- [ ] a"},
		{"column", &doctree.Node{Variant: doctree.Column, RichText: text("c")}, "\n-column c"},
		{"column_list", &doctree.Node{Variant: doctree.ColumnList, RichText: text("cl")}, "\ncl"},
		{"callout", &doctree.Node{Variant: doctree.Callout, RichText: text("Note")}, "\n{{< callout emoji=\"\" text=\"Note\" >}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustRender(t, r, tt.node, 0); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRender_NestedListIndentation(t *testing.T) {
	n := &doctree.Node{
		Variant:  doctree.BulletedListItem,
		RichText: text("parent"),
		Children: []*doctree.Node{
			{Variant: doctree.BulletedListItem, RichText: text("child"), Children: []*doctree.Node{
				{Variant: doctree.NumberedListItem, RichText: text("grandchild")},
			}},
		},
	}
	want := "\n- parent\n\n    - child\n\n        1. grandchild"
	if got := mustRender(t, New(Context{}), n, 0); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRender_ParagraphChildrenUseFullDispatch(t *testing.T) {
	n := &doctree.Node{
		Variant:  doctree.Paragraph,
		RichText: text("intro"),
		Children: []*doctree.Node{
			{Variant: doctree.BulletedListItem, RichText: text("item")},
			{Variant: doctree.Heading2, RichText: text("h")},
		},
	}
	want := "\nintro\n\n    - item\n\n## h"
	if got := mustRender(t, New(Context{}), n, 0); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRender_QuoteIgnoresChildStructure(t *testing.T) {
	n := &doctree.Node{
		Variant:  doctree.Quote,
		RichText: text("first"),
		Children: []*doctree.Node{
			{Variant: doctree.BulletedListItem, RichText: text("second"), Children: []*doctree.Node{
				{Variant: doctree.Paragraph, RichText: text("hidden")},
			}},
			{Variant: doctree.Paragraph, RichText: []doctree.Annotation{{PlainText: "third", Bold: true}}},
		},
	}
	want := "\n> first\n>\n> second\n>\n> **third**"
	got := mustRender(t, New(Context{}), n, 0)
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if strings.Contains(got, "hidden") {
		t.Error("expected grandchild text to be ignored")
	}
}

func tableNode(width int, rows ...[]string) *doctree.Node {
	n := &doctree.Node{ID: "tbl", Variant: doctree.Table, TableWidth: intPtr(width)}
	for _, row := range rows {
		cells := make([][]doctree.Annotation, len(row))
		for i, c := range row {
			cells[i] = text(c)
		}
		n.Children = append(n.Children, &doctree.Node{Variant: doctree.TableRow, TableCells: cells})
	}
	return n
}

func TestRender_Table(t *testing.T) {
	n := tableNode(2, []string{"h1", "h2"}, []string{"a", "b"}, []string{"c", "d"})
	got := mustRender(t, New(Context{}), n, 0)
	want := "\n\n" + tableOpen +
		"\n| h1 | h2 |" +
		"\n|---|---|" +
		"\n| a | b |" +
		"\n| c | d |" +
		"\n" + tableClose
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if c := strings.Count(got, "|---|---|"); c != 1 {
		t.Errorf("expected exactly one separator row, got %d", c)
	}
}

func TestRender_TableSingleRowGetsSeparator(t *testing.T) {
	got := mustRender(t, New(Context{}), tableNode(3, []string{"a", "b", "c"}), 0)
	if !strings.Contains(got, "| a | b | c |\n|---|---|---|") {
		t.Errorf("expected separator after the only row, got %q", got)
	}
}

func TestRender_TableWithoutRows(t *testing.T) {
	got := mustRender(t, New(Context{}), tableNode(2), 0)
	if strings.Contains(got, "---|") {
		t.Errorf("expected no separator without rows, got %q", got)
	}
}

func TestRender_TablePreconditions(t *testing.T) {
	r := New(Context{})
	_, err := r.Render(&doctree.Node{Variant: doctree.Table}, 0)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for missing width, got %v", err)
	}
	_, err = r.Render(&doctree.Node{Variant: doctree.TableRow}, 0)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for missing cells, got %v", err)
	}
}

func TestRender_TableRowStylesCells(t *testing.T) {
	n := &doctree.Node{Variant: doctree.TableRow, TableCells: [][]doctree.Annotation{
		{{PlainText: "a", Bold: true}},
		{{PlainText: "b", Code: true}},
		{},
	}}
	want := "\n| **a** | `b` |  |"
	if got := mustRender(t, New(Context{}), n, 0); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRender_Image(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "my_post", "my_post_images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "img_1.png")
	if err := os.WriteFile(file, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := &doctree.Node{ID: "img", Variant: doctree.Image, File: file,
		RichText: []doctree.Annotation{{PlainText: `A cat\a sleeping cat`, IsCaption: true}}}
	got := mustRender(t, New(Context{BaseDir: base}), n, 0)
	want := "\n" + `{{< img class="blog-img-center" width="800" src="images/my_post_images/img_1.png" caption="A cat" alt="a sleeping cat" >}}`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRender_ImageSourceWithoutBaseDir(t *testing.T) {
	r := New(Context{FileExists: func(string) bool { return true }})
	n := &doctree.Node{Variant: doctree.Image, File: "download/page/img_2.jpeg"}
	got := mustRender(t, r, n, 0)
	if !strings.Contains(got, `src="images/page/img_2.jpeg"`) {
		t.Errorf("expected first segment replaced, got %q", got)
	}
	if !strings.Contains(got, `caption="" alt=""`) {
		t.Errorf("expected empty caption and alt, got %q", got)
	}
}

func TestRender_ImageMissingFile(t *testing.T) {
	r := New(Context{})
	_, err := r.Render(&doctree.Node{Variant: doctree.Image, File: filepath.Join(t.TempDir(), "gone.png")}, 0)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for missing file, got %v", err)
	}
	_, err = r.Render(&doctree.Node{Variant: doctree.Image}, 0)
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition for empty file, got %v", err)
	}
}

func TestRender_Video(t *testing.T) {
	r := New(Context{})
	n := &doctree.Node{Variant: doctree.Video, URL: "https://youtu.be/abc123", RichText: text("Demo")}
	got := mustRender(t, r, n, 0)
	if !strings.Contains(got, `id="abc123"`) || !strings.Contains(got, `title="Demo"`) {
		t.Errorf("expected id and title in shortcode, got %q", got)
	}
	if !strings.HasPrefix(got, "\n{{< youtube ") {
		t.Errorf("expected youtube shortcode, got %q", got)
	}
}

func TestRender_VideoFailures(t *testing.T) {
	r := New(Context{})
	tests := []struct {
		name string
		node *doctree.Node
	}{
		{"empty caption", &doctree.Node{Variant: doctree.Video, URL: "https://youtu.be/abc123"}},
		{"unknown host", &doctree.Node{Variant: doctree.Video, URL: "https://vimeo.com/1", RichText: text("Demo")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Render(tt.node, 0); !errors.Is(err, ErrPrecondition) {
				t.Errorf("expected ErrPrecondition, got %v", err)
			}
		})
	}
}
