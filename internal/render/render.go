// Package render turns a doctree into Hugo markdown.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/attilastrba/notion2hugo/internal/doctree"
)

// ErrPrecondition marks a node that is missing data its variant requires.
var ErrPrecondition = errors.New("render precondition failed")

// IndentStep is the number of spaces added per nesting level.
const IndentStep = 4

const (
	// YouTubeShortLink is the only video host prefix the video shortcode accepts.
	YouTubeShortLink = "https://youtu.be/"

	tableOpen  = `{{< bootstrap-table table_class="table table-striped table-bordered table-nonfluid w-auto" >}}`
	tableClose = `{{< /bootstrap-table >}}`
)

// Context carries everything a render depends on besides the node itself.
type Context struct {
	// BaseDir is stripped from image paths before the first remaining
	// segment is replaced by ImagesFolder. Empty means paths are used as is.
	BaseDir string
	// ImagesFolder defaults to "images".
	ImagesFolder string
	// FileExists defaults to an os.Stat check.
	FileExists func(path string) bool
}

// Renderer renders nodes with a fixed Context. It holds no mutable state and
// is safe for concurrent use.
type Renderer struct {
	ctx Context
}

func New(ctx Context) *Renderer {
	if ctx.ImagesFolder == "" {
		ctx.ImagesFolder = "images"
	}
	if ctx.FileExists == nil {
		ctx.FileExists = fileExists
	}
	return &Renderer{ctx: ctx}
}

// Render renders n at the given indentation. Every block is preceded by a
// single newline; a nil node renders as the empty string.
func (r *Renderer) Render(n *doctree.Node, indent int) (string, error) {
	if n == nil {
		return "", nil
	}
	body, err := r.block(n, indent)
	if err != nil {
		return "", err
	}
	return "\n" + body, nil
}

func (r *Renderer) block(n *doctree.Node, indent int) (string, error) {
	switch n.Variant {
	case doctree.Paragraph, doctree.ColumnList:
		return r.paragraph(n, indent)
	case doctree.Heading1:
		return r.heading(n, indent, 1)
	case doctree.Heading2:
		return r.heading(n, indent, 2)
	case doctree.Heading3:
		return r.heading(n, indent, 3)
	case doctree.Divider:
		return "\n---\n", nil
	case doctree.Equation:
		p, err := r.paragraph(n, indent)
		if err != nil {
			return "", err
		}
		return "$$\n" + p + "\n$$", nil
	case doctree.Code:
		p, err := r.paragraph(n, indent)
		if err != nil {
			return "", err
		}
		return "```" + n.Language + "\n" + p + "\n```", nil
	case doctree.BulletedListItem:
		return r.listItem(n, "-", indent)
	case doctree.NumberedListItem:
		return r.listItem(n, "1.", indent)
	case doctree.ToDo:
		marker := "- [ ]"
		if n.IsChecked != nil && *n.IsChecked {
			marker = "- [X]"
		}
		return r.listItem(n, marker, indent)
	case doctree.Column:
		return r.listItem(n, "-column", indent)
	case doctree.Quote:
		return quote(n), nil
	case doctree.Table:
		return r.table(n, indent)
	case doctree.TableRow:
		return tableRow(n)
	case doctree.Image:
		return r.image(n)
	case doctree.Video:
		return video(n)
	case doctree.Callout:
		return fmt.Sprintf(`{{< callout emoji="" text="%s" >}}`, StyleText(n.RichText)), nil
	default:
		return "", fmt.Errorf("%w: %q (block %s)", doctree.ErrUnsupportedVariant, n.Variant, n.ID)
	}
}

// paragraph renders the node's own text followed by each child at the next
// indentation level, so any variant can nest under it.
func (r *Renderer) paragraph(n *doctree.Node, indent int) (string, error) {
	texts := []string{StyleText(n.RichText)}
	for _, c := range n.Children {
		s, err := r.Render(c, indent+IndentStep)
		if err != nil {
			return "", err
		}
		texts = append(texts, s)
	}
	return strings.Join(texts, "\n"), nil
}

func (r *Renderer) heading(n *doctree.Node, indent, level int) (string, error) {
	p, err := r.paragraph(n, indent)
	if err != nil {
		return "", err
	}
	return strings.Repeat("#", level) + " " + p, nil
}

func (r *Renderer) listItem(n *doctree.Node, marker string, indent int) (string, error) {
	texts := []string{strings.Repeat(" ", indent) + marker + " " + StyleText(n.RichText)}
	for _, c := range n.Children {
		s, err := r.Render(c, indent+IndentStep)
		if err != nil {
			return "", err
		}
		texts = append(texts, s)
	}
	return strings.Join(texts, "\n"), nil
}

// quote only quotes the text of direct children; their type and own
// children are ignored.
func quote(n *doctree.Node) string {
	texts := []string{"> " + StyleText(n.RichText)}
	for _, c := range n.Children {
		texts = append(texts, "> "+StyleText(c.RichText))
	}
	return strings.Join(texts, "\n>\n")
}

func (r *Renderer) table(n *doctree.Node, indent int) (string, error) {
	if n.TableWidth == nil {
		return "", fmt.Errorf("%w: table_width expected for table block %s", ErrPrecondition, n.ID)
	}
	rows := make([]string, 0, len(n.Children)+1)
	for _, c := range n.Children {
		s, err := r.Render(c, indent)
		if err != nil {
			return "", err
		}
		rows = append(rows, s)
	}
	if len(rows) > 0 {
		sep := "\n|" + strings.Repeat("---|", *n.TableWidth)
		rows = append(rows[:1], append([]string{sep}, rows[1:]...)...)
	}
	return "\n" + tableOpen + strings.Join(rows, "") + "\n" + tableClose, nil
}

func tableRow(n *doctree.Node) (string, error) {
	if len(n.TableCells) == 0 {
		return "", fmt.Errorf("%w: table_cells expected for table_row block %s", ErrPrecondition, n.ID)
	}
	cells := make([]string, len(n.TableCells))
	for i, cell := range n.TableCells {
		cells[i] = StyleText(cell)
	}
	return "| " + strings.Join(cells, " | ") + " |", nil
}

func (r *Renderer) image(n *doctree.Node) (string, error) {
	if n.File == "" || !r.ctx.FileExists(n.File) {
		return "", fmt.Errorf("%w: file expected for image block %s, got %q", ErrPrecondition, n.ID, n.File)
	}
	caption, alt := SplitCaption(StyleText(n.RichText))
	return fmt.Sprintf(`{{< img class="blog-img-center" width="800" src="%s" caption="%s" alt="%s" >}}`,
		r.imageSource(n.File), caption, alt), nil
}

// imageSource rewrites a media path so it starts with the images folder:
// the path is made relative to BaseDir when possible, then its first
// segment is replaced.
func (r *Renderer) imageSource(file string) string {
	p := filepath.ToSlash(file)
	if r.ctx.BaseDir != "" {
		if rel, err := filepath.Rel(r.ctx.BaseDir, file); err == nil && !strings.HasPrefix(rel, "..") {
			p = filepath.ToSlash(rel)
		}
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if len(parts) == 1 {
		return r.ctx.ImagesFolder + "/" + parts[0]
	}
	parts[0] = r.ctx.ImagesFolder
	return strings.Join(parts, "/")
}

func video(n *doctree.Node) (string, error) {
	title := StyleText(n.RichText)
	if title == "" {
		return "", fmt.Errorf("%w: missing title for video block %s, add a caption", ErrPrecondition, n.ID)
	}
	if !strings.HasPrefix(n.URL, YouTubeShortLink) {
		return "", fmt.Errorf("%w: video block %s url %q does not start with %s", ErrPrecondition, n.ID, n.URL, YouTubeShortLink)
	}
	id := strings.TrimPrefix(n.URL, YouTubeShortLink)
	return fmt.Sprintf(`{{< youtube id="%s" title="%s" width=60 >}}`, id, title), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
