package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/attilastrba/notion2hugo/internal/doctree"
	"github.com/attilastrba/notion2hugo/internal/render"
)

// ErrInvalidPostName is returned when the configured name property is
// missing, empty or not a plain string.
var ErrInvalidPostName = errors.New("invalid post name property")

// FeatureImageCaption marks the rendered line of the duplicated thumbnail.
const FeatureImageCaption = `caption="featureimage"`

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-]`)

// SanitizePath turns a title into a directory and file name: spaces become
// underscores, letters are lowercased and everything else outside
// [a-zA-Z0-9-_.] is removed.
func SanitizePath(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	return unsafePathChars.ReplaceAllString(name, "")
}

// Options configures an Exporter.
type Options struct {
	// ParentDir receives one sub directory per document.
	ParentDir string
	// PostNameProperty names the page property used for the output name.
	// Empty falls back to the document id.
	PostNameProperty string
	// Clean removes ParentDir once when the Exporter is built.
	Clean bool
}

// Result describes the files written for one document.
type Result struct {
	DocumentID   string `json:"document_id"`
	Name         string `json:"name"`
	Dir          string `json:"dir"`
	ImagesDir    string `json:"images_dir"`
	MarkdownPath string `json:"markdown_path"`
}

// Exporter writes formatted documents as Hugo markdown bundles.
type Exporter struct {
	parentDir        string
	postNameProperty string
	log              *slog.Logger
}

func NewExporter(opts Options, log *slog.Logger) (*Exporter, error) {
	if opts.ParentDir == "" {
		return nil, fmt.Errorf("export: parent dir is required")
	}
	if opts.Clean {
		log.Info("cleaning output dir", "dir", opts.ParentDir)
		if err := os.RemoveAll(opts.ParentDir); err != nil {
			return nil, fmt.Errorf("clean output dir: %w", err)
		}
	}
	return &Exporter{
		parentDir:        opts.ParentDir,
		postNameProperty: opts.PostNameProperty,
		log:              log,
	}, nil
}

// PostName resolves the sanitized output name for doc.
func (e *Exporter) PostName(doc *doctree.Document) (string, error) {
	if e.postNameProperty == "" {
		return SanitizePath(doc.ID), nil
	}
	v, ok := doc.Properties.Get(e.postNameProperty)
	if !ok || v.Empty() {
		return "", fmt.Errorf("%w: %q not set on %s (have %v)", ErrInvalidPostName, e.postNameProperty, doc.ID, doc.Properties.Keys())
	}
	if v.IsList {
		return "", fmt.Errorf("%w: %q must be a string, got list", ErrInvalidPostName, e.postNameProperty)
	}
	name := SanitizePath(v.Str)
	if name == "" {
		return "", fmt.Errorf("%w: %q sanitizes to an empty name", ErrInvalidPostName, v.Str)
	}
	return name, nil
}

// Export lays out <parent>/<name>/<name>.md with its media copied into
// <parent>/<name>/<name>_images/.
func (e *Exporter) Export(ctx context.Context, doc *doctree.Document) (*Result, error) {
	name, err := e.PostName(doc)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(e.parentDir, name)
	res := &Result{
		DocumentID:   doc.ID,
		Name:         name,
		Dir:          dir,
		ImagesDir:    filepath.Join(dir, name+"_images"),
		MarkdownPath: filepath.Join(dir, name+".md"),
	}
	log := e.log.With("page_id", doc.ID, "name", name)
	log.Debug("creating output dirs", "images_dir", res.ImagesDir)
	if err := os.MkdirAll(res.ImagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dirs: %w", err)
	}

	r := render.New(render.Context{BaseDir: e.parentDir})

	header, err := r.Render(doc.Header, 0)
	if err != nil {
		return nil, fmt.Errorf("render header of %s: %w", doc.ID, err)
	}
	texts := []string{header}

	for _, n := range doc.Blobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if relocatable(n) {
			dst := filepath.Join(res.ImagesDir, filepath.Base(n.File))
			if err := CopyFile(n.File, dst); err != nil {
				return nil, fmt.Errorf("relocate %s: %w", n.File, err)
			}
			log.Info("copied media", "from", n.File, "to", dst)
			n = n.WithFile(dst)
		}
		s, err := r.Render(n, 0)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", doc.ID, err)
		}
		texts = append(texts, s)
	}

	text := strings.Join(dropLinesContaining(texts, FeatureImageCaption), "\n")

	footer, err := r.Render(doc.Footer, 0)
	if err != nil {
		return nil, fmt.Errorf("render footer of %s: %w", doc.ID, err)
	}
	text = strings.TrimSpace(text + "\n" + footer)

	log.Info("writing post", "path", res.MarkdownPath)
	if err := os.WriteFile(res.MarkdownPath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", res.MarkdownPath, err)
	}
	return res, nil
}

// relocatable reports whether n is a top-level node whose media must move
// next to the post.
func relocatable(n *doctree.Node) bool {
	if n == nil || n.File == "" {
		return false
	}
	switch n.Variant {
	case doctree.Image, doctree.Paragraph, doctree.NumberedListItem, doctree.BulletedListItem:
	default:
		return false
	}
	_, err := os.Stat(n.File)
	return err == nil
}

// dropLinesContaining removes every line of the rendered blocks that holds
// marker. Blocks are split on newlines first.
func dropLinesContaining(blocks []string, marker string) []string {
	var out []string
	for _, b := range blocks {
		for _, line := range strings.Split(b, "\n") {
			if !strings.Contains(line, marker) {
				out = append(out, line)
			}
		}
	}
	return out
}

// CopyFile copies src to dst, creating the parent dir of dst.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyDir copies the regular files of src into dst, creating dst.
func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := CopyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
