package export

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// PublishStatus is the outcome of publishing one document.
type PublishStatus string

const (
	Published PublishStatus = "published"
	Declined  PublishStatus = "declined"
	Unchanged PublishStatus = "unchanged"
)

// Publisher copies an exported post into its final destination.
type Publisher interface {
	Publish(ctx context.Context, res *Result) (PublishStatus, error)
}

// ConfirmRequest is what a Confirmer is asked about.
type ConfirmRequest struct {
	Source string
	Target string
	// Diff previews the change against an existing target. Empty when the
	// target does not exist yet.
	Diff string
}

// Confirmer decides whether a single document gets published.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// AutoConfirm answers every request with its own value.
type AutoConfirm bool

func (a AutoConfirm) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return bool(a), nil
}

// PromptConfirmer asks on a terminal. Only "y" accepts.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *PromptConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if req.Diff != "" {
		fmt.Fprintf(p.out, "changes to %s:\n%s\n", req.Target, req.Diff)
	}
	fmt.Fprintf(p.out, "do you want to copy %s to %s? (y/n): ", req.Source, req.Target)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)) == "y", nil
}

// PreviewDiff renders a line-prefixed semantic diff from old to updated.
// Unchanged stretches are collapsed to a marker.
func PreviewDiff(old, updated string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, updated, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var result strings.Builder
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			result.WriteString("- " + strings.ReplaceAll(diff.Text, "\n", "\n- ") + "\n")
		case diffmatchpatch.DiffInsert:
			result.WriteString("+ " + strings.ReplaceAll(diff.Text, "\n", "\n+ ") + "\n")
		case diffmatchpatch.DiffEqual:
			result.WriteString("  ...\n")
		}
	}
	return result.String()
}

// FilePublisher copies posts into a local Hugo site: the markdown into
// ContentDir and the images folder into ImagesDir/<name>_images.
type FilePublisher struct {
	ContentDir string
	ImagesDir  string
	Confirmer  Confirmer
	Log        *slog.Logger
}

func (p *FilePublisher) Publish(ctx context.Context, res *Result) (PublishStatus, error) {
	data, err := os.ReadFile(res.MarkdownPath)
	if err != nil {
		return "", fmt.Errorf("read post: %w", err)
	}
	target := filepath.Join(p.ContentDir, filepath.Base(res.MarkdownPath))

	var diff string
	existing, err := os.ReadFile(target)
	switch {
	case err == nil && bytes.Equal(existing, data):
		p.Log.Info("post unchanged, skipping publish", "target", target)
		return Unchanged, nil
	case err == nil:
		diff = PreviewDiff(string(existing), string(data))
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read published post: %w", err)
	}

	ok, err := p.Confirmer.Confirm(ctx, ConfirmRequest{Source: res.MarkdownPath, Target: target, Diff: diff})
	if err != nil {
		return "", err
	}
	if !ok {
		return Declined, nil
	}

	if err := os.MkdirAll(p.ContentDir, 0o755); err != nil {
		return "", fmt.Errorf("create content dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("copy post to %s: %w", target, err)
	}
	p.Log.Warn("file copied", "target", target)

	imagesTarget := filepath.Join(p.ImagesDir, strings.ToLower(filepath.Base(res.ImagesDir)))
	if err := copyDir(res.ImagesDir, imagesTarget); err != nil {
		return "", fmt.Errorf("copy images to %s: %w", imagesTarget, err)
	}
	return Published, nil
}
