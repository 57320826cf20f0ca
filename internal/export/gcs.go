package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSPublisher uploads posts into a bucket laid out like a Hugo site:
// content/<name>.md and assets/images/<name>_images/<file>.
type GCSPublisher struct {
	client        *storage.Client
	bucket        *storage.BucketHandle
	bucketName    string
	contentPrefix string
	imagesPrefix  string
	confirmer     Confirmer
	log           *slog.Logger
}

// GCSOptions configures a GCSPublisher.
type GCSOptions struct {
	Bucket          string
	CredentialsFile string
	ContentPrefix   string
	ImagesPrefix    string
}

func NewGCSPublisher(ctx context.Context, opts GCSOptions, confirmer Confirmer, log *slog.Logger) (*GCSPublisher, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSPublisher{
		client:        client,
		bucket:        client.Bucket(opts.Bucket),
		bucketName:    opts.Bucket,
		contentPrefix: opts.ContentPrefix,
		imagesPrefix:  opts.ImagesPrefix,
		confirmer:     confirmer,
		log:           log,
	}, nil
}

func (p *GCSPublisher) Close() error {
	return p.client.Close()
}

// ObjectNames maps an exported post to its markdown object and image prefix.
func ObjectNames(contentPrefix, imagesPrefix string, res *Result) (markdown, images string) {
	markdown = path.Join(contentPrefix, filepath.Base(res.MarkdownPath))
	images = path.Join(imagesPrefix, strings.ToLower(filepath.Base(res.ImagesDir)))
	return markdown, images
}

func (p *GCSPublisher) Publish(ctx context.Context, res *Result) (PublishStatus, error) {
	data, err := os.ReadFile(res.MarkdownPath)
	if err != nil {
		return "", fmt.Errorf("read post: %w", err)
	}
	mdObject, imagesPrefix := ObjectNames(p.contentPrefix, p.imagesPrefix, res)
	target := "gs://" + p.bucketName + "/" + mdObject

	existing, err := p.read(ctx, mdObject)
	var diff string
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
	case err != nil:
		return "", fmt.Errorf("read %s: %w", target, err)
	case bytes.Equal(existing, data):
		p.log.Info("post unchanged, skipping publish", "target", target)
		return Unchanged, nil
	default:
		diff = PreviewDiff(string(existing), string(data))
	}

	ok, err := p.confirmer.Confirm(ctx, ConfirmRequest{Source: res.MarkdownPath, Target: target, Diff: diff})
	if err != nil {
		return "", err
	}
	if !ok {
		return Declined, nil
	}

	if err := p.write(ctx, mdObject, bytes.NewReader(data), "text/markdown; charset=utf-8"); err != nil {
		return "", err
	}
	p.log.Warn("post uploaded", "target", target)

	entries, err := os.ReadDir(res.ImagesDir)
	if err != nil {
		return "", fmt.Errorf("list images: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := p.upload(ctx, filepath.Join(res.ImagesDir, e.Name()), path.Join(imagesPrefix, e.Name())); err != nil {
			return "", err
		}
	}
	return Published, nil
}

func (p *GCSPublisher) read(ctx context.Context, object string) ([]byte, error) {
	r, err := p.bucket.Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (p *GCSPublisher) upload(ctx context.Context, file, object string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.write(ctx, object, f, mime.TypeByExtension(filepath.Ext(file)))
}

func (p *GCSPublisher) write(ctx context.Context, object string, r io.Reader, contentType string) error {
	w := p.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write to GCS object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write %s: %w", object, err)
	}
	return nil
}
