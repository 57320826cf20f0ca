package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/attilastrba/notion2hugo/internal/metrics"
)

// ErrNotAnImage is returned when a media URL does not serve an image/* type.
var ErrNotAnImage = errors.New("url does not contain an image")

// Downloader opens a remote resource for streaming.
type Downloader interface {
	Open(ctx context.Context, url string) (contentType string, body io.ReadCloser, err error)
}

// HTTPDownloader fetches media over plain HTTP GET.
type HTTPDownloader struct {
	httpClient *http.Client
}

func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (d *HTTPDownloader) Open(ctx context.Context, url string) (string, io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), resp.Body, nil
}

// downloadImage stores the image behind url as img_<n>.<ext> in the download
// dir. An existing file at that path is reused without rewriting it.
func (p *BlockParser) downloadImage(ctx context.Context, url string) (string, error) {
	contentType, body, err := p.downloader.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	ext, err := imageExtension(contentType)
	if err != nil {
		return "", err
	}

	p.imgCount++
	path := filepath.Join(p.downloadDir, fmt.Sprintf("img_%d.%s", p.imgCount, ext))
	if _, err := os.Stat(path); err == nil {
		p.log.Info("skipping image download, already cached", "path", path)
		return path, nil
	}

	p.log.Info("downloading image", "path", path)
	if err := os.MkdirAll(p.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write image %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image %s: %w", path, err)
	}
	metrics.ImagesDownloaded.Inc()
	return path, nil
}

// imageExtension derives the file extension from an image/<ext> content type.
func imageExtension(contentType string) (string, error) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	parts := strings.Split(strings.TrimSpace(mediaType), "/")
	if len(parts) != 2 || parts[0] != "image" || parts[1] == "" {
		return "", fmt.Errorf("%w: found content type %q", ErrNotAnImage, contentType)
	}
	return parts[1], nil
}
