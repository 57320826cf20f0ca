package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/attilastrba/notion2hugo/internal/doctree"
	"github.com/attilastrba/notion2hugo/internal/export"
	"github.com/attilastrba/notion2hugo/internal/formatter"
	"github.com/attilastrba/notion2hugo/internal/metrics"
	"github.com/attilastrba/notion2hugo/internal/notion"
	"github.com/attilastrba/notion2hugo/internal/parser"
)

// Source lists database pages and their block trees.
type Source interface {
	QueryDatabase(ctx context.Context, databaseID string, filter json.RawMessage) ([]notion.Page, error)
	FetchBlockTree(ctx context.Context, blockID string) ([]notion.Block, error)
}

// Options configures a Runner.
type Options struct {
	DatabaseID string
	Filter     json.RawMessage
	// CacheDir holds downloaded media while a batch runs. It is removed
	// when the batch ends.
	CacheDir string
	// AssetsDir receives feature image thumbnails under images/. Empty
	// disables thumbnails.
	AssetsDir   string
	Concurrency int
}

// DocumentResult reports the outcome for one page.
type DocumentResult struct {
	PageID        string               `json:"page_id"`
	Name          string               `json:"name,omitempty"`
	MarkdownPath  string               `json:"markdown_path,omitempty"`
	PublishStatus export.PublishStatus `json:"publish_status,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Summary totals a batch.
type Summary struct {
	Pages     int              `json:"pages"`
	Exported  int              `json:"exported"`
	Failed    int              `json:"failed"`
	Published int              `json:"published"`
	Documents []DocumentResult `json:"documents"`
}

// Runner exports every page of a Notion database as a Hugo post.
type Runner struct {
	source     Source
	downloader parser.Downloader
	formatter  *formatter.HugoFormatter
	exporter   *export.Exporter
	publisher  export.Publisher
	opts       Options
	log        *slog.Logger
}

// NewRunner wires the stages. publisher may be nil to skip publishing.
func NewRunner(source Source, downloader parser.Downloader, f *formatter.HugoFormatter, e *export.Exporter, publisher export.Publisher, opts Options, log *slog.Logger) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Runner{
		source:     source,
		downloader: downloader,
		formatter:  f,
		exporter:   e,
		publisher:  publisher,
		opts:       opts,
		log:        log,
	}
}

type parsedPage struct {
	pageID string
	doc    *doctree.Document
	err    error
}

// Run fetches and parses pages concurrently and formats, exports and
// publishes them one at a time in completion order. A failing page is
// recorded and does not stop the batch. report, when set, is called after
// each page.
func (r *Runner) Run(ctx context.Context, report func(DocumentResult)) (Summary, error) {
	start := time.Now()
	defer func() { metrics.ExportDuration.Observe(time.Since(start).Seconds()) }()
	defer r.cleanup()

	r.log.Info("querying notion database", "database_id", r.opts.DatabaseID)
	pages, err := r.source.QueryDatabase(ctx, r.opts.DatabaseID, r.opts.Filter)
	if err != nil {
		return Summary{}, fmt.Errorf("query database: %w", err)
	}
	r.log.Info("notion database returned pages", "pages", len(pages))

	sum := Summary{Pages: len(pages), Documents: []DocumentResult{}}
	results := make(chan parsedPage, len(pages))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	go func() {
		for _, page := range pages {
			page := page
			g.Go(func() error {
				doc, err := r.fetchAndParse(ctx, page)
				results <- parsedPage{pageID: page.ID, doc: doc, err: err}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	for p := range results {
		res := r.finish(ctx, p)
		if res.Error != "" {
			sum.Failed++
			metrics.DocumentsProcessed.WithLabelValues("failed").Inc()
		} else {
			sum.Exported++
			metrics.DocumentsProcessed.WithLabelValues("exported").Inc()
		}
		if res.PublishStatus == export.Published {
			sum.Published++
		}
		sum.Documents = append(sum.Documents, res)
		if report != nil {
			report(res)
		}
	}

	r.log.Info("export completed", "exported", sum.Exported, "failed", sum.Failed, "published", sum.Published)
	return sum, nil
}

func (r *Runner) fetchAndParse(ctx context.Context, page notion.Page) (*doctree.Document, error) {
	props, err := parser.ParseProperties(page.Properties)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	blocks, err := r.source.FetchBlockTree(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch blocks: %w", err)
	}
	bp := parser.NewBlockParser(filepath.Join(r.opts.CacheDir, page.ID), r.downloader, r.log.With("page_id", page.ID))
	nodes, err := bp.ParseAll(ctx, blocks)
	if err != nil {
		return nil, fmt.Errorf("parse blocks: %w", err)
	}
	return &doctree.Document{ID: page.ID, Properties: props, Blobs: nodes}, nil
}

// finish runs the sequential tail of the pipeline for one parsed page.
func (r *Runner) finish(ctx context.Context, p parsedPage) DocumentResult {
	log := r.log.With("page_id", p.pageID)
	res := DocumentResult{PageID: p.pageID}
	fail := func(stage string, err error) DocumentResult {
		log.Error("document failed", "stage", stage, "error", err)
		res.Error = fmt.Sprintf("%s: %s", stage, err)
		return res
	}

	if p.err != nil {
		return fail("fetch", p.err)
	}
	log.Info("got page from notion")

	if err := r.attachFeatureImage(p.doc); err != nil {
		return fail("thumbnail", err)
	}
	doc, err := r.formatter.Format(p.doc)
	if err != nil {
		return fail("format", err)
	}
	out, err := r.exporter.Export(ctx, doc)
	if err != nil {
		return fail("export", err)
	}
	res.Name = out.Name
	res.MarkdownPath = out.MarkdownPath

	if r.publisher == nil {
		return res
	}
	status, err := r.publisher.Publish(ctx, out)
	if err != nil {
		// Publishing is best effort; the export itself succeeded.
		log.Error("publish failed", "error", err)
		metrics.DocumentsPublished.WithLabelValues("error").Inc()
		res.PublishStatus = "error"
		return res
	}
	metrics.DocumentsPublished.WithLabelValues(string(status)).Inc()
	res.PublishStatus = status
	return res
}

// attachFeatureImage copies the first feature image to
// <AssetsDir>/images/thumb_<title><ext> and records it as featureImage.
func (r *Runner) attachFeatureImage(doc *doctree.Document) error {
	if r.opts.AssetsDir == "" {
		return nil
	}
	var file string
	for _, n := range doc.Blobs {
		if n.HasFeatureImage() && n.File != "" {
			file = n.File
			break
		}
	}
	if file == "" {
		return nil
	}

	title, _ := doc.Properties.Get("Title")
	name := title.Str
	if title.IsList {
		name = strings.Join(title.List, "_")
	}
	rel := "images/thumb_" + export.SanitizePath(name) + filepath.Ext(file)
	dst := filepath.Join(r.opts.AssetsDir, filepath.FromSlash(rel))
	if err := export.CopyFile(file, dst); err != nil {
		return err
	}
	r.log.Info("copied feature image", "page_id", doc.ID, "to", dst)
	if doc.Properties == nil {
		doc.Properties = doctree.NewProperties()
	}
	doc.Properties.Set("featureImage", doctree.String(rel))
	return nil
}

// cleanup removes the media cache once per batch.
func (r *Runner) cleanup() {
	if r.opts.CacheDir == "" {
		return
	}
	if err := os.RemoveAll(r.opts.CacheDir); err != nil {
		r.log.Warn("failed to clean up cache dir", "dir", r.opts.CacheDir, "error", err)
		return
	}
	r.log.Info("cleaned up cache dir", "dir", r.opts.CacheDir)
}
