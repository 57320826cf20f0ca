package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"github.com/attilastrba/notion2hugo/internal/config"
	"github.com/attilastrba/notion2hugo/internal/export"
	"github.com/attilastrba/notion2hugo/internal/formatter"
	"github.com/attilastrba/notion2hugo/internal/notion"
	"github.com/attilastrba/notion2hugo/internal/parser"
)

// Build describes one batch to assemble from configuration.
type Build struct {
	DatabaseID string
	Filter     json.RawMessage
	// CacheDir and OutputDir override the configured dirs, e.g. per server job.
	CacheDir  string
	OutputDir string
	// Clean removes the output dir before exporting.
	Clean bool
	// Confirmer enables publishing when non-nil.
	Confirmer export.Confirmer
}

// NewRunnerFromConfig wires a Runner against the live Notion API. The
// returned close func releases the publisher and the API client.
func NewRunnerFromConfig(ctx context.Context, cfg config.Config, b Build, log *slog.Logger) (*Runner, func(), error) {
	client := notion.NewClient(cfg.NotionAPIURL, cfg.NotionToken, cfg.NotionVersion)
	closers := []func(){client.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	outputDir := b.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	exporter, err := export.NewExporter(export.Options{
		ParentDir:        outputDir,
		PostNameProperty: cfg.PostNameProperty,
		Clean:            b.Clean,
	}, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	var publisher export.Publisher
	if b.Confirmer != nil {
		switch cfg.PublishTarget {
		case config.TargetGCS:
			gcs, err := export.NewGCSPublisher(ctx, export.GCSOptions{
				Bucket:          cfg.PublishBucket,
				CredentialsFile: cfg.GCSCredentialsFile,
				ContentPrefix:   "content/blog-entries",
				ImagesPrefix:    "assets/images",
			}, b.Confirmer, log)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			closers = append(closers, func() {
				if err := gcs.Close(); err != nil {
					log.Warn("close storage client", "error", err)
				}
			})
			publisher = gcs
		default:
			publisher = &export.FilePublisher{
				ContentDir: cfg.PublishContentDir,
				ImagesDir:  cfg.PublishImagesDir,
				Confirmer:  b.Confirmer,
				Log:        log,
			}
		}
	}

	databaseID := b.DatabaseID
	if databaseID == "" {
		databaseID = cfg.NotionDatabaseID
	}
	filter := b.Filter
	if len(filter) == 0 {
		filter = cfg.Filter()
	}
	cacheDir := b.CacheDir
	if cacheDir == "" {
		cacheDir = cfg.CacheDir
	}

	runner := NewRunner(client, parser.NewHTTPDownloader(), formatter.NewHugoFormatter(cfg.ReadingWPM, log), exporter, publisher, Options{
		DatabaseID:  databaseID,
		Filter:      filter,
		CacheDir:    cacheDir,
		AssetsDir:   cfg.AssetsDir,
		Concurrency: cfg.Concurrency,
	}, log)
	return runner, closeAll, nil
}

// JobCacheDir gives each server job its own media cache.
func JobCacheDir(cfg config.Config, jobID string) string {
	return filepath.Join(cfg.CacheDir, jobID)
}

// JobOutputDir gives each server job its own export tree, so jobs running
// on parallel workers never write the same post dir.
func JobOutputDir(cfg config.Config, jobID string) string {
	return filepath.Join(cfg.OutputDir, jobID)
}
