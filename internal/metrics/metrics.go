package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Parsing metrics
	BlocksParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notion2hugo_blocks_parsed_total",
			Help: "Number of Notion blocks converted into nodes",
		},
		[]string{"variant"},
	)

	ImagesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion2hugo_images_downloaded_total",
		Help: "Number of images fetched from Notion",
	})

	// Export metrics
	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notion2hugo_documents_total",
			Help: "Number of documents processed by outcome",
		},
		[]string{"status"},
	)

	DocumentsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notion2hugo_documents_published_total",
			Help: "Number of publish attempts by outcome",
		},
		[]string{"status"},
	)

	ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notion2hugo_export_duration_seconds",
		Help:    "Wall time of a full export batch",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// Server metrics
	ExportQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notion2hugo_export_queue_length",
		Help: "Number of export jobs waiting to run",
	})
)
