package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Autosave Metrics
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_saves_total",
			Help: "Total number of document persist attempts by outcome",
		},
		[]string{"outcome"},
	)

	SaveValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_save_validation_failures_total",
			Help: "Saves aborted because a document referenced ephemeral media",
		},
	)

	DebounceResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_save_debounce_resets_total",
			Help: "Number of times a queued save restarted the debounce timer",
		},
	)

	SaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipforge_save_duration_seconds",
			Help:    "Document persist latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Parser Metrics
	ParseRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_parse_runs_total",
			Help: "Total number of document parses into the layer model",
		},
	)

	// Project Metrics
	ProjectsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_projects_created_total",
			Help: "Total number of projects created",
		},
	)

	RenderRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_render_requests_total",
			Help: "Total number of render requests published",
		},
	)

	// Media Metrics
	MediaUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_media_uploads_total",
			Help: "Total number of media files promoted to durable storage",
		},
	)

	MediaUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipforge_media_upload_size_bytes",
			Help:    "Size of uploaded media in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~1GB
		},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_cache_operations_total",
			Help: "Project cache operations by result",
		},
		[]string{"result"},
	)
)

// Save outcome label values
const (
	SaveOutcomeSuccess         = "success"
	SaveOutcomeValidationError = "validation_error"
	SaveOutcomePersistError    = "persist_error"
)
