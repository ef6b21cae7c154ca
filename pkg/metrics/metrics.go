package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "burrow_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Storage metrics
	DocumentsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_documents_written_total",
			Help: "Total number of documents written, including batch and import writes",
		},
	)

	DocumentsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_documents_deleted_total",
			Help: "Total number of documents deleted",
		},
	)

	CollectionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_collections_total",
			Help: "Number of live column families, including internal ones",
		},
	)

	// Subscription metrics
	EventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_events_published_total",
			Help: "Total number of mutation events published to subscribers",
		},
	)

	SubscribersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "burrow_subscribers_active",
			Help: "Number of currently connected event subscribers",
		},
	)

	SubscriberLagEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_subscriber_lag_events_total",
			Help: "Total number of events dropped because a subscriber lagged",
		},
	)

	// Backup/restore metrics
	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_backups_total",
			Help: "Total number of backup jobs by outcome",
		},
		[]string{"status"},
	)

	RestoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_restores_total",
			Help: "Total number of restore jobs by outcome",
		},
		[]string{"status"},
	)

	// Import metrics
	ImportedDocuments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_imported_documents_total",
			Help: "Total number of documents ingested through bulk import",
		},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DocumentsWritten)
	prometheus.MustRegister(DocumentsDeleted)
	prometheus.MustRegister(CollectionsTotal)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(SubscribersActive)
	prometheus.MustRegister(SubscriberLagEvents)
	prometheus.MustRegister(BackupsTotal)
	prometheus.MustRegister(RestoresTotal)
	prometheus.MustRegister(ImportedDocuments)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
