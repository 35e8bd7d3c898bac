// Package metrics defines the Prometheus instrumentation for the
// ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PagesScraped counts listing pages fetched, by outcome.
	PagesScraped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appgrove_pages_scraped_total",
			Help: "Listing pages fetched, by outcome.",
		},
		[]string{"outcome"},
	)

	// AppsImported counts catalog writes during import batches.
	AppsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appgrove_apps_imported_total",
			Help: "Apps created during import batches.",
		},
	)

	// AppsUpdated counts re-scrape updates during import batches.
	AppsUpdated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appgrove_apps_updated_total",
			Help: "Existing apps refreshed during import batches.",
		},
	)

	// AppsSkipped counts items skipped during import batches.
	AppsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appgrove_apps_skipped_total",
			Help: "Items skipped during import batches.",
		},
	)

	// MatchAttempts counts store lookups by resulting status.
	MatchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appgrove_match_attempts_total",
			Help: "Store match attempts, by resulting status.",
		},
		[]string{"status"},
	)

	// DuplicatesRemoved counts catalog rows deleted by duplicate resolution.
	DuplicatesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "appgrove_duplicates_removed_total",
			Help: "Catalog rows removed by duplicate resolution.",
		},
	)

	// ImportDuration observes wall-clock time of import batches.
	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "appgrove_import_duration_seconds",
			Help:    "Wall-clock duration of import batches.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		PagesScraped,
		AppsImported,
		AppsUpdated,
		AppsSkipped,
		MatchAttempts,
		DuplicatesRemoved,
		ImportDuration,
	)
}
