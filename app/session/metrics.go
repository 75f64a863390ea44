package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load outcomes recorded on plotloader_loads_total.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics counts ingestion activity. One Metrics is shared by every session
// of a process.
type Metrics struct {
	loads        *prometheus.CounterVec
	rowsLoaded   prometheus.Counter
	warnings     prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	loadDuration prometheus.Histogram
}

// NewMetrics registers the ingestion metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		loads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "plotloader_loads_total",
			Help: "File loads by file type and outcome.",
		}, []string{"type", "outcome"}),
		rowsLoaded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "plotloader_rows_loaded_total",
			Help: "Rows published by successful loads.",
		}),
		warnings: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "plotloader_parse_warnings_total",
			Help: "Non-fatal problems found while parsing files.",
		}),
		cacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "plotloader_table_cache_hits_total",
			Help: "Loads served from the parsed-table cache.",
		}),
		cacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "plotloader_table_cache_misses_total",
			Help: "Loads that had to parse the file.",
		}),
		loadDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "plotloader_load_duration_seconds",
			Help:    "Time spent turning file content into a table.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}
