package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ExportsTotal counts completed export workflows by result
	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vulnsync",
			Name:      "exports_total",
			Help:      "Total number of bulk-export workflows, labeled by result",
		},
		[]string{"result"},
	)

	// ExportDuration tracks end-to-end export workflow latency
	ExportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vulnsync",
			Name:      "export_duration_seconds",
			Help:      "Wall-clock duration of successful export workflows",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// ChunksDownloaded counts export chunks successfully fetched
	ChunksDownloaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vulnsync",
			Name:      "chunks_downloaded_total",
			Help:      "Total number of export chunks downloaded",
		},
	)

	// CacheLookups counts freshness-cache lookups by outcome (hit, miss, stale)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vulnsync",
			Name:      "cache_lookups_total",
			Help:      "Total number of finding-cache lookups, labeled by outcome",
		},
		[]string{"outcome"},
	)

	// RecordsProcessed counts records flowing through each pipeline stage
	RecordsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vulnsync",
			Name:      "records_processed_total",
			Help:      "Total number of records processed, labeled by pipeline stage",
		},
		[]string{"stage"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ExportsTotal)
		prometheus.DefaultRegisterer.Register(ExportDuration)
		prometheus.DefaultRegisterer.Register(ChunksDownloaded)
		prometheus.DefaultRegisterer.Register(CacheLookups)
		prometheus.DefaultRegisterer.Register(RecordsProcessed)
	})
}
