// Package metrics exposes Prometheus instrumentation for feature extraction runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cell outcome labels for CellsTotal.
const (
	StatusAssembled = "assembled"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

var (
	cellsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltraj_cells_total",
			Help: "Total number of cells processed by outcome",
		},
		[]string{"status"}, // status: assembled, skipped, failed
	)

	recordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "celltraj_records_written_total",
			Help: "Total number of feature records persisted",
		},
	)

	cellDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "celltraj_cell_duration_seconds",
			Help:    "Time spent assembling one cell's records",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	contourCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "celltraj_contour_cache_total",
			Help: "Contour cache lookups by result",
		},
		[]string{"result"}, // result: hit, miss
	)

	neighborTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "celltraj_neighbor_truncations_total",
			Help: "Number of records whose adjacent neighbors exceeded the slot count",
		},
	)
)

// ObserveCell records the outcome of one cell and, when assembled, its duration.
func ObserveCell(status string, d time.Duration) {
	cellsTotal.WithLabelValues(status).Inc()
	if status == StatusAssembled {
		cellDuration.Observe(d.Seconds())
	}
}

// AddRecordsWritten counts persisted records.
func AddRecordsWritten(n int) {
	recordsWritten.Add(float64(n))
}

// ObserveContourCache counts a contour cache hit or miss.
func ObserveContourCache(hit bool) {
	if hit {
		contourCache.WithLabelValues("hit").Inc()
		return
	}
	contourCache.WithLabelValues("miss").Inc()
}

// ObserveNeighborTruncation counts a record that dropped adjacent neighbors.
func ObserveNeighborTruncation() {
	neighborTruncations.Inc()
}
