// Package metrics exposes prometheus instrumentation for the storage
// engine: live columns and bytes per storage kind, row index construction
// counts, sort latencies, combinator calls and codec throughput.
//
// # Basic Usage
//
//	metrics.ColumnsLive.WithLabelValues("heap").Inc()
//
//	timer := metrics.NewTimer()
//	ordering, err := sorter.Sort(col)
//	metrics.SortDuration.WithLabelValues("radix").Observe(timer.Stop().Seconds())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ColumnsLive tracks columns whose storage has not been released.
	// Labels: storage (heap, mmap, external)
	ColumnsLive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datatable_columns_live",
			Help: "Number of columns with live backing storage",
		},
		[]string{"storage"},
	)

	// BytesLive tracks the size of live primary buffers.
	// Labels: storage (heap, mmap, external)
	BytesLive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datatable_column_bytes_live",
			Help: "Bytes held by live column buffers",
		},
		[]string{"storage"},
	)

	// RowIndexCreated counts row index constructions.
	// Labels: kind (slice, arr32, arr64), source (slice, array, filter, predicate, merge)
	RowIndexCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datatable_rowindex_created_total",
			Help: "Total number of row indices constructed",
		},
		[]string{"kind", "source"},
	)

	// SortDuration tracks the distribution of sort latencies in seconds.
	// Labels: method (insertion, radix)
	SortDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datatable_sort_duration_seconds",
			Help:    "Sort latency in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		},
		[]string{"method"},
	)

	// CombinatorCalls counts rbind and cbind operations.
	// Labels: op (rbind, cbind), path (inplace, copy)
	CombinatorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datatable_combinator_calls_total",
			Help: "Total number of rbind/cbind operations",
		},
		[]string{"op", "path"},
	)

	// CompressionBytes counts uncompressed bytes passed through a codec.
	// Labels: algorithm, direction (encode, decode)
	CompressionBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datatable_compression_bytes_total",
			Help: "Uncompressed bytes encoded or decoded by column codecs",
		},
		[]string{"algorithm", "direction"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// TrackAlloc records a newly materialized buffer of the given storage kind.
func TrackAlloc(storage string, bytes int) {
	ColumnsLive.WithLabelValues(storage).Inc()
	BytesLive.WithLabelValues(storage).Add(float64(bytes))
}

// TrackRelease undoes TrackAlloc.
func TrackRelease(storage string, bytes int) {
	ColumnsLive.WithLabelValues(storage).Dec()
	BytesLive.WithLabelValues(storage).Sub(float64(bytes))
}
