// Package metrics provides Prometheus metrics for the filesystem.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsysfs_operations_total",
			Help: "Total number of filesystem operations",
		},
		[]string{"op", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lsysfs_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
		[]string{"op"},
	)

	// Content transfer metrics
	bytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lsysfs_bytes_read_total",
			Help: "Total bytes returned by read operations",
		},
	)

	bytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lsysfs_bytes_written_total",
			Help: "Total bytes accepted by write operations",
		},
	)

	// Table metrics
	entries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsysfs_entries",
			Help: "Number of live entries by kind",
		},
		[]string{"kind"},
	)

	contentBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lsysfs_content_bytes",
			Help: "Total size of all file contents held in memory",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// RecordOperation records one dispatched filesystem operation.
func RecordOperation(op string, duration time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	operationsTotal.WithLabelValues(op, result).Inc()
	operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordRead records bytes returned to a reader.
func RecordRead(n int) {
	bytesRead.Add(float64(n))
}

// RecordWrite records bytes accepted from a writer.
func RecordWrite(n int) {
	bytesWritten.Add(float64(n))
}

// SetEntries sets the live directory and file counts and the total content size.
func SetEntries(dirs, files int, bytes int64) {
	entries.WithLabelValues("directory").Set(float64(dirs))
	entries.WithLabelValues("file").Set(float64(files))
	contentBytes.Set(float64(bytes))
}
