// Package metrics holds the prometheus collectors of the scheduler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the namespace component of the fully qualified metric name
const Namespace = "backup_scheduler"

// DefaultRegistry is the default [prometheus.Registry] for metrics.
var DefaultRegistry = prometheus.NewRegistry()

var (
	// RunsTotal counts finished runs by final status.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Total number of finished backup runs",
		},
		[]string{"status"},
	)

	// RunsSkippedTotal counts run requests refused because the same
	// schedule was already running.
	RunsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_skipped_total",
			Help:      "Total number of run requests skipped because a run was in progress",
		},
	)

	// RunsInFlight tracks currently executing runs.
	RunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "runs_in_flight",
			Help:      "Number of backup runs currently executing",
		},
	)

	// FilesTotal counts per-file outcomes.
	FilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "files_total",
			Help:      "Total number of files handled by backup runs, by result",
		},
		[]string{"result"},
	)

	// UploadedBytesTotal counts bytes sent to storage.
	UploadedBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Total number of bytes uploaded",
		},
	)

	// RunDurationSeconds observes the wall time of finished runs.
	RunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of finished backup runs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

// File results used as the FilesTotal label.
const (
	FileUploaded        = "uploaded"
	FileFailed          = "failed"
	FileSkippedExisting = "skipped_existing"
	FileSkippedTime     = "skipped_time"
)

var (
	gaugeFuncsMu sync.Mutex
	gaugeFuncs   = map[string]prometheus.Collector{}
)

// SetGaugeFunc registers a gauge backed by fn, replacing a previous gauge of
// the same name. The app container calls it again after a config reload.
func SetGaugeFunc(name, help string, fn func() float64) {
	gaugeFuncsMu.Lock()
	defer gaugeFuncsMu.Unlock()

	if old, ok := gaugeFuncs[name]; ok {
		DefaultRegistry.Unregister(old)
	}
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, fn)
	DefaultRegistry.MustRegister(g)
	gaugeFuncs[name] = g
}

// Handler serves [DefaultRegistry].
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}

// init registers collectors with the [DefaultRegistry].
func init() {
	DefaultRegistry.MustRegister(
		RunsTotal,
		RunsSkippedTotal,
		RunsInFlight,
		FilesTotal,
		UploadedBytesTotal,
		RunDurationSeconds,

		// Standard Go metrics
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}
