package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks control API request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts control API requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SyncTicksTotal counts orchestrator ticks by outcome (ran, idle, paused, skipped, panic).
	SyncTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientsync_ticks_total",
			Help: "Total number of orchestrator ticks by outcome",
		},
		[]string{"outcome"},
	)

	// SyncRunsTotal counts executed tasks by task and status (completed, failed).
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientsync_runs_total",
			Help: "Total number of sync task runs by task and status",
		},
		[]string{"task", "status"},
	)

	// SyncRunDuration tracks task duration in seconds.
	SyncRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patientsync_run_duration_seconds",
			Help:    "Sync task duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"task"},
	)

	// SyncRecordsTotal counts records written to the store (import) or to CSV (export).
	SyncRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientsync_records_total",
			Help: "Total number of records affected by sync tasks",
		},
		[]string{"task"},
	)

	// ImportFilesTotal counts import files by status (completed, failed).
	ImportFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patientsync_import_files_total",
			Help: "Total number of import files processed by status",
		},
		[]string{"status"},
	)

	// SyncPaused is 1 while the settings pause flag is observed set.
	SyncPaused = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patientsync_paused",
			Help: "Whether the sync loop is paused (1) or active (0)",
		},
	)

	// SyncRunning is the number of tasks currently running (0 or 1).
	SyncRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "patientsync_running",
			Help: "Number of sync tasks currently running",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestDuration, RequestTotal,
			SyncTicksTotal, SyncRunsTotal, SyncRunDuration, SyncRecordsTotal, ImportFilesTotal,
			SyncPaused, SyncRunning,
		)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /patients/123 -> /patients/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncTick counts one orchestrator tick.
func IncTick(outcome string) {
	SyncTicksTotal.WithLabelValues(outcome).Inc()
}

// SetPaused records the observed pause flag.
func SetPaused(paused bool) {
	if paused {
		SyncPaused.Set(1)
		return
	}
	SyncPaused.Set(0)
}

// TaskStarted marks a task as running. Pair it with a deferred TaskDone.
func TaskStarted() {
	SyncRunning.Inc()
}

// TaskDone clears the running mark set by TaskStarted.
func TaskDone() {
	SyncRunning.Dec()
}

// TaskFinished records the outcome of a task run.
func TaskFinished(task, status string, durationSeconds float64, records int) {
	SyncRunsTotal.WithLabelValues(task, status).Inc()
	SyncRunDuration.WithLabelValues(task).Observe(durationSeconds)
	if records > 0 {
		SyncRecordsTotal.WithLabelValues(task).Add(float64(records))
	}
}

// IncImportFile counts one processed import file.
func IncImportFile(status string) {
	ImportFilesTotal.WithLabelValues(status).Inc()
}
