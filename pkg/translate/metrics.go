package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Subprocess metrics
	subprocessRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vakya_subprocess_runs_total",
			Help: "Total number of local model subprocess runs",
		},
		[]string{"engine", "status"},
	)

	subprocessRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vakya_subprocess_run_duration_seconds",
			Help:    "Wall time of local model subprocess runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"engine", "status"},
	)

	subprocessInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vakya_subprocess_in_flight",
			Help: "Number of local model subprocesses currently running",
		},
		[]string{"engine"},
	)

	subprocessAdmissionWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vakya_subprocess_admission_wait_seconds",
			Help:    "Time spent waiting for a subprocess slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"engine"},
	)

	subprocessOutputSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vakya_subprocess_output_size_bytes",
			Help:    "Size of subprocess stdout in bytes",
			Buckets: []float64{16, 64, 256, 1024, 4096, 16384, 65536},
		},
		[]string{"engine"},
	)

	scratchCleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vakya_scratch_cleanup_failures_total",
			Help: "Total number of generated scripts that could not be removed",
		},
		[]string{"engine"},
	)

	// Translation request metrics
	translationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vakya_translation_requests_total",
			Help: "Total number of translation requests",
		},
		[]string{"method", "status"},
	)

	translationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vakya_translation_request_duration_seconds",
			Help:    "Duration of translation requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		},
		[]string{"method", "status"},
	)

	translationRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vakya_translation_request_size_bytes",
			Help:    "Size of translation request text in bytes",
			Buckets: []float64{16, 64, 256, 1024, 4096, 16384, 65536},
		},
		[]string{"method"},
	)
)

// engineMetrics records subprocess metrics for one engine.
type engineMetrics struct {
	engine string
}

func newEngineMetrics(engine string) engineMetrics {
	return engineMetrics{engine: engine}
}

func (m engineMetrics) started() {
	subprocessInFlight.WithLabelValues(m.engine).Inc()
}

func (m engineMetrics) finished(duration time.Duration, status string, outputSize int) {
	subprocessInFlight.WithLabelValues(m.engine).Dec()
	subprocessRunsTotal.WithLabelValues(m.engine, status).Inc()
	subprocessRunDuration.WithLabelValues(m.engine, status).Observe(duration.Seconds())
	subprocessOutputSize.WithLabelValues(m.engine).Observe(float64(outputSize))
}

func (m engineMetrics) notStarted() {
	subprocessRunsTotal.WithLabelValues(m.engine, "spawn_error").Inc()
}

func (m engineMetrics) admitted(wait time.Duration) {
	subprocessAdmissionWait.WithLabelValues(m.engine).Observe(wait.Seconds())
}

func (m engineMetrics) cleanupFailed() {
	scratchCleanupFailures.WithLabelValues(m.engine).Inc()
}

// recordTranslation records metrics for a Service.Translate call.
func recordTranslation(method Method, duration time.Duration, err error, requestSize int) {
	status := "success"
	switch {
	case err == nil:
	case IsValidation(err):
		status = "invalid"
	case IsPrecondition(err):
		status = "unavailable"
	case IsTimeout(err):
		status = "timeout"
	default:
		status = "error"
	}

	translationRequestsTotal.WithLabelValues(string(method), status).Inc()
	translationRequestDuration.WithLabelValues(string(method), status).Observe(duration.Seconds())
	translationRequestSize.WithLabelValues(string(method)).Observe(float64(requestSize))
}
