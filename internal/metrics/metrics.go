package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mescon/xdebug-handler/internal/restart"
)

// MetricsService holds the Prometheus collectors for one handler run.
// Collectors live on a private registry; a short-lived process has no scrape
// endpoint, so the registry is dumped with WriteTextfile for node_exporter's
// textfile collector.
type MetricsService struct {
	registry *prometheus.Registry

	// Counters
	checksTotal     *prometheus.CounterVec
	detectionErrors prometheus.Counter

	// Gauges
	childExitCode prometheus.Gauge

	// Histograms
	childDuration prometheus.Histogram
}

// NewMetricsService creates and registers the handler metrics
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),

		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xdebug_handler_checks_total",
				Help: "Total number of restart checks by outcome",
			},
			[]string{"outcome"}, // not_needed, restarted, failed
		),

		detectionErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xdebug_handler_detection_errors_total",
				Help: "Total number of extension probes that could not determine the extension state",
			},
		),

		childExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "xdebug_handler_child_exit_code",
				Help: "Exit code of the last relaunched child process",
			},
		),

		childDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xdebug_handler_child_duration_seconds",
				Help:    "Wall time of relaunched child processes",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
		),
	}

	m.registry.MustRegister(
		m.checksTotal,
		m.detectionErrors,
		m.childExitCode,
		m.childDuration,
	)

	return m
}

// Registry returns the registry holding every handler collector.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOutcome counts one completed restart check.
func (m *MetricsService) RecordOutcome(o restart.Outcome) {
	m.checksTotal.WithLabelValues(o.Kind().String()).Inc()
}

// RecordDetectionError counts a probe that failed open.
func (m *MetricsService) RecordDetectionError() {
	m.detectionErrors.Inc()
}

// RecordChild records how long a relaunched child ran and how it exited.
func (m *MetricsService) RecordChild(d time.Duration, exitCode int) {
	m.childDuration.Observe(d.Seconds())
	m.childExitCode.Set(float64(exitCode))
}

// WriteTextfile atomically writes every collector in the Prometheus text format.
func (m *MetricsService) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
