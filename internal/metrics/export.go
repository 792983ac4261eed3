// Package metrics exposes Prometheus collectors for export runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Export holds the collectors recorded by every export run. A nil *Export is
// valid and records nothing.
type Export struct {
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewExport registers the export collectors with reg.
func NewExport(reg prometheus.Registerer) *Export {
	factory := promauto.With(reg)
	return &Export{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_export_runs_total",
				Help: "Export runs by format, mode (full or preview) and result",
			},
			[]string{"format", "mode", "result"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_export_rows_total",
				Help: "Rows handed to serializers",
			},
			[]string{"format", "mode"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_export_run_duration_seconds",
				Help:    "Wall time of export runs",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"format", "mode"},
		),
	}
}

// ObserveRun records the outcome of one run.
func (m *Export) ObserveRun(format, mode, result string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(format, mode, result).Inc()
	m.rows.WithLabelValues(format, mode).Add(float64(rows))
	m.duration.WithLabelValues(format, mode).Observe(elapsed.Seconds())
}
