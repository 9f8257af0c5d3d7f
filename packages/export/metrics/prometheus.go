package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abdul-hamid-achik/flagrun/packages/core/runner"
)

// Exporter collects per-unit metrics into its own registry so repeated runs
// in watch mode never collide with the default registerer.
type Exporter struct {
	registry *prometheus.Registry

	unitsTotal    *prometheus.CounterVec
	flagsDetected prometheus.Counter
	unitDuration  prometheus.Histogram
	lastRun       prometheus.Gauge
}

// NewExporter creates an Exporter whose metrics carry runID as a constant label.
func NewExporter(runID string) *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID}

	e := &Exporter{
		registry: reg,
		unitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "units_total",
			Help:        "Number of test units by result status",
			ConstLabels: labels,
		}, []string{"status"}),
		flagsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "flags_detected_total",
			Help:        "Number of test units whose output contained their token",
			ConstLabels: labels,
		}),
		unitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "unit_duration_seconds",
			Help:        "Wall-clock duration of test units",
			ConstLabels: labels,
			Buckets:     DurationBuckets,
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the run finished",
			ConstLabels: labels,
		}),
	}

	for _, s := range []runner.Status{runner.StatusPass, runner.StatusFail, runner.StatusError} {
		e.unitsTotal.WithLabelValues(string(s))
	}
	return e
}

// Observe records one result.
func (e *Exporter) Observe(r *runner.RunResult) {
	e.unitsTotal.WithLabelValues(string(r.Status)).Inc()
	if r.FlagDetected {
		e.flagsDetected.Inc()
	}
	e.unitDuration.Observe(r.Seconds())
}

// Gatherer exposes the underlying registry.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// WriteTextfile stamps the finish time and writes all metrics to path.
func (e *Exporter) WriteTextfile(path string, finished time.Time) error {
	e.lastRun.Set(float64(finished.Unix()))
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
