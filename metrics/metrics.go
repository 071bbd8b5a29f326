// Package metrics counts what a run scored and writes the counts in the Prometheus text format,
// for a node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/invertedv/sods/score"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of one run. A nil *Metrics ignores every call.
type Metrics struct {
	registry *prometheus.Registry

	// rows scored by level and pair
	Rows *prometheus.CounterVec
	// rows flagged by level and pair
	Flagged *prometheus.CounterVec
	// partitions by level and pair, and those too small to score
	Partitions *prometheus.CounterVec
	Degenerate *prometheus.CounterVec

	Duration prometheus.Gauge
	Info     *prometheus.GaugeVec
}

// New registers the metrics of run runID with a fresh registry.
func New(runID string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		Rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sods_rows_scored_total",
			Help: "Rows scored by hierarchy level and ratio pair",
		}, []string{"level", "pair"}),

		Flagged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sods_rows_flagged_total",
			Help: "Rows flagged as outliers by hierarchy level and ratio pair",
		}, []string{"level", "pair"}),

		Partitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sods_partitions_total",
			Help: "Partitions scored by hierarchy level and ratio pair",
		}, []string{"level", "pair"}),

		Degenerate: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sods_partitions_degenerate_total",
			Help: "Partitions with too few rows to score, by hierarchy level and ratio pair",
		}, []string{"level", "pair"}),

		Duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sods_run_duration_seconds",
			Help: "Wall time of the run",
		}),

		Info: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sods_run_info",
			Help: "Always 1, labelled with the run id",
		}, []string{"run_id"}),
	}

	m.Info.WithLabelValues(runID).Set(1)

	return m
}

// Observe records one level × pair pass.
func (m *Metrics) Observe(level string, pass *score.Pass) {
	if m == nil || pass == nil {
		return
	}

	pair := pass.Pair.String()
	m.Rows.WithLabelValues(level, pair).Add(float64(pass.Rows))
	m.Flagged.WithLabelValues(level, pair).Add(float64(pass.Flagged))
	m.Partitions.WithLabelValues(level, pair).Add(float64(pass.Partitions))
	m.Degenerate.WithLabelValues(level, pair).Add(float64(pass.Degenerate))
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m != nil {
		m.Duration.Set(d.Seconds())
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// WriteFile writes every metric to path, atomically.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}

	return prometheus.WriteToTextfile(path, m.registry)
}
