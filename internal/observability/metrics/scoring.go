package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScoringMetrics contains Prometheus metrics for scoring runs
type ScoringMetrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	speciesScored    prometheus.Gauge
	speciesExcluded  *prometheus.GaugeVec
	runWarningsTotal prometheus.Counter

	collectors []prometheus.Collector
}

// NewScoringMetrics creates and registers new scoring metrics
func NewScoringMetrics(registry *prometheus.Registry) (*ScoringMetrics, error) {
	m := &ScoringMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ScoringMetrics) initMetrics() {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_runs_total",
			Help: "Total number of scoring runs",
		},
		[]string{"status"},
	)

	m.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_run_duration_seconds",
			Help:    "Scoring run duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
	)

	m.speciesScored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoring_species_scored",
			Help: "Species in the last run's ranked output",
		},
	)

	m.speciesExcluded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scoring_species_excluded",
			Help: "Species excluded in the last run, by reason",
		},
		[]string{"reason"},
	)

	m.runWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_run_warnings_total",
			Help: "Warnings emitted across scoring runs",
		},
	)

	m.collectors = []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.speciesScored,
		m.speciesExcluded,
		m.runWarningsTotal,
	}
}

// Describe implements the Collector interface
func (m *ScoringMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ScoringMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRun records one scoring run outcome
func (m *ScoringMetrics) RecordRun(status string, seconds float64, ranked int, excludedByReason map[string]int, warnings int) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
	m.speciesScored.Set(float64(ranked))
	for reason, count := range excludedByReason {
		m.speciesExcluded.WithLabelValues(reason).Set(float64(count))
	}
	m.runWarningsTotal.Add(float64(warnings))
}
