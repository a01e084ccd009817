// Package observability provides metrics and monitoring capabilities for the
// bird-targets application.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/birdtargets/bird-targets/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Fetch    *metrics.FetchMetrics
	Scoring  *metrics.ScoringMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	fetchMetrics, err := metrics.NewFetchMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	scoringMetrics, err := metrics.NewScoringMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Fetch:    fetchMetrics,
		Scoring:  scoringMetrics,
	}, nil
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
