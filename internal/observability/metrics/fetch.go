// Package metrics provides Prometheus metric collectors for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FetchMetrics contains Prometheus metrics for the eBird fetch pathway
type FetchMetrics struct {
	registry *prometheus.Registry

	apiRequestsTotal  *prometheus.CounterVec
	apiRequestErrors  *prometheus.CounterVec
	apiRequestLatency *prometheus.HistogramVec
	cacheHitsTotal    *prometheus.CounterVec

	regionFetchDuration *prometheus.HistogramVec
	datesSampledTotal   *prometheus.CounterVec
	activityRowsGauge   *prometheus.GaugeVec

	collectors []prometheus.Collector
}

// NewFetchMetrics creates and registers new fetch metrics
func NewFetchMetrics(registry *prometheus.Registry) (*FetchMetrics, error) {
	m := &FetchMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *FetchMetrics) initMetrics() {
	m.apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_api_requests_total",
			Help: "Total number of eBird API requests",
		},
		[]string{"endpoint"},
	)

	m.apiRequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_api_request_errors_total",
			Help: "Total number of failed eBird API requests",
		},
		[]string{"endpoint", "category"},
	)

	m.apiRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_api_request_duration_seconds",
			Help:    "eBird API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	m.cacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_cache_operations_total",
			Help: "eBird response cache hits and misses",
		},
		[]string{"result"},
	)

	m.regionFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_region_duration_seconds",
			Help:    "Time to fetch one region's sampled observations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"region"},
	)

	m.datesSampledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_dates_sampled_total",
			Help: "Historical dates sampled per region",
		},
		[]string{"region"},
	)

	m.activityRowsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fetch_activity_rows",
			Help: "Activity rows written to the cache per region",
		},
		[]string{"region"},
	)

	m.collectors = []prometheus.Collector{
		m.apiRequestsTotal,
		m.apiRequestErrors,
		m.apiRequestLatency,
		m.cacheHitsTotal,
		m.regionFetchDuration,
		m.datesSampledTotal,
		m.activityRowsGauge,
	}
}

// Describe implements the Collector interface
func (m *FetchMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *FetchMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordAPIRequest records one eBird API request
func (m *FetchMetrics) RecordAPIRequest(endpoint string, seconds float64) {
	m.apiRequestsTotal.WithLabelValues(endpoint).Inc()
	m.apiRequestLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordAPIError records one failed eBird API request
func (m *FetchMetrics) RecordAPIError(endpoint, category string) {
	m.apiRequestErrors.WithLabelValues(endpoint, category).Inc()
}

// RecordCacheResult records a cache hit or miss
func (m *FetchMetrics) RecordCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHitsTotal.WithLabelValues(result).Inc()
}

// RecordRegionFetch records one complete region fetch
func (m *FetchMetrics) RecordRegionFetch(region string, seconds float64, datesSampled, activityRows int) {
	m.regionFetchDuration.WithLabelValues(region).Observe(seconds)
	m.datesSampledTotal.WithLabelValues(region).Add(float64(datesSampled))
	m.activityRowsGauge.WithLabelValues(region).Set(float64(activityRows))
}
