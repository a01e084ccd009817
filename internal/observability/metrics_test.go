package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Fetch)
	require.NotNil(t, m.Scoring)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Fetch.RecordAPIRequest("historic", 0.2)
	m.Fetch.RecordCacheResult(true)
	m.Scoring.RecordRun("ok", 0.05, 120, map[string]int{"taxonomy_exclusion": 2}, 1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "fetch_api_requests_total")
	assert.Contains(t, body, "fetch_cache_operations_total")
	assert.Contains(t, body, "scoring_runs_total")
	assert.Contains(t, body, "scoring_species_scored 120")
}
