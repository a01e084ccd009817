package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdtargets/bird-targets/internal/datastore"
	"github.com/birdtargets/bird-targets/internal/export"
	"github.com/birdtargets/bird-targets/internal/observability"
)

func TestRunFromCache(t *testing.T) {
	settings := newTestSettings(t)
	settings.Output.Path = t.TempDir()
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())

	require.NoError(t, store.SaveRegion(&datastore.Region{Code: "US-NC-063", Name: "Durham", IsTarget: true}))
	require.NoError(t, store.SaveRegion(&datastore.Region{Code: "US-NC-135", Name: "Orange"}))
	require.NoError(t, store.SaveRegion(&datastore.Region{Code: "US-NC-183", Name: "Wake"}))
	require.NoError(t, store.SaveRegion(&datastore.Region{Code: "US-NC-077", Name: "Granville"}))

	// The month-4 rows of each region share one cell, so they repeat the
	// cell's checklist count; the month-5 Wood Thrush rows stand alone.
	require.NoError(t, store.ReplaceActivity("US-NC-063", []datastore.SpeciesActivity{
		{RegionCode: "US-NC-063", SpeciesCode: "norcar", CommonName: "Northern Cardinal", Month: 4, ChecklistCount: 180, ObservationCount: 190},
		{RegionCode: "US-NC-063", SpeciesCode: "carwre", CommonName: "Carolina Wren", Month: 4, ChecklistCount: 180, ObservationCount: 32},
		{RegionCode: "US-NC-063", SpeciesCode: "woothr", CommonName: "Wood Thrush", Month: 5, ChecklistCount: 6, ObservationCount: 6},
	}))
	for region, counts := range map[string][2]int{
		"US-NC-135": {230, 95},
		"US-NC-183": {420, 160},
		"US-NC-077": {95, 44},
	} {
		require.NoError(t, store.ReplaceActivity(region, []datastore.SpeciesActivity{
			{RegionCode: region, SpeciesCode: "norcar", CommonName: "Northern Cardinal", Month: 4, ChecklistCount: counts[0], ObservationCount: counts[0] + 10},
			{RegionCode: region, SpeciesCode: "carwre", CommonName: "Carolina Wren", Month: 4, ChecklistCount: counts[0], ObservationCount: counts[0]/3 + 2},
			{RegionCode: region, SpeciesCode: "woothr", CommonName: "Wood Thrush", Month: 5, ChecklistCount: counts[1], ObservationCount: counts[1] + 5},
		}))
	}
	require.NoError(t, store.Close())

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	summary, err := RunFromCache(settings, metrics)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.SpeciesRanked)
	assert.Zero(t, summary.SpeciesExcluded)
	assert.Equal(t, 3, summary.LayersExported)

	scores, err := export.ReadRankedCSV(summary.RankedPath)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// Wood Thrush is scarce in the target region but widely reported in the
	// neighbors, so it leads the ranking.
	assert.Equal(t, "woothr", scores[0].SpeciesCode)
	assert.Positive(t, scores[0].UnderreportedScore)

	layersDir := filepath.Join(settings.Output.Path, "layers")
	entries, err := os.ReadDir(layersDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunFromCacheEmptyCache(t *testing.T) {
	settings := newTestSettings(t)
	settings.Output.Path = t.TempDir()
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")

	// An un-fetched cache has no target region to score.
	_, err := RunFromCache(settings, nil)
	require.Error(t, err)
}
