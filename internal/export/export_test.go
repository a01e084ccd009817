package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdtargets/bird-targets/internal/habitat"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

func testResult() *scoring.Result {
	return &scoring.Result{
		RunID: "test-run",
		Ranked: []scoring.SpeciesScore{
			{
				SpeciesCode:           "woothr",
				CommonName:            "Wood Thrush",
				ObserverExpectedScore: 0.8,
				HabitatExpectedScore:  0.4,
				ExpectedScore:         0.68,
				ObservedScore:         0.1,
				UnderreportedScore:    0.58,
				BestMonths:            []int{4, 5, 6, 7},
			},
			{
				SpeciesCode:        "norcar",
				CommonName:         "Northern Cardinal",
				ExpectedScore:      0.5,
				ObservedScore:      0.9,
				UnderreportedScore: 0,
			},
			{
				SpeciesCode:     "lotduc",
				CommonName:      "Long-tailed Duck",
				Excluded:        true,
				ExclusionReason: scoring.ReasonInsufficientEvidence,
			},
		},
	}
}

func TestWriteAndReadRankedCSV(t *testing.T) {
	out := t.TempDir()

	path, err := WriteRankedCSV(testResult(), out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, RankedCSVName), path)

	scores, err := ReadRankedCSV(path)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, "woothr", scores[0].SpeciesCode)
	assert.InDelta(t, 0.68, scores[0].ExpectedScore, 1e-9)
	assert.InDelta(t, 0.58, scores[0].UnderreportedScore, 1e-9)
	assert.Equal(t, []int{4, 5, 6, 7}, scores[0].BestMonths)

	assert.True(t, scores[2].Excluded)
	assert.Equal(t, scoring.ReasonInsufficientEvidence, scores[2].ExclusionReason)
}

func TestReadRankedCSV_RejectsUnknownLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))

	_, err := ReadRankedCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column layout")
}

func TestClassifyDensity(t *testing.T) {
	assert.Equal(t, "high", classifyDensity(800))
	assert.Equal(t, "high", classifyDensity(1500))
	assert.Equal(t, "medium", classifyDensity(300))
	assert.Equal(t, "medium", classifyDensity(799))
	assert.Equal(t, "low", classifyDensity(299))
	assert.Equal(t, "low", classifyDensity(0))
}

func TestChecklistDensityLayer(t *testing.T) {
	fc := ChecklistDensityLayer([]Hotspot{
		{LocID: "L1", Name: "Eno River SP", Lat: 36.07, Lon: -78.98, ChecklistCount: 900},
		{LocID: "L2", Name: "Sandy Creek Park", Lat: 35.98, Lon: -78.96, ChecklistCount: 100},
	})

	require.Len(t, fc.Features, 2)
	assert.Equal(t, "high", fc.Features[0].Properties["density_class"])
	assert.Equal(t, "low", fc.Features[1].Properties["density_class"])

	var geom struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(fc.Features[0].Geometry, &geom))
	assert.Equal(t, "Point", geom.Type)
	assert.InDelta(t, -78.98, geom.Coordinates[0], 1e-9)
}

func testLands() *habitat.FeatureCollection {
	return &habitat.FeatureCollection{
		Type: "FeatureCollection",
		Features: []habitat.Feature{
			{
				Type:       "Feature",
				Properties: habitat.LandProperties{Name: "Duke Forest--Durham Division", Type: "university_forest", AreaAcres: 7000},
				Geometry:   json.RawMessage(`{"type":"Point","coordinates":[-79.0,36.0]}`),
			},
			{
				Type:       "Feature",
				Properties: habitat.LandProperties{Name: "Sandy Creek Park", Type: "city_park", AreaAcres: 50},
				Geometry:   json.RawMessage(`{"type":"Point","coordinates":[-78.96,35.98]}`),
			},
		},
	}
}

func TestSurveyTargetsLayer(t *testing.T) {
	hotspots := []Hotspot{
		{LocID: "L1", Name: "Sandy Creek Park", ChecklistCount: 400},
		{LocID: "L2", Name: "Duke Forest Gate 23", ChecklistCount: 100},
	}

	fc := SurveyTargetsLayer(testLands(), hotspots)
	require.Len(t, fc.Features, 2)

	// Duke Forest: 100 checklists over 7000 acres -> high priority, first.
	assert.Equal(t, "Duke Forest--Durham Division", fc.Features[0].Properties["name"])
	assert.Equal(t, "high", fc.Features[0].Properties["survey_priority"])
	assert.Equal(t, 100, fc.Features[0].Properties["checklist_coverage"])

	// Sandy Creek: 400 checklists over 50 acres -> low priority.
	assert.Equal(t, "low", fc.Features[1].Properties["survey_priority"])
}

func TestWriteLayers(t *testing.T) {
	out := t.TempDir()

	n, err := WriteLayers(out, testLands(), []Hotspot{
		{LocID: "L1", Name: "Sandy Creek Park", ChecklistCount: 400},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, name := range []string{LayerPublicLands, LayerChecklistDensity, LayerSurveyTargets} {
		data, err := os.ReadFile(filepath.Join(out, "layers", name))
		require.NoError(t, err)

		var fc FeatureCollection
		require.NoError(t, json.Unmarshal(data, &fc))
		assert.Equal(t, "FeatureCollection", fc.Type)
	}
}

func TestLoadHotspots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotspots.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"hotspots": [
			{"loc_id": "L1", "name": "Eno River SP", "lat": 36.07, "lon": -78.98, "checklist_count": 900}
		]
	}`), 0o644))

	hotspots, err := LoadHotspots(path)
	require.NoError(t, err)
	require.Len(t, hotspots, 1)
	assert.Equal(t, "L1", hotspots[0].LocID)
	assert.Equal(t, 900, hotspots[0].ChecklistCount)
}

func TestWriteDossiers(t *testing.T) {
	out := t.TempDir()
	ctx := DossierContext{
		TargetRegionName:    "Durham County",
		AdjacentRegionNames: []string{"Orange County", "Wake County"},
	}

	n, err := WriteDossiers(testResult(), ctx, out)
	require.NoError(t, err)
	// Only woothr has a positive under-reported score.
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(out, "species_dossiers", "woothr.md"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# Wood Thrush (woothr)")
	assert.Contains(t, content, "| Under-reported Score | 0.5800 |")
	assert.Contains(t, content, "April, May, June, July")
	assert.Contains(t, content, "Orange County")
}

func TestRenderDossier_HabitatSection(t *testing.T) {
	score := &scoring.SpeciesScore{
		SpeciesCode:        "woothr",
		CommonName:         "wood thrush",
		UnderreportedScore: 0.58,
	}
	ctx := DossierContext{
		TargetRegionName: "Durham County",
		HabitatScores: map[string]habitat.Score{
			"woothr": {
				SpeciesCode:   "woothr",
				ExpectedScore: 0.4,
				RuleWeight:    0.8,
				MatchedLands: []habitat.Match{
					{LandName: "Duke Forest", LandType: "university_forest", MatchedHabitats: []string{"mature_forest"}, AreaAcres: 7000, Contribution: 3500},
				},
			},
		},
	}

	content := RenderDossier(score, ctx)
	// Common names are title-cased for display.
	assert.Contains(t, content, "# Wood Thrush (woothr)")
	assert.Contains(t, content, "## Habitat")
	assert.Contains(t, content, "Duke Forest")
}
