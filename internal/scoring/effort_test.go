package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEffortMass_ZeroEffortCellsExcluded(t *testing.T) {
	cfg := DefaultConfig().normalized(new([]string))
	activity := []RegionActivity{
		activityRow("US-NC-037", "norcar", "Northern Cardinal", 1, 100, 90),
		// A cell with no effort at all: must be missing data, not mass 0.
		{RegionCode: "US-NC-037", SpeciesCode: "norcar", Month: 2},
	}

	masses := computeEffortMass(activity, &cfg)

	require.Contains(t, masses, cellKey{region: "US-NC-037", month: 1})
	assert.NotContains(t, masses, cellKey{region: "US-NC-037", month: 2})
}

func TestComputeEffortMass_SignalNormalization(t *testing.T) {
	cfg := DefaultConfig().normalized(new([]string))
	// One cell with extreme duration but few checklists, one balanced cell.
	activity := []RegionActivity{
		{RegionCode: "A", SpeciesCode: "x", Month: 1, ChecklistCount: 2, TotalDurationMinutes: 100000, TotalDistanceKm: 1, ObservationCount: 1},
		{RegionCode: "B", SpeciesCode: "x", Month: 1, ChecklistCount: 200, TotalDurationMinutes: 9000, TotalDistanceKm: 400, ObservationCount: 150},
	}

	masses := computeEffortMass(activity, &cfg)

	a := masses[cellKey{region: "A", month: 1}]
	b := masses[cellKey{region: "B", month: 1}]
	require.NotZero(t, a.Mass)
	require.NotZero(t, b.Mass)
	assert.Greater(t, b.Mass, a.Mass,
		"a very long checklist alone must not dominate a well-surveyed cell")
	assert.LessOrEqual(t, a.Mass, 1.0)
	assert.LessOrEqual(t, b.Mass, 1.0)
}

func TestComputeEffortMass_IndependentOfSpeciesRichness(t *testing.T) {
	cfg := DefaultConfig().normalized(new([]string))
	// Two cells with identical observer effort. Region A's checklists found
	// a single species; region B's found five, so the same cell effort
	// repeats on five rows.
	activity := []RegionActivity{
		{RegionCode: "A", SpeciesCode: "sp1", Month: 1, ChecklistCount: 10,
			TotalDurationMinutes: 600, TotalDistanceKm: 20, UniqueObserverCount: 4, ObservationCount: 8},
	}
	for _, code := range []string{"sp1", "sp2", "sp3", "sp4", "sp5"} {
		activity = append(activity, RegionActivity{
			RegionCode: "B", SpeciesCode: code, Month: 1, ChecklistCount: 10,
			TotalDurationMinutes: 600, TotalDistanceKm: 20, UniqueObserverCount: 4, ObservationCount: 8,
		})
	}

	masses := computeEffortMass(activity, &cfg)

	a := masses[cellKey{region: "A", month: 1}]
	b := masses[cellKey{region: "B", month: 1}]
	require.NotZero(t, a.Mass)
	assert.InDelta(t, a.Mass, b.Mass, 1e-12,
		"identical effort must yield identical mass regardless of species count")
	assert.Equal(t, a.ChecklistCount, b.ChecklistCount)
	assert.Equal(t, a.ObserverCount, b.ObserverCount)
	assert.InDelta(t, a.EffortHours, b.EffortHours, 1e-12)

	rates := computeSpeciesRates(activity, masses, &cfg)
	assert.InDelta(t, rates["A"]["sp1"].Rate, rates["B"]["sp1"].Rate, 1e-12,
		"equal observations over equal effort must rate equally in both regions")
}

func TestComputeEffortMass_InvalidMonthIgnored(t *testing.T) {
	cfg := DefaultConfig().normalized(new([]string))
	activity := []RegionActivity{
		{RegionCode: "A", SpeciesCode: "x", Month: 0, ChecklistCount: 10, ObservationCount: 5},
		{RegionCode: "A", SpeciesCode: "x", Month: 13, ChecklistCount: 10, ObservationCount: 5},
	}

	masses := computeEffortMass(activity, &cfg)
	assert.Empty(t, masses)
}

func TestComputeSpeciesRates_ScaledIntoUnitInterval(t *testing.T) {
	cfg := DefaultConfig().normalized(new([]string))
	activity := []RegionActivity{
		activityRow("A", "sp1", "One", 1, 100, 95),
		activityRow("A", "sp2", "Two", 1, 100, 10),
		activityRow("B", "sp1", "One", 1, 20, 18),
	}

	masses := computeEffortMass(activity, &cfg)
	rates := computeSpeciesRates(activity, masses, &cfg)

	for region, bySpecies := range rates {
		for code, rate := range bySpecies {
			assert.GreaterOrEqual(t, rate.Rate, 0.0, "%s/%s", region, code)
			assert.LessOrEqual(t, rate.Rate, 1.0, "%s/%s", region, code)
		}
	}
	assert.Greater(t, rates["A"]["sp1"].Rate, rates["A"]["sp2"].Rate)
}

func TestConfidenceWeight(t *testing.T) {
	tests := []struct {
		checklists int
		want       float64
	}{
		{0, 0},
		{-3, 0},
		{1, 0.04},
		{12, 0.48},
		{25, 1.0},
		{500, 1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, confidenceWeight(tt.checklists, DefaultConfidenceSaturation), 1e-9,
			"checklists=%d", tt.checklists)
	}
}

func TestMedianTargetRate(t *testing.T) {
	rates := map[string]SpeciesRate{
		"a": {Rate: 0.1},
		"b": {Rate: 0.5},
		"c": {Rate: 0.9},
		"d": {Rate: 0.7},
	}

	assert.InDelta(t, 0.5, medianTargetRate(rates, []string{"a", "b", "c"}), 1e-9)
	assert.InDelta(t, 0.6, medianTargetRate(rates, []string{"a", "b", "c", "d"}), 1e-9)
	assert.Zero(t, medianTargetRate(rates, nil))
	assert.Zero(t, medianTargetRate(rates, []string{"missing"}))
}

func TestObservedScore_ShrinksLowConfidenceTowardMedian(t *testing.T) {
	targetRates := map[string]SpeciesRate{
		"lowconf":  {Rate: 0.9, ConfidenceWeight: 0.1},
		"highconf": {Rate: 0.9, ConfidenceWeight: 1.0},
	}
	median := 0.3

	low := observedScore("lowconf", targetRates, median)
	high := observedScore("highconf", targetRates, median)

	assert.InDelta(t, 0.36, low, 1e-9, "low confidence pulls toward the median")
	assert.InDelta(t, 0.9, high, 1e-9, "full confidence is taken at face value")
	assert.Zero(t, observedScore("absent", targetRates, median))
}

func TestHabitatScore_DefaultsAndClamps(t *testing.T) {
	habitat := map[string]float64{"a": 0.4, "hot": 1.7, "cold": -0.2}

	assert.InDelta(t, 0.4, habitatScore("a", habitat), 1e-9)
	assert.InDelta(t, 1.0, habitatScore("hot", habitat), 1e-9)
	assert.Zero(t, habitatScore("cold", habitat))
	assert.Zero(t, habitatScore("absent", habitat))
	assert.Zero(t, habitatScore("a", nil))
}
