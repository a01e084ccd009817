package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeScores(t *testing.T) {
	tests := []struct {
		name           string
		observer       float64
		habitat        float64
		observed       float64
		wantExpected   float64
		wantUnderrated float64
	}{
		{
			// Northern Saw-whet Owl reference scenario.
			name:           "nswowl default weights",
			observer:       0.8,
			habitat:        0.4,
			observed:       0.1,
			wantExpected:   0.68,
			wantUnderrated: 0.58,
		},
		{
			name:           "over-reported floors at zero",
			observer:       0.1,
			habitat:        0.0,
			observed:       0.9,
			wantExpected:   0.07,
			wantUnderrated: 0.0,
		},
		{
			name:           "all zero",
			observer:       0,
			habitat:        0,
			observed:       0,
			wantExpected:   0,
			wantUnderrated: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SpeciesScore{
				ObserverExpectedScore: tt.observer,
				HabitatExpectedScore:  tt.habitat,
				ObservedScore:         tt.observed,
			}
			composeScores(&s, DefaultObserverWeight, DefaultHabitatWeight)
			assert.InDelta(t, tt.wantExpected, s.ExpectedScore, 1e-9)
			assert.InDelta(t, tt.wantUnderrated, s.UnderreportedScore, 1e-9)
		})
	}
}

func TestComposeScores_Monotonicity(t *testing.T) {
	// Increasing observer expectation with observed held fixed must never
	// decrease the under-reported score.
	prev := -1.0
	for observer := 0.0; observer <= 1.0; observer += 0.05 {
		s := SpeciesScore{ObserverExpectedScore: observer, HabitatExpectedScore: 0.4, ObservedScore: 0.3}
		composeScores(&s, DefaultObserverWeight, DefaultHabitatWeight)
		assert.GreaterOrEqual(t, s.UnderreportedScore, prev, "observer=%f", observer)
		prev = s.UnderreportedScore
	}
}

func TestConfigNormalized_WeightRescaling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ObserverWeight = 0.9
	cfg.HabitatWeight = 0.3

	var warnings []string
	norm := cfg.normalized(&warnings)

	assert.InDelta(t, 0.75, norm.ObserverWeight, 1e-9)
	assert.InDelta(t, 0.25, norm.HabitatWeight, 1e-9)
	require.Len(t, warnings, 1, "rescaling must record a warning, not fail")
	assert.Contains(t, warnings[0], "rescaled")
}

func TestConfigNormalized_UnusableWeightsFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ObserverWeight = 0
	cfg.HabitatWeight = 0

	var warnings []string
	norm := cfg.normalized(&warnings)

	assert.InDelta(t, DefaultObserverWeight, norm.ObserverWeight, 1e-9)
	assert.InDelta(t, DefaultHabitatWeight, norm.HabitatWeight, 1e-9)
	require.Len(t, warnings, 1)
}

func TestSortRanked_Idempotent(t *testing.T) {
	scores := []SpeciesScore{
		{SpeciesCode: "ccc", UnderreportedScore: 0.5, ExpectedScore: 0.6},
		{SpeciesCode: "aaa", UnderreportedScore: 0.5, ExpectedScore: 0.6},
		{SpeciesCode: "bbb", UnderreportedScore: 0.5, ExpectedScore: 0.9},
		{SpeciesCode: "ddd", UnderreportedScore: 0.9, ExpectedScore: 0.9},
		{SpeciesCode: "zzz", Excluded: true, ExclusionReason: ReasonTaxonomyExclusion},
		{SpeciesCode: "mmm", Excluded: true, ExclusionReason: ReasonInsufficientEvidence},
	}

	sortRanked(scores)
	once := append([]SpeciesScore(nil), scores...)
	sortRanked(scores)

	require.Equal(t, once, scores, "re-sorting a sorted ranking must be a no-op")

	// ddd leads on under-reported score, bbb wins its tie on expected
	// score, aaa/ccc resolve alphabetically, excluded trail in code order.
	gotOrder := make([]string, len(scores))
	for i, s := range scores {
		gotOrder[i] = s.SpeciesCode
	}
	assert.Equal(t, []string{"ddd", "bbb", "aaa", "ccc", "mmm", "zzz"}, gotOrder)
}

func TestRound4(t *testing.T) {
	assert.InDelta(t, 0.1235, round4(0.12346), 1e-12)
	assert.InDelta(t, 0.1234, round4(0.12344), 1e-12)
	assert.InDelta(t, 1.0, round4(0.99996), 1e-12)
	assert.InDelta(t, 0.0, round4(0.0), 1e-12)
}
