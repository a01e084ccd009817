package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTarget = "US-NC-063"
)

var testAdjacent = []string{"US-NC-037", "US-NC-077", "US-NC-135", "US-NC-145", "US-NC-183"}

// activityRow builds a plausible aggregate row with effort proportional to
// the checklist count.
func activityRow(region, species, name string, month, checklists, observations int) RegionActivity {
	return RegionActivity{
		RegionCode:           region,
		SpeciesCode:          species,
		CommonName:           name,
		Month:                month,
		ChecklistCount:       checklists,
		TotalDurationMinutes: float64(checklists) * 45,
		TotalDistanceKm:      float64(checklists) * 2.5,
		UniqueObserverCount:  max(1, checklists/3),
		ObservationCount:     observations,
	}
}

// testSnapshot builds a snapshot with a common species everywhere, an
// under-reported species common in adjacent regions but scarce in the
// target, and a scarce species that fails the plausibility filter.
func testSnapshot() *Snapshot {
	var activity []RegionActivity
	for _, region := range testAdjacent {
		for month := 1; month <= 12; month++ {
			activity = append(activity,
				activityRow(region, "norcar", "Northern Cardinal", month, 100, 95),
				activityRow(region, "woothr", "Wood Thrush", month, 100, 60),
			)
		}
	}
	for month := 1; month <= 12; month++ {
		activity = append(activity,
			activityRow(testTarget, "norcar", "Northern Cardinal", month, 80, 75),
			activityRow(testTarget, "woothr", "Wood Thrush", month, 80, 4),
		)
	}
	// Vagrant: a single record in one adjacent region.
	activity = append(activity, activityRow("US-NC-037", "lotduc", "Long-tailed Duck", 1, 2, 1))

	return &Snapshot{
		TargetRegion:    testTarget,
		AdjacentRegions: testAdjacent,
		Activity:        activity,
		HabitatScores:   map[string]float64{"woothr": 0.8},
		Seasonality:     map[string][]string{"woothr": {TagBreeding, TagMigration}},
	}
}

func TestEngineRun_RankedProperties(t *testing.T) {
	engine := New(DefaultConfig())
	result := engine.Run(testSnapshot())

	require.False(t, result.NoData)
	require.NotEmpty(t, result.Ranked)

	for _, s := range result.Ranked {
		assert.GreaterOrEqual(t, s.UnderreportedScore, 0.0, "species %s", s.SpeciesCode)
		assert.NotEmpty(t, s.BestMonths, "species %s", s.SpeciesCode)
		for _, m := range s.BestMonths {
			assert.GreaterOrEqual(t, m, 1)
			assert.LessOrEqual(t, m, 12)
		}
		if s.Excluded {
			assert.NotEmpty(t, s.ExclusionReason, "excluded species %s must carry a reason", s.SpeciesCode)
		} else {
			assert.Empty(t, s.ExclusionReason)
		}
	}
}

func TestEngineRun_UnderreportedSpeciesRanksFirst(t *testing.T) {
	engine := New(DefaultConfig())
	result := engine.Run(testSnapshot())

	eligible := result.Eligible()
	require.NotEmpty(t, eligible)
	assert.Equal(t, "woothr", eligible[0].SpeciesCode,
		"species common in adjacent regions but scarce in target should rank first")
	assert.Greater(t, eligible[0].UnderreportedScore, 0.0)
}

func TestEngineRun_VagrantExcludedButEmitted(t *testing.T) {
	engine := New(DefaultConfig())
	result := engine.Run(testSnapshot())

	var vagrant *SpeciesScore
	for i := range result.Ranked {
		if result.Ranked[i].SpeciesCode == "lotduc" {
			vagrant = &result.Ranked[i]
		}
	}
	require.NotNil(t, vagrant, "excluded species must still be emitted for auditability")
	assert.True(t, vagrant.Excluded)
	assert.Equal(t, ReasonInsufficientEvidence, vagrant.ExclusionReason)

	// Excluded species sit after every eligible species.
	lastEligible := -1
	firstExcluded := len(result.Ranked)
	for i := range result.Ranked {
		if result.Ranked[i].Excluded {
			if i < firstExcluded {
				firstExcluded = i
			}
		} else if i > lastEligible {
			lastEligible = i
		}
	}
	assert.Less(t, lastEligible, firstExcluded)
}

func TestEngineRun_TaxonomyExclusionWinsOverEvidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludedSpecies = []string{"norcar"}
	result := New(cfg).Run(testSnapshot())

	for _, s := range result.Ranked {
		if s.SpeciesCode == "norcar" {
			assert.True(t, s.Excluded)
			assert.Equal(t, ReasonTaxonomyExclusion, s.ExclusionReason)
			return
		}
	}
	t.Fatal("norcar missing from output")
}

func TestEngineRun_Determinism(t *testing.T) {
	engine := New(DefaultConfig())
	snap := testSnapshot()

	first := engine.Run(snap)
	second := engine.Run(snap)

	require.Equal(t, first.Ranked, second.Ranked, "identical snapshot and config must produce identical ranked output")
	require.Equal(t, first.Warnings, second.Warnings)
	assert.NotEqual(t, first.RunID, second.RunID, "run metadata is per-run")
}

func TestEngineRun_EmptySnapshot(t *testing.T) {
	engine := New(DefaultConfig())

	for name, snap := range map[string]*Snapshot{
		"nil":           nil,
		"no activity":   {TargetRegion: testTarget, AdjacentRegions: testAdjacent},
		"empty regions": {},
	} {
		t.Run(name, func(t *testing.T) {
			result := engine.Run(snap)
			assert.True(t, result.NoData)
			assert.NotNil(t, result.Ranked)
			assert.Empty(t, result.Ranked)
		})
	}
}

func TestEngineRun_PlausibilityBoundary(t *testing.T) {
	// Two species, each present in exactly 2 adjacent regions: one with 24
	// total adjacent observations, one with 25. The boundary is inclusive
	// on the observation threshold.
	activity := []RegionActivity{
		activityRow("US-NC-037", "sp24", "Boundary 24", 5, 10, 12),
		activityRow("US-NC-077", "sp24", "Boundary 24", 5, 10, 12),
		activityRow("US-NC-037", "sp25", "Boundary 25", 5, 10, 12),
		activityRow("US-NC-077", "sp25", "Boundary 25", 5, 10, 13),
		// Background species so the run has an eligible population.
		activityRow("US-NC-037", "norcar", "Northern Cardinal", 5, 50, 48),
		activityRow("US-NC-077", "norcar", "Northern Cardinal", 5, 50, 47),
		activityRow("US-NC-135", "norcar", "Northern Cardinal", 5, 50, 49),
		activityRow(testTarget, "norcar", "Northern Cardinal", 5, 40, 38),
	}
	snap := &Snapshot{TargetRegion: testTarget, AdjacentRegions: testAdjacent, Activity: activity}

	result := New(DefaultConfig()).Run(snap)

	byCode := make(map[string]SpeciesScore)
	for _, s := range result.Ranked {
		byCode[s.SpeciesCode] = s
	}

	require.Contains(t, byCode, "sp24")
	require.Contains(t, byCode, "sp25")
	assert.True(t, byCode["sp24"].Excluded, "2 regions and 24 observations is insufficient evidence")
	assert.Equal(t, ReasonInsufficientEvidence, byCode["sp24"].ExclusionReason)
	assert.False(t, byCode["sp25"].Excluded, "25 observations passes even with only 2 regions")
}

func TestEngineRun_MalformedSeasonalityTagWarns(t *testing.T) {
	snap := testSnapshot()
	snap.Seasonality["norcar"] = []string{"monsoon"}

	result := New(DefaultConfig()).Run(snap)

	var norcar *SpeciesScore
	for i := range result.Ranked {
		if result.Ranked[i].SpeciesCode == "norcar" {
			norcar = &result.Ranked[i]
		}
	}
	require.NotNil(t, norcar)
	assert.Equal(t, allMonths, norcar.BestMonths, "no recognized tag remains, fall back to year-round")

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "monsoon") && strings.Contains(w, "norcar") {
			found = true
		}
	}
	assert.True(t, found, "malformed tag must be reported as a non-fatal validation issue, warnings: %v", result.Warnings)
}
