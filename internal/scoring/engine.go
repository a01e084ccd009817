package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine runs the under-reported scoring pipeline over one immutable
// snapshot. An Engine holds no mutable state between runs and is safe to
// share across goroutines; each Run works on its own copies.
type Engine struct {
	cfg Config
}

// New creates an engine with the given configuration. The configuration is
// validated lazily at run time so that misconfiguration surfaces as run
// warnings instead of construction errors.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Run executes one full scoring pass: effort normalization, plausibility
// filtering, expectation estimation, score composition and seasonality
// resolution. The ranked output is deterministic for identical snapshots
// and configuration; only the run metadata (RunID, GeneratedAt) differs
// between runs.
func (e *Engine) Run(snap *Snapshot) Result {
	result := Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	cfg := e.cfg.normalized(&result.Warnings)

	if snap == nil || len(snap.Activity) == 0 {
		result.NoData = true
		result.Ranked = []SpeciesScore{}
		return result
	}

	masses := computeEffortMass(snap.Activity, &cfg)
	rates := computeSpeciesRates(snap.Activity, masses, &cfg)
	targetRates := rates[snap.TargetRegion]

	presence, adjacentObs := adjacentEvidence(snap.Activity, snap.AdjacentRegions)
	denylist := cfg.excludedSet()

	// Species universe: everything seen in any activity row. Common names
	// come from the first row that carries one.
	commonNames := make(map[string]string)
	for i := range snap.Activity {
		a := &snap.Activity[i]
		if _, ok := commonNames[a.SpeciesCode]; !ok || commonNames[a.SpeciesCode] == "" {
			commonNames[a.SpeciesCode] = a.CommonName
		}
	}

	codes := sortedKeys(commonNames)
	reasons := make(map[string]string, len(codes))
	eligible := make([]string, 0, len(codes))
	for _, code := range codes {
		reason := exclusionReason(code, denylist, presence[code], adjacentObs[code], &cfg)
		reasons[code] = reason
		if reason == "" {
			eligible = append(eligible, code)
		}
	}

	// Raw observer expectations for every species; normalization bounds
	// come from the eligible population only.
	rawExpectation := make(map[string]float64, len(codes))
	for _, code := range codes {
		rawExpectation[code] = observerExpectation(code, snap.AdjacentRegions, rates)
	}
	bounds := observerMinMax(rawExpectation, eligible)
	median := medianTargetRate(targetRates, eligible)

	scores := make([]SpeciesScore, 0, len(codes))
	for _, code := range codes {
		s := SpeciesScore{
			SpeciesCode:           code,
			CommonName:            commonNames[code],
			ObserverExpectedScore: round4(bounds.apply(rawExpectation[code])),
			HabitatExpectedScore:  round4(habitatScore(code, snap.HabitatScores)),
			ObservedScore:         round4(observedScore(code, targetRates, median)),
		}
		composeScores(&s, cfg.ObserverWeight, cfg.HabitatWeight)

		months, unknown := BestMonths(snap.Seasonality[code])
		s.BestMonths = months
		for _, tag := range unknown {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("unrecognized seasonality tag %q for species %s, ignored", tag, code))
		}

		if reason := reasons[code]; reason != "" {
			s.Excluded = true
			s.ExclusionReason = reason
		}
		scores = append(scores, s)
	}

	sortRanked(scores)
	result.Ranked = scores
	return result
}
