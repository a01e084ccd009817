package scoring

import (
	"math"
	"sort"
)

// cellKey identifies one (region, month) activity cell.
type cellKey struct {
	region string
	month  int
}

// computeEffortMass aggregates activity rows into per-cell effort masses.
// The effort signals on a row describe the row's whole (region, month) cell
// and repeat across that cell's species rows, so each signal is read once
// per cell (the max across its rows) rather than summed across species: a
// cell's mass depends only on observer effort, never on how many species
// that effort turned up. The three signals are each normalized to their own
// population max before the weighted sum, so a single long checklist cannot
// dominate the composite by raw magnitude. Returned map contains only
// eligible cells (mass >= MinEffortMass); ineligible cells are missing
// data, never zero.
func computeEffortMass(activity []RegionActivity, cfg *Config) map[cellKey]EffortMass {
	type rawCell struct {
		checklists int
		duration   float64
		distance   float64
		observers  int
	}

	cells := make(map[cellKey]*rawCell)
	for i := range activity {
		a := &activity[i]
		if a.Month < 1 || a.Month > 12 {
			continue
		}
		key := cellKey{region: a.RegionCode, month: a.Month}
		cell := cells[key]
		if cell == nil {
			cell = &rawCell{}
			cells[key] = cell
		}
		if a.ChecklistCount > cell.checklists {
			cell.checklists = a.ChecklistCount
		}
		cell.duration = math.Max(cell.duration, a.TotalDurationMinutes)
		cell.distance = math.Max(cell.distance, a.TotalDistanceKm)
		if a.UniqueObserverCount > cell.observers {
			cell.observers = a.UniqueObserverCount
		}
	}

	// Population maxima for per-signal normalization.
	var maxChecklists, maxDuration, maxDistance float64
	for _, cell := range cells {
		maxChecklists = math.Max(maxChecklists, float64(cell.checklists))
		maxDuration = math.Max(maxDuration, cell.duration)
		maxDistance = math.Max(maxDistance, cell.distance)
	}

	masses := make(map[cellKey]EffortMass, len(cells))
	for key, cell := range cells {
		mass := cfg.ChecklistSignalWeight*normTo(float64(cell.checklists), maxChecklists) +
			cfg.DurationSignalWeight*normTo(cell.duration, maxDuration) +
			cfg.DistanceSignalWeight*normTo(cell.distance, maxDistance)
		if mass < cfg.MinEffortMass {
			continue
		}
		masses[key] = EffortMass{
			RegionCode:     key.region,
			Month:          key.month,
			ChecklistCount: cell.checklists,
			EffortHours:    cell.duration / 60.0,
			ObserverCount:  cell.observers,
			Mass:           mass,
		}
	}
	return masses
}

// normTo scales v by the population max, returning 0 when the population
// carries no signal at all.
func normTo(v, populationMax float64) float64 {
	if populationMax <= 0 {
		return 0
	}
	return v / populationMax
}

// computeSpeciesRates produces effort-adjusted presence rates per
// (species, region), aggregated across eligible months. Raw rates are
// observation counts divided by the region's total eligible effort mass,
// then scaled into [0,1] by the run-wide maximum raw rate. The rescale is
// uniform across the whole run, so relative rates between regions are
// preserved and a heavily surveyed region is never penalized for its large
// denominator; the mass side is already bounded per cell by the per-signal
// population-max normalization above. Regions with no eligible cells
// produce no rates at all.
func computeSpeciesRates(activity []RegionActivity, masses map[cellKey]EffortMass, cfg *Config) map[string]map[string]SpeciesRate {
	// Total eligible mass per region.
	regionMass := make(map[string]float64)
	for key, m := range masses {
		regionMass[key.region] += m.Mass
	}

	type speciesAgg struct {
		observations int
		checklists   int
	}
	agg := make(map[string]map[string]*speciesAgg)
	for i := range activity {
		a := &activity[i]
		if _, eligible := masses[cellKey{region: a.RegionCode, month: a.Month}]; !eligible {
			continue
		}
		bySpecies := agg[a.RegionCode]
		if bySpecies == nil {
			bySpecies = make(map[string]*speciesAgg)
			agg[a.RegionCode] = bySpecies
		}
		sa := bySpecies[a.SpeciesCode]
		if sa == nil {
			sa = &speciesAgg{}
			bySpecies[a.SpeciesCode] = sa
		}
		sa.observations += a.ObservationCount
		sa.checklists += a.ChecklistCount
	}

	// First pass: raw rates. Iterate in sorted order so the max search is
	// deterministic even under floating-point ties.
	var maxRawRate float64
	rawRates := make(map[string]map[string]float64)
	for _, region := range sortedKeys(agg) {
		mass := regionMass[region]
		if mass <= 0 {
			continue
		}
		bySpecies := make(map[string]float64)
		rawRates[region] = bySpecies
		for _, code := range sortedKeys(agg[region]) {
			raw := float64(agg[region][code].observations) / mass
			bySpecies[code] = raw
			if raw > maxRawRate {
				maxRawRate = raw
			}
		}
	}

	rates := make(map[string]map[string]SpeciesRate, len(rawRates))
	for region, bySpecies := range rawRates {
		out := make(map[string]SpeciesRate, len(bySpecies))
		rates[region] = out
		for code, raw := range bySpecies {
			sa := agg[region][code]
			out[code] = SpeciesRate{
				SpeciesCode:      code,
				RegionCode:       region,
				Rate:             normTo(raw, maxRawRate),
				ConfidenceWeight: confidenceWeight(sa.checklists, cfg.ConfidenceSaturationCount),
				ChecklistCount:   sa.checklists,
				ObservationCount: sa.observations,
			}
		}
	}
	return rates
}

// confidenceWeight maps an absolute checklist count to a confidence in
// (0,1], saturating at the configured count. A single checklist never
// produces a fully trusted rate.
func confidenceWeight(checklists, saturation int) float64 {
	if checklists <= 0 {
		return 0
	}
	if checklists >= saturation {
		return 1.0
	}
	return float64(checklists) / float64(saturation)
}

// sortedKeys returns the map keys in sorted order, for deterministic
// iteration over float accumulations.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
