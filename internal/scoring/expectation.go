package scoring

import "sort"

// ExpectationSignal is an extension point for secondary expectation signals
// (time-of-day gap, hotspot clustering index). None ship yet; registered
// signals would contribute to the observer expectation once their weights
// are defined.
type ExpectationSignal func(speciesCode string, snap *Snapshot) (score float64, ok bool)

// observerExpectation computes the raw confidence-weighted mean of a
// species' rates across the adjacent regions. Regions without a rate for
// the species contribute nothing; a species absent from every adjacent
// region has expectation 0.
func observerExpectation(speciesCode string, adjacentRegions []string, rates map[string]map[string]SpeciesRate) float64 {
	var weightedSum, weightSum float64
	for _, region := range adjacentRegions {
		rate, ok := rates[region][speciesCode]
		if !ok || rate.ConfidenceWeight <= 0 {
			continue
		}
		weightedSum += rate.Rate * rate.ConfidenceWeight
		weightSum += rate.ConfidenceWeight
	}
	if weightSum == 0 {
		return 0
	}
	return weightedSum / weightSum
}

// minMaxParams holds the run-relative normalization bounds derived from the
// eligible species population.
type minMaxParams struct {
	min, max float64
}

// observerMinMax derives the min-max bounds from the raw expectations of the
// eligible species only, so excluded species never stretch the scale.
func observerMinMax(raw map[string]float64, eligible []string) minMaxParams {
	p := minMaxParams{}
	first := true
	for _, code := range eligible {
		v := raw[code]
		if first {
			p.min, p.max = v, v
			first = false
			continue
		}
		if v < p.min {
			p.min = v
		}
		if v > p.max {
			p.max = v
		}
	}
	return p
}

// apply scales a raw value into [0,1] using the population bounds. A flat
// population (max == min) maps everything to 0 rather than dividing by zero.
func (p minMaxParams) apply(v float64) float64 {
	span := p.max - p.min
	if span <= 0 {
		return 0
	}
	scaled := (v - p.min) / span
	return clamp01(scaled)
}

// observedScore computes the target-region observed score for a species.
// Low-confidence rates are shrunk toward the population median so that one
// low-effort month cannot make a species look falsely under-reported. A
// species with no target-region rate at all is observed at 0.
func observedScore(speciesCode string, targetRates map[string]SpeciesRate, median float64) float64 {
	rate, ok := targetRates[speciesCode]
	if !ok {
		return 0
	}
	w := rate.ConfidenceWeight
	return w*rate.Rate + (1-w)*median
}

// medianTargetRate returns the median of the eligible species' target-region
// rates, the shrinkage anchor for low-confidence observations.
func medianTargetRate(targetRates map[string]SpeciesRate, eligible []string) float64 {
	values := make([]float64, 0, len(eligible))
	for _, code := range eligible {
		if rate, ok := targetRates[code]; ok {
			values = append(values, rate.Rate)
		}
	}
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

// habitatScore returns the externally supplied habitat expectation for a
// species, defaulting to 0 when absent and clamping out-of-range input.
func habitatScore(speciesCode string, habitat map[string]float64) float64 {
	v, ok := habitat[speciesCode]
	if !ok {
		return 0
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
