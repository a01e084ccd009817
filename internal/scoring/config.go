package scoring

import (
	"fmt"
	"sort"
)

// Default configuration values. The effort signal weights are deliberately
// configuration rather than constants; the defaults weight checklist volume
// heaviest with duration and distance as secondary signals.
const (
	DefaultObserverWeight          = 0.7
	DefaultHabitatWeight           = 0.3
	DefaultMinAdjacentRegions      = 3
	DefaultMinAdjacentObservations = 25
	DefaultConfidenceSaturation    = 25
	DefaultMinEffortMass           = 0.01
	DefaultChecklistSignalWeight   = 0.5
	DefaultDurationSignalWeight    = 0.3
	DefaultDistanceSignalWeight    = 0.2
)

// Config is the immutable configuration value passed into a scoring run.
// It is copied on entry; callers can reuse one Config across parallel runs.
type Config struct {
	// Composition weights for expected score. Must sum to 1.0; a run
	// renormalizes non-conforming weights and records a warning instead
	// of failing.
	ObserverWeight float64
	HabitatWeight  float64

	// Plausibility thresholds.
	MinAdjacentRegions      int
	MinAdjacentObservations int

	// Checklist count at which a region's rate reaches full confidence.
	ConfidenceSaturationCount int

	// Cells with composite effort mass below this are treated as missing
	// data and excluded from the denominator pool.
	MinEffortMass float64

	// Relative weighting of the three effort signals inside the composite
	// effort mass. Each signal is normalized to its own population max
	// before weighting.
	ChecklistSignalWeight float64
	DurationSignalWeight  float64
	DistanceSignalWeight  float64

	// Taxonomy denylist: species codes excluded outright (vagrants,
	// pelagic-only, flyover-only, exotic/escape taxa).
	ExcludedSpecies []string
}

// DefaultConfig returns a Config with documented defaults.
func DefaultConfig() Config {
	return Config{
		ObserverWeight:            DefaultObserverWeight,
		HabitatWeight:             DefaultHabitatWeight,
		MinAdjacentRegions:        DefaultMinAdjacentRegions,
		MinAdjacentObservations:   DefaultMinAdjacentObservations,
		ConfidenceSaturationCount: DefaultConfidenceSaturation,
		MinEffortMass:             DefaultMinEffortMass,
		ChecklistSignalWeight:     DefaultChecklistSignalWeight,
		DurationSignalWeight:      DefaultDurationSignalWeight,
		DistanceSignalWeight:      DefaultDistanceSignalWeight,
	}
}

// normalized returns a copy of the config with invalid values replaced by
// defaults and weights rescaled to sum to 1.0. Adjustments are appended to
// warnings; misconfiguration never fails a run.
func (c Config) normalized(warnings *[]string) Config {
	out := c

	sum := out.ObserverWeight + out.HabitatWeight
	switch {
	case sum <= 0:
		*warnings = append(*warnings, fmt.Sprintf(
			"composition weights (%.2f, %.2f) are not usable, falling back to defaults (%.2f, %.2f)",
			out.ObserverWeight, out.HabitatWeight, DefaultObserverWeight, DefaultHabitatWeight))
		out.ObserverWeight = DefaultObserverWeight
		out.HabitatWeight = DefaultHabitatWeight
	case sum != 1.0:
		rescaledObserver := out.ObserverWeight / sum
		rescaledHabitat := out.HabitatWeight / sum
		*warnings = append(*warnings, fmt.Sprintf(
			"composition weights (%.2f, %.2f) do not sum to 1.0, rescaled to (%.2f, %.2f)",
			out.ObserverWeight, out.HabitatWeight, rescaledObserver, rescaledHabitat))
		out.ObserverWeight = rescaledObserver
		out.HabitatWeight = rescaledHabitat
	}

	signalSum := out.ChecklistSignalWeight + out.DurationSignalWeight + out.DistanceSignalWeight
	if signalSum <= 0 {
		out.ChecklistSignalWeight = DefaultChecklistSignalWeight
		out.DurationSignalWeight = DefaultDurationSignalWeight
		out.DistanceSignalWeight = DefaultDistanceSignalWeight
	} else if signalSum != 1.0 {
		out.ChecklistSignalWeight /= signalSum
		out.DurationSignalWeight /= signalSum
		out.DistanceSignalWeight /= signalSum
	}

	if out.MinAdjacentRegions <= 0 {
		out.MinAdjacentRegions = DefaultMinAdjacentRegions
	}
	if out.MinAdjacentObservations <= 0 {
		out.MinAdjacentObservations = DefaultMinAdjacentObservations
	}
	if out.ConfidenceSaturationCount <= 0 {
		out.ConfidenceSaturationCount = DefaultConfidenceSaturation
	}
	if out.MinEffortMass < 0 {
		out.MinEffortMass = DefaultMinEffortMass
	}

	// Copy and sort the denylist so lookup order never depends on config
	// file ordering.
	out.ExcludedSpecies = append([]string(nil), c.ExcludedSpecies...)
	sort.Strings(out.ExcludedSpecies)

	return out
}

// excludedSet returns the denylist as a set for O(1) lookups.
func (c *Config) excludedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExcludedSpecies))
	for _, code := range c.ExcludedSpecies {
		set[code] = struct{}{}
	}
	return set
}
