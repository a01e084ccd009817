package conf

import (
	"github.com/birdtargets/bird-targets/internal/scoring"
)

// ScoringConfig maps the scoring section of the settings tree onto the
// engine's Config value.
func (s *Settings) ScoringConfig() scoring.Config {
	return scoring.Config{
		ObserverWeight:            s.Scoring.ObserverWeight,
		HabitatWeight:             s.Scoring.HabitatWeight,
		MinAdjacentRegions:        s.Scoring.MinAdjacentRegions,
		MinAdjacentObservations:   s.Scoring.MinAdjacentObservations,
		ConfidenceSaturationCount: s.Scoring.ConfidenceSaturation,
		MinEffortMass:             s.Scoring.MinEffortMass,
		ChecklistSignalWeight:     s.Scoring.Effort.ChecklistWeight,
		DurationSignalWeight:      s.Scoring.Effort.DurationWeight,
		DistanceSignalWeight:      s.Scoring.Effort.DistanceWeight,
		ExcludedSpecies:           append([]string(nil), s.Scoring.ExcludedSpecies...),
	}
}
