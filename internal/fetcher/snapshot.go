package fetcher

import (
	"github.com/birdtargets/bird-targets/internal/datastore"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

// BuildSnapshot assembles a scoring snapshot from the activity cache.
// Habitat scores and seasonality tags come from their own models and may be
// nil when those inputs are not configured.
func BuildSnapshot(store datastore.Interface, habitatScores map[string]float64, seasonality map[string][]string) (*scoring.Snapshot, error) {
	target, err := store.GetTargetRegion()
	if err != nil {
		return nil, err
	}

	adjacent, err := store.GetAdjacentRegions()
	if err != nil {
		return nil, err
	}
	adjacentCodes := make([]string, 0, len(adjacent))
	regionCodes := []string{target.Code}
	for _, r := range adjacent {
		adjacentCodes = append(adjacentCodes, r.Code)
		regionCodes = append(regionCodes, r.Code)
	}

	rows, err := store.GetActivity(regionCodes)
	if err != nil {
		return nil, err
	}

	activity := make([]scoring.RegionActivity, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		activity = append(activity, scoring.RegionActivity{
			RegionCode:           r.RegionCode,
			SpeciesCode:          r.SpeciesCode,
			CommonName:           r.CommonName,
			Month:                r.Month,
			ChecklistCount:       r.ChecklistCount,
			TotalDurationMinutes: r.TotalDurationMinutes,
			TotalDistanceKm:      r.TotalDistanceKm,
			UniqueObserverCount:  r.UniqueObserverCount,
			ObservationCount:     r.ObservationCount,
		})
	}

	return &scoring.Snapshot{
		TargetRegion:    target.Code,
		AdjacentRegions: adjacentCodes,
		Activity:        activity,
		HabitatScores:   habitatScores,
		Seasonality:     seasonality,
	}, nil
}
