package scoring

// exclusionReason decides whether a species is eligible for ranking at all.
// Returns the empty string for eligible species, otherwise the single
// exclusion reason to attach. The taxonomy denylist runs first; a species
// carries only the first applicable reason.
func exclusionReason(speciesCode string, denylist map[string]struct{}, adjacentPresence, adjacentObservations int, cfg *Config) string {
	if _, denied := denylist[speciesCode]; denied {
		return ReasonTaxonomyExclusion
	}
	if adjacentPresence >= cfg.MinAdjacentRegions {
		return ""
	}
	if adjacentObservations >= cfg.MinAdjacentObservations {
		return ""
	}
	return ReasonInsufficientEvidence
}

// adjacentEvidence counts, for one species, how many adjacent regions have
// any activity for it and the total observation count across all adjacent
// regions. Evidence counting uses raw activity rows, not effort-filtered
// rates: a one-off record is still evidence the species occurs regionally.
func adjacentEvidence(activity []RegionActivity, adjacentRegions []string) (presence, observations map[string]int) {
	adjacent := make(map[string]struct{}, len(adjacentRegions))
	for _, r := range adjacentRegions {
		adjacent[r] = struct{}{}
	}

	seen := make(map[string]map[string]struct{})
	observations = make(map[string]int)
	for i := range activity {
		a := &activity[i]
		if _, ok := adjacent[a.RegionCode]; !ok {
			continue
		}
		if a.ObservationCount <= 0 {
			continue
		}
		regions := seen[a.SpeciesCode]
		if regions == nil {
			regions = make(map[string]struct{})
			seen[a.SpeciesCode] = regions
		}
		regions[a.RegionCode] = struct{}{}
		observations[a.SpeciesCode] += a.ObservationCount
	}

	presence = make(map[string]int, len(seen))
	for code, regions := range seen {
		presence[code] = len(regions)
	}
	return presence, observations
}
