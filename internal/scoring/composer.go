package scoring

import (
	"math"
	"sort"
)

// composeScores fills in the composite expected and under-reported scores
// for a single species. The under-reported score is floored at zero: a
// species reported more often than expected is simply not under-reported.
func composeScores(s *SpeciesScore, observerWeight, habitatWeight float64) {
	s.ExpectedScore = round4(observerWeight*s.ObserverExpectedScore + habitatWeight*s.HabitatExpectedScore)
	s.UnderreportedScore = round4(math.Max(0, s.ExpectedScore-s.ObservedScore))
}

// sortRanked orders scores into the final ranking: eligible species first,
// descending by under-reported score, ties broken by descending expected
// score and then ascending species code for full determinism. Excluded
// species follow in stable species code order; their scores are computed
// but never influence rank positions of eligible species.
func sortRanked(scores []SpeciesScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := &scores[i], &scores[j]
		if a.Excluded != b.Excluded {
			return !a.Excluded
		}
		if a.Excluded {
			return a.SpeciesCode < b.SpeciesCode
		}
		if a.UnderreportedScore != b.UnderreportedScore {
			return a.UnderreportedScore > b.UnderreportedScore
		}
		if a.ExpectedScore != b.ExpectedScore {
			return a.ExpectedScore > b.ExpectedScore
		}
		return a.SpeciesCode < b.SpeciesCode
	})
}

// round4 applies the fixed rounding policy: four decimal places, rounded
// half away from zero, applied before any comparison or output so that
// identical runs produce byte-identical artifacts.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
