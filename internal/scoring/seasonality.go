package scoring

import "sort"

// Recognized seasonality tags. Tags map to coarse calendar seasons or
// life-cycle stages; a species' best months are the union across its tags.
const (
	TagWinter    = "winter"
	TagSpring    = "spring"
	TagSummer    = "summer"
	TagFall      = "fall"
	TagBreeding  = "breeding"
	TagMigration = "migration"
	TagYearRound = "year-round"
)

// seasonMonths is the fixed tag-to-months mapping.
var seasonMonths = map[string][]int{
	TagWinter:    {12, 1, 2},
	TagSpring:    {3, 4, 5},
	TagSummer:    {6, 7, 8},
	TagFall:      {9, 10, 11},
	TagBreeding:  {4, 5, 6, 7},
	TagMigration: {3, 4, 5, 9, 10, 11},
	TagYearRound: {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
}

var allMonths = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

// BestMonths resolves a species' seasonality tags to a sorted set of months.
// Unrecognized tags are ignored for mapping and returned so callers can
// report them as non-fatal validation issues; if no recognized tag remains
// the species falls back to year-round. Absence of data must never hide a
// species from a month-filtered view.
func BestMonths(tags []string) (months []int, unknown []string) {
	set := make(map[int]struct{})
	for _, tag := range tags {
		mapped, ok := seasonMonths[tag]
		if !ok {
			unknown = append(unknown, tag)
			continue
		}
		for _, m := range mapped {
			set[m] = struct{}{}
		}
	}
	if len(set) == 0 {
		return append([]int(nil), allMonths...), unknown
	}
	months = make([]int, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Ints(months)
	return months, unknown
}

// FilterByMonth returns only the species whose best months contain the given
// month, preserving the original relative order. It is a stable filter, not
// a re-rank; an out-of-range month returns the list unchanged.
func FilterByMonth(scores []SpeciesScore, month int) []SpeciesScore {
	if month < 1 || month > 12 {
		return scores
	}
	out := make([]SpeciesScore, 0, len(scores))
	for i := range scores {
		for _, m := range scores[i].BestMonths {
			if m == month {
				out = append(out, scores[i])
				break
			}
		}
	}
	return out
}
