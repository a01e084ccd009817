package fetcher

import (
	"sort"
	"time"

	"github.com/birdtargets/bird-targets/internal/datastore"
	"github.com/birdtargets/bird-targets/internal/ebird"
)

// activityAggregator folds raw observations and checklist summaries into per
// (species, month) activity cells for one region.
type activityAggregator struct {
	regionCode string
	excluded   map[string]struct{} // taxonomic categories to drop
	categories map[string]string   // species code -> category

	species map[string]*speciesAccum // keyed species:month
	months  map[int]*monthAccum
}

type speciesAccum struct {
	speciesCode    string
	month          int
	commonName     string
	scientificName string
	category       string
	observations   int
}

type monthAccum struct {
	checklists      map[string]struct{}
	observers       map[string]struct{}
	durationMinutes float64
	distanceKm      float64
}

func newActivityAggregator(regionCode string, excludedCategories []string, categories map[string]string) *activityAggregator {
	excluded := make(map[string]struct{}, len(excludedCategories))
	for _, cat := range excludedCategories {
		excluded[cat] = struct{}{}
	}
	return &activityAggregator{
		regionCode: regionCode,
		excluded:   excluded,
		categories: categories,
		species:    make(map[string]*speciesAccum),
		months:     make(map[int]*monthAccum),
	}
}

func (a *activityAggregator) month(m int) *monthAccum {
	acc, ok := a.months[m]
	if !ok {
		acc = &monthAccum{
			checklists: make(map[string]struct{}),
			observers:  make(map[string]struct{}),
		}
		a.months[m] = acc
	}
	return acc
}

// addObservations folds one sampled date's observations into the aggregate.
// Records whose taxonomic category is excluded are dropped here so spuhs,
// slashes and hybrids never reach the cache.
func (a *activityAggregator) addObservations(date time.Time, obs []ebird.Observation) {
	m := int(date.Month())
	monthAcc := a.month(m)

	for i := range obs {
		o := &obs[i]
		if o.SpeciesCode == "" {
			continue
		}
		if cat, ok := a.categories[o.SpeciesCode]; ok {
			if _, drop := a.excluded[cat]; drop {
				continue
			}
		}

		if o.SubID != "" {
			monthAcc.checklists[o.SubID] = struct{}{}
		}

		key := o.SpeciesCode + ":" + monthKey(m)
		acc, ok := a.species[key]
		if !ok {
			acc = &speciesAccum{
				speciesCode:    o.SpeciesCode,
				month:          m,
				commonName:     o.CommonName,
				scientificName: o.ScientificName,
				category:       a.categories[o.SpeciesCode],
			}
			a.species[key] = acc
		}
		acc.observations++
	}
}

// addChecklists folds checklist feed entries into the month-level effort
// signals. The feed is the only source with duration and distance.
func (a *activityAggregator) addChecklists(lists []ebird.ChecklistSummary) {
	for i := range lists {
		l := &lists[i]
		m := parseChecklistMonth(l.ObsDate)
		if m < 1 || m > 12 {
			continue
		}
		acc := a.month(m)
		if l.SubID != "" {
			acc.checklists[l.SubID] = struct{}{}
		}
		if l.UserDisplayName != "" {
			acc.observers[l.UserDisplayName] = struct{}{}
		}
		acc.durationMinutes += l.DurationHrs * 60
		acc.distanceKm += l.EffortDistanceKm
	}
}

// rows converts the aggregate into datastore rows, one per species per
// month. Only the observation count is species-specific: the checklist,
// duration, distance and observer signals describe the whole (region, month)
// cell and repeat on every species row for that month, so effort is measured
// independently of how many species the month's checklists reported. Output
// order is deterministic.
func (a *activityAggregator) rows() []datastore.SpeciesActivity {
	keys := make([]string, 0, len(a.species))
	for key := range a.species {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]datastore.SpeciesActivity, 0, len(keys))
	for _, key := range keys {
		acc := a.species[key]
		monthAcc := a.month(acc.month)
		rows = append(rows, datastore.SpeciesActivity{
			RegionCode:           a.regionCode,
			SpeciesCode:          acc.speciesCode,
			Month:                acc.month,
			CommonName:           acc.commonName,
			ScientificName:       acc.scientificName,
			Category:             acc.category,
			ChecklistCount:       len(monthAcc.checklists),
			TotalDurationMinutes: monthAcc.durationMinutes,
			TotalDistanceKm:      monthAcc.distanceKm,
			UniqueObserverCount:  len(monthAcc.observers),
			ObservationCount:     acc.observations,
		})
	}
	return rows
}

// monthKey zero-pads the month so lexicographic key order matches numeric
// month order.
func monthKey(m int) string {
	return string([]byte{'0' + byte(m/10), '0' + byte(m%10)})
}

// checklist feed dates appear in a couple of layouts depending on endpoint
// version.
var checklistDateLayouts = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"2006-01-02",
	"2006-01-02 15:04",
}

func parseChecklistMonth(value string) int {
	for _, layout := range checklistDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return int(t.Month())
		}
	}
	return 0
}
