// Package scoring implements the under-reported species scoring engine.
// It turns aggregated per-region observation activity into a deterministic
// ranked list of species that are reported less often in the target region
// than the surrounding evidence suggests they should be.
package scoring

import "time"

// RegionActivity is one aggregated activity record per (region, species, month)
// tuple, produced by the fetch/cache layer. The checklist, duration, distance
// and observer fields carry the whole (region, month) cell's effort and are
// identical across that cell's species rows; only ObservationCount is
// species-specific. Records are immutable for the duration of a scoring run.
type RegionActivity struct {
	RegionCode           string  `json:"region_code"`
	SpeciesCode          string  `json:"species_code"`
	CommonName           string  `json:"common_name"`
	Month                int     `json:"month"` // 1-12
	ChecklistCount       int     `json:"checklist_count"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	UniqueObserverCount  int     `json:"unique_observer_count"`
	ObservationCount     int     `json:"observation_count"`
}

// EffortMass is the species-independent activity denominator for one
// (region, month) cell. Mass is a composite of checklist, duration and
// distance signals, each normalized to its population max, so it lives
// in [0,1]. Cells below the configured minimum mass are excluded from
// rate computation entirely rather than treated as zero.
type EffortMass struct {
	RegionCode     string  `json:"region_code"`
	Month          int     `json:"month"`
	ChecklistCount int     `json:"checklist_count"`
	EffortHours    float64 `json:"effort_hours"`
	ObserverCount  int     `json:"observer_count"`
	Mass           float64 `json:"mass"`
}

// SpeciesRate is the effort-adjusted presence rate of a species in a region,
// aggregated across all eligible months. Rate is scaled into [0,1] relative
// to the run's population maximum. ConfidenceWeight grows with absolute
// checklist count and saturates at 1.0.
type SpeciesRate struct {
	SpeciesCode      string  `json:"species_code"`
	RegionCode       string  `json:"region_code"`
	Rate             float64 `json:"rate"`
	ConfidenceWeight float64 `json:"confidence_weight"`
	ChecklistCount   int     `json:"checklist_count"`
	ObservationCount int     `json:"observation_count"`
}

// Exclusion reasons attached to SpeciesScore. A species carries at most one
// reason, the first applicable in filter order.
const (
	ReasonTaxonomyExclusion    = "taxonomy_exclusion"
	ReasonInsufficientEvidence = "insufficient_regional_evidence"
)

// SpeciesScore is the scored output record for a single species. Scores are
// rounded to four decimals before ranking so that identical inputs produce
// byte-identical output.
type SpeciesScore struct {
	SpeciesCode           string  `json:"species_code"`
	CommonName            string  `json:"common_name"`
	ObserverExpectedScore float64 `json:"observer_expected_score"`
	HabitatExpectedScore  float64 `json:"habitat_expected_score"`
	ExpectedScore         float64 `json:"expected_score"`
	ObservedScore         float64 `json:"observed_score"`
	UnderreportedScore    float64 `json:"underreported_score"`
	BestMonths            []int   `json:"best_months"`
	Excluded              bool    `json:"excluded"`
	ExclusionReason       string  `json:"exclusion_reason,omitempty"`
}

// Snapshot is the read-only input to one scoring run: the full activity
// aggregate for the target region and its adjacent regions, plus the
// externally supplied habitat scores and seasonality tags. The engine never
// mutates a snapshot.
type Snapshot struct {
	TargetRegion    string
	AdjacentRegions []string
	Activity        []RegionActivity
	HabitatScores   map[string]float64
	Seasonality     map[string][]string
}

// Result is the immutable outcome of one scoring run. Ranked contains the
// eligible species in rank order followed by excluded species in stable
// species code order. NoData is set when the snapshot was empty; the run
// still succeeds and exporters still produce a valid (empty) artifact.
type Result struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Ranked      []SpeciesScore `json:"ranked"`
	Warnings    []string       `json:"warnings,omitempty"`
	NoData      bool           `json:"no_data"`
}

// Eligible returns only the species that passed the plausibility filter,
// in rank order.
func (r *Result) Eligible() []SpeciesScore {
	out := make([]SpeciesScore, 0, len(r.Ranked))
	for i := range r.Ranked {
		if !r.Ranked[i].Excluded {
			out = append(out, r.Ranked[i])
		}
	}
	return out
}
