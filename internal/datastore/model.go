// model.go this code defines the data model for the application
package datastore

import "time"

// Region represents one eBird region in the cache, either the target region
// or one of its neighbors.
type Region struct {
	ID       uint   `gorm:"primaryKey"`
	Code     string `gorm:"uniqueIndex:idx_regions_code"`
	Name     string
	IsTarget bool
	MinLat   float64
	MaxLat   float64
	MinLng   float64
	MaxLng   float64
	// FetchedAt records when this region's data was last refreshed.
	FetchedAt time.Time
}

// SpeciesActivity is the per (region, species, month) aggregate the scoring
// engine consumes. One row per cell per species; the effort columns repeat
// the cell's totals on every species row while ObservationCount is the only
// species-specific count.
type SpeciesActivity struct {
	ID                   uint   `gorm:"primaryKey"`
	RegionCode           string `gorm:"index:idx_activity_region;uniqueIndex:idx_activity_cell"`
	SpeciesCode          string `gorm:"index:idx_activity_species;uniqueIndex:idx_activity_cell"`
	Month                int    `gorm:"uniqueIndex:idx_activity_cell"`
	CommonName           string
	ScientificName       string
	Category             string
	ChecklistCount       int
	TotalDurationMinutes float64
	TotalDistanceKm      float64
	UniqueObserverCount  int
	ObservationCount     int
}

// RegionStats stores checklist volume for a region on one sampled date, as
// returned by the eBird stats endpoint.
type RegionStats struct {
	ID              uint   `gorm:"primaryKey"`
	RegionCode      string `gorm:"index:idx_stats_region;uniqueIndex:idx_stats_region_date"`
	Date            string `gorm:"uniqueIndex:idx_stats_region_date"` // YYYY-MM-DD
	NumChecklists   int
	NumContributors int
	NumSpecies      int
}

// Metadata is a key-value record describing the cache itself (schema
// version, fetch window, last fetch timestamp).
type Metadata struct {
	ID    uint   `gorm:"primaryKey"`
	Key   string `gorm:"uniqueIndex:idx_metadata_key"`
	Value string
}

// Metadata keys written by the fetcher.
const (
	MetaSchemaVersion = "schema_version"
	MetaTargetRegion  = "target_region"
	MetaFetchedAt     = "fetched_at"
	MetaYearsSampled  = "years_sampled"
)

// SchemaVersion is bumped when the cache layout changes incompatibly.
const SchemaVersion = "2"
