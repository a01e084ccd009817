// Package ebird provides a client for interacting with the eBird API v2
package ebird

import "time"

// RegionInfo describes a single region as returned by /ref/region/info.
type RegionInfo struct {
	Code   string       `json:"code,omitempty"`
	Result string       `json:"result"` // human readable region name
	Bounds RegionBounds `json:"bounds"`
}

// RegionBounds is the bounding box of a region.
type RegionBounds struct {
	MinLat float64 `json:"minY"`
	MaxLat float64 `json:"maxY"`
	MinLng float64 `json:"minX"`
	MaxLng float64 `json:"maxX"`
}

// AdjacentRegion is one entry from /ref/adjacent/{regionCode}.
type AdjacentRegion struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TaxonomyEntry represents a single entry from the eBird taxonomy
type TaxonomyEntry struct {
	ScientificName string   `json:"sciName"`
	CommonName     string   `json:"comName"`
	SpeciesCode    string   `json:"speciesCode"`
	Category       string   `json:"category"` // species, spuh, slash, hybrid, etc.
	TaxonOrder     float64  `json:"taxonOrder"`
	BandingCodes   []string `json:"bandingCodes"`
	Order          string   `json:"order"`
	FamilyCode     string   `json:"familyCode"`
	FamilyComName  string   `json:"familyComName"`
	FamilySciName  string   `json:"familySciName"`
	ReportAs       string   `json:"reportAs,omitempty"`
}

// Observation is a single record from the observation endpoints
// (/data/obs/{regionCode}/recent and /data/obs/{regionCode}/historic/...).
type Observation struct {
	SpeciesCode     string  `json:"speciesCode"`
	CommonName      string  `json:"comName"`
	ScientificName  string  `json:"sciName"`
	LocationID      string  `json:"locId"`
	LocationName    string  `json:"locName"`
	ObservationDate string  `json:"obsDate"` // "2024-03-15 08:30"
	HowMany         int     `json:"howMany,omitempty"`
	Latitude        float64 `json:"lat"`
	Longitude       float64 `json:"lng"`
	Valid           bool    `json:"obsValid"`
	Reviewed        bool    `json:"obsReviewed"`
	LocationPrivate bool    `json:"locationPrivate"`
	SubID           string  `json:"subId"`
}

// RegionStats is the response of /product/stats/{regionCode}/{y}/{m}/{d}.
type RegionStats struct {
	NumChecklists   int `json:"numChecklists"`
	NumContributors int `json:"numContributors"`
	NumSpecies      int `json:"numSpecies"`
}

// ChecklistSummary is one entry from /product/lists/{regionCode}.
type ChecklistSummary struct {
	LocationID       string  `json:"locId"`
	SubID            string  `json:"subId"`
	UserDisplayName  string  `json:"userDisplayName"`
	NumSpecies       int     `json:"numSpecies"`
	ObsDate          string  `json:"obsDt"`
	ObsTime          string  `json:"obsTime"`
	DurationHrs      float64 `json:"durationHrs,omitempty"`
	EffortDistanceKm float64 `json:"effortDistanceKm,omitempty"`
}

// Top100Entry is one entry from /product/top100/{regionCode}/{y}/{m}/{d}.
type Top100Entry struct {
	UserDisplayName       string `json:"userDisplayName"`
	NumSpecies            int    `json:"numSpecies"`
	NumCompleteChecklists int    `json:"numCompleteChecklists"`
}

// Config holds configuration for the eBird client
type Config struct {
	APIKey      string        `json:"api_key"`
	BaseURL     string        `json:"base_url"`
	Timeout     time.Duration `json:"timeout"`
	CacheTTL    time.Duration `json:"cache_ttl"`
	RateLimitMS int           `json:"rate_limit_ms"` // Milliseconds between requests
}

// Error represents an eBird API error response
type Error struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return e.Detail
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.ebird.org/v2",
		Timeout:     30 * time.Second,
		CacheTTL:    24 * time.Hour,
		RateLimitMS: 500, // stay well under the eBird request quota
	}
}
