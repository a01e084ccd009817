package analysis

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/export"
	"github.com/birdtargets/bird-targets/internal/habitat"
	"github.com/birdtargets/bird-targets/internal/observability"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

// Fixture activity carries no per-month detail, so every record lands in a
// single synthetic month cell. The rates are ratios of the same totals, the
// cell choice does not affect the ranking.
const fixtureMonth = 6

// FixtureRegion is one region's species totals in a fixture file.
type FixtureRegion struct {
	RegionCode      string           `json:"region_code"`
	Name            string           `json:"name"`
	ChecklistsTotal int              `json:"checklists_total"`
	Species         []FixtureSpecies `json:"species"`
}

// FixtureSpecies is one species entry within a fixture region.
type FixtureSpecies struct {
	SpeciesCode      string `json:"species_code"`
	CommonName       string `json:"common_name"`
	ObservationCount int    `json:"observation_count"`
}

// Fixtures is the full demo input set read from a fixtures directory.
type Fixtures struct {
	TargetRegionName    string
	AdjacentRegionNames []string
	Target              FixtureRegion
	Adjacent            []FixtureRegion
	ExcludedSpecies     []string
	PublicLands         *habitat.FeatureCollection
	Hotspots            []export.Hotspot
}

// LoadFixtures reads the fixture files from dir. The regions, target and
// adjacent species files are required; public lands and hotspots are
// optional and default to empty.
func LoadFixtures(dir string) (*Fixtures, error) {
	fx := &Fixtures{}

	var regions struct {
		TargetRegion struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"target_region"`
		AdjacentRegions []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"adjacent_regions"`
	}
	if err := readFixtureJSON(filepath.Join(dir, "regions.json"), &regions); err != nil {
		return nil, err
	}
	fx.TargetRegionName = regions.TargetRegion.Name
	for _, r := range regions.AdjacentRegions {
		fx.AdjacentRegionNames = append(fx.AdjacentRegionNames, r.Name)
	}

	if err := readFixtureJSON(filepath.Join(dir, "durham_species.json"), &fx.Target); err != nil {
		return nil, err
	}
	if fx.Target.RegionCode == "" {
		fx.Target.RegionCode = regions.TargetRegion.Code
	}

	var adjacent struct {
		Regions []FixtureRegion `json:"regions"`
	}
	if err := readFixtureJSON(filepath.Join(dir, "adjacent_species.json"), &adjacent); err != nil {
		return nil, err
	}
	fx.Adjacent = adjacent.Regions

	var exclusions struct {
		ExcludedSpecies []struct {
			SpeciesCode string `json:"species_code"`
		} `json:"excluded_species"`
	}
	if err := readFixtureJSON(filepath.Join(dir, "exclusions.json"), &exclusions); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	for _, sp := range exclusions.ExcludedSpecies {
		fx.ExcludedSpecies = append(fx.ExcludedSpecies, sp.SpeciesCode)
	}

	landsPath := filepath.Join(dir, "public_lands.json")
	if _, err := os.Stat(landsPath); err == nil {
		lands, err := habitat.LoadPublicLands(landsPath)
		if err != nil {
			return nil, err
		}
		fx.PublicLands = lands
	} else {
		fx.PublicLands = &habitat.FeatureCollection{Type: "FeatureCollection"}
	}

	hotspotsPath := filepath.Join(dir, "hotspots.json")
	if _, err := os.Stat(hotspotsPath); err == nil {
		hotspots, err := export.LoadHotspots(hotspotsPath)
		if err != nil {
			return nil, err
		}
		fx.Hotspots = hotspots
	}

	return fx, nil
}

func readFixtureJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Newf("reading fixture: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("analysis").
			Build()
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Newf("parsing fixture: %w", err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("analysis").
			Build()
	}
	return nil
}

// Snapshot converts the fixture set into a scoring snapshot. Each species
// record becomes one activity row stamped with the region's checklist
// total, since effort signals describe the whole cell rather than any one
// species.
func (fx *Fixtures) Snapshot(habitatScores map[string]float64, seasonality map[string][]string) *scoring.Snapshot {
	snap := &scoring.Snapshot{
		TargetRegion:  fx.Target.RegionCode,
		HabitatScores: habitatScores,
		Seasonality:   seasonality,
	}

	appendRegion := func(region *FixtureRegion) {
		for _, sp := range region.Species {
			snap.Activity = append(snap.Activity, scoring.RegionActivity{
				RegionCode:       region.RegionCode,
				SpeciesCode:      sp.SpeciesCode,
				CommonName:       sp.CommonName,
				Month:            fixtureMonth,
				ChecklistCount:   region.ChecklistsTotal,
				ObservationCount: sp.ObservationCount,
			})
		}
	}

	appendRegion(&fx.Target)
	for i := range fx.Adjacent {
		region := &fx.Adjacent[i]
		snap.AdjacentRegions = append(snap.AdjacentRegions, region.RegionCode)
		appendRegion(region)
	}
	return snap
}

// RunDemo scores fixture data instead of the live cache and writes the same
// artifact set under outPath.
func RunDemo(settings *conf.Settings, metrics *observability.Metrics, fixturesDir, outPath string) (*RunSummary, error) {
	fx, err := LoadFixtures(fixturesDir)
	if err != nil {
		return nil, err
	}

	rules, err := habitat.LoadRules(settings.Scoring.HabitatRules)
	if err != nil {
		return nil, err
	}
	seasonality, err := habitat.LoadSeasonalityRules(settings.Scoring.SeasonalityRules)
	if err != nil {
		return nil, err
	}

	runSettings := *settings
	runSettings.Scoring.ExcludedSpecies = append(
		append([]string(nil), settings.Scoring.ExcludedSpecies...), fx.ExcludedSpecies...)

	habitatScores := habitat.CalculateAll(rules, fx.PublicLands)
	snap := fx.Snapshot(habitat.ExpectedScores(habitatScores), seasonality)

	dossierCtx := export.DossierContext{
		TargetRegionName:    fx.TargetRegionName,
		AdjacentRegionNames: fx.AdjacentRegionNames,
		HabitatScores:       habitatScores,
	}
	return scoreSnapshot(&runSettings, metrics, snap, dossierCtx, outPath, fx.PublicLands, fx.Hotspots)
}
