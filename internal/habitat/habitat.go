// Package habitat scores how well the public lands of the target region
// match each species' habitat requirements. The habitat expectation is a
// complement to the observer expectation derived from adjacent counties.
package habitat

import (
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/logging"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "habitat.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "habitat", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize habitat file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "habitat")
		closeLogger = func() error { return nil }
	}
}

// Rule describes a species' habitat requirements.
type Rule struct {
	Habitats []string `yaml:"habitats"`
	Weight   float64  `yaml:"weight"`
}

// Default rule weight when the rules file does not set one.
const defaultRuleWeight = 0.5

// Habitat tags assumed for each public land type when the land's properties
// do not list explicit habitats.
var defaultLandTypeHabitats = map[string][]string{
	"university_forest":     {"mature_forest", "mixed_forest", "riparian"},
	"state_park":            {"mature_forest", "mixed_forest", "riparian", "open_fields"},
	"state_recreation_area": {"lake_wetland", "riparian", "open_fields", "mixed_forest"},
	"regional_park":         {"mixed_forest", "riparian", "suburban_edge", "open_fields"},
	"city_park":             {"suburban_edge", "open_fields", "mixed_forest"},
	"wildlife_refuge":       {"wetland", "mature_forest", "open_fields", "riparian"},
	"nature_preserve":       {"mature_forest", "wetland", "riparian"},
}

// FeatureCollection is a public lands GeoJSON document. Geometries are kept
// opaque, only feature properties drive the habitat model.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one public land polygon.
type Feature struct {
	Type       string          `json:"type"`
	Properties LandProperties  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// LandProperties are the attributes of a public land feature.
type LandProperties struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	AreaAcres float64  `json:"area_acres"`
	Habitats  []string `json:"habitats,omitempty"`
}

// Match records one public land contributing to a species' habitat score.
type Match struct {
	LandName        string
	LandType        string
	MatchedHabitats []string
	AreaAcres       float64
	Contribution    float64 // area weighted by habitat match proportion
}

// Score is the habitat expectation for one species.
type Score struct {
	SpeciesCode   string
	ExpectedScore float64
	MatchedLands  []Match
	RuleWeight    float64
}

// LoadRules reads the species habitat rules file. A missing file yields an
// empty rule set so habitat scoring degrades to the zero default.
func LoadRules(path string) (map[string]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Rule{}, nil
		}
		return nil, errors.Newf("reading habitat rules: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("habitat").
			Build()
	}

	rules := map[string]Rule{}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, errors.Newf("parsing habitat rules: %w", err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("habitat").
			Build()
	}

	for code, rule := range rules {
		if rule.Weight <= 0 {
			rule.Weight = defaultRuleWeight
			rules[code] = rule
		}
	}
	return rules, nil
}

// LoadPublicLands reads a public lands GeoJSON FeatureCollection.
func LoadPublicLands(path string) (*FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf("reading public lands: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("habitat").
			Build()
	}

	var lands FeatureCollection
	if err := json.Unmarshal(data, &lands); err != nil {
		return nil, errors.Newf("parsing public lands GeoJSON: %w", err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("habitat").
			Build()
	}
	return &lands, nil
}

// landHabitats returns a land's habitat tags, preferring explicit properties
// over the per-type defaults.
func landHabitats(props *LandProperties) []string {
	if len(props.Habitats) > 0 {
		return props.Habitats
	}
	if habitats, ok := defaultLandTypeHabitats[props.Type]; ok {
		return habitats
	}
	return []string{"mixed_forest"}
}

// CalculateScore computes the habitat expectation for one species: the share
// of public land area matching the species' habitats, weighted by match
// proportion and the rule weight.
func CalculateScore(speciesCode string, rule Rule, lands *FeatureCollection) Score {
	score := Score{
		SpeciesCode: speciesCode,
		RuleWeight:  rule.Weight,
	}
	if score.RuleWeight <= 0 {
		score.RuleWeight = defaultRuleWeight
	}
	if len(rule.Habitats) == 0 || lands == nil {
		return score
	}

	required := make(map[string]struct{}, len(rule.Habitats))
	for _, h := range rule.Habitats {
		required[h] = struct{}{}
	}

	var totalWeightedArea, maxPossibleArea float64
	for i := range lands.Features {
		props := &lands.Features[i].Properties
		maxPossibleArea += props.AreaAcres

		var matched []string
		for _, h := range landHabitats(props) {
			if _, ok := required[h]; ok {
				matched = append(matched, h)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Strings(matched)

		matchProportion := float64(len(matched)) / float64(len(required))
		contribution := props.AreaAcres * matchProportion
		totalWeightedArea += contribution

		score.MatchedLands = append(score.MatchedLands, Match{
			LandName:        props.Name,
			LandType:        props.Type,
			MatchedHabitats: matched,
			AreaAcres:       props.AreaAcres,
			Contribution:    contribution,
		})
	}

	if maxPossibleArea > 0 {
		score.ExpectedScore = round4(totalWeightedArea / maxPossibleArea * score.RuleWeight)
	}
	return score
}

// CalculateAll computes habitat scores for every species in the rules file.
func CalculateAll(rules map[string]Rule, lands *FeatureCollection) map[string]Score {
	scores := make(map[string]Score, len(rules))
	for code, rule := range rules {
		scores[code] = CalculateScore(code, rule, lands)
	}
	return scores
}

// ExpectedScores flattens detailed scores into the species code to score map
// the scoring snapshot consumes.
func ExpectedScores(scores map[string]Score) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for code, s := range scores {
		out[code] = s.ExpectedScore
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
