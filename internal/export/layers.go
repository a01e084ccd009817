package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/habitat"
)

// Layer filenames under <out>/layers/.
const (
	LayerPublicLands      = "public_lands.geojson"
	LayerChecklistDensity = "checklist_density.geojson"
	LayerSurveyTargets    = "survey_targets.geojson"
)

// Checklist density class boundaries.
const (
	densityHighThreshold   = 800
	densityMediumThreshold = 300
)

// Survey priority coverage-ratio boundaries (checklists per acre).
const (
	coverageHighPriority   = 0.1
	coverageMediumPriority = 0.2
)

// FeatureCollection is a generic GeoJSON document for the map layers.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one GeoJSON feature with free-form properties.
type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// Hotspot is one eBird hotspot with its checklist volume.
type Hotspot struct {
	LocID          string  `json:"loc_id"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	ChecklistCount int     `json:"checklist_count"`
}

// LoadHotspots reads a hotspots file, a JSON document with a top-level
// "hotspots" array.
func LoadHotspots(path string) ([]Hotspot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapFileErr(err, "reading hotspots", path)
	}

	var doc struct {
		Hotspots []Hotspot `json:"hotspots"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Newf("parsing hotspots: %w", err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("export").
			Build()
	}
	return doc.Hotspots, nil
}

// PublicLandsLayer converts the public lands input into a map layer.
func PublicLandsLayer(lands *habitat.FeatureCollection) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection"}
	if lands == nil {
		return fc
	}
	for i := range lands.Features {
		f := &lands.Features[i]
		props := map[string]any{
			"name":       f.Properties.Name,
			"type":       f.Properties.Type,
			"area_acres": f.Properties.AreaAcres,
		}
		if len(f.Properties.Habitats) > 0 {
			props["habitats"] = f.Properties.Habitats
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Properties: props,
			Geometry:   f.Geometry,
		})
	}
	return fc
}

// ChecklistDensityLayer builds a point layer of hotspots classified by
// checklist volume.
func ChecklistDensityLayer(hotspots []Hotspot) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection"}
	for _, h := range hotspots {
		geometry, _ := json.Marshal(map[string]any{
			"type":        "Point",
			"coordinates": []float64{h.Lon, h.Lat},
		})
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Properties: map[string]any{
				"loc_id":          h.LocID,
				"name":            h.Name,
				"checklist_count": h.ChecklistCount,
				"density_class":   classifyDensity(h.ChecklistCount),
			},
			Geometry: geometry,
		})
	}
	return fc
}

func classifyDensity(checklistCount int) string {
	switch {
	case checklistCount >= densityHighThreshold:
		return "high"
	case checklistCount >= densityMediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// SurveyTargetsLayer ranks public lands by how under-surveyed they are:
// checklist coverage per acre against the land's size. Hotspot checklists
// are attributed to a land by name prefix match.
func SurveyTargetsLayer(lands *habitat.FeatureCollection, hotspots []Hotspot) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection"}
	if lands == nil {
		return fc
	}

	for i := range lands.Features {
		f := &lands.Features[i]
		prefix := strings.ToLower(strings.SplitN(f.Properties.Name, "--", 2)[0])

		nearbyChecklists := 0
		for _, h := range hotspots {
			if strings.Contains(strings.ToLower(h.Name), prefix) {
				nearbyChecklists += h.ChecklistCount
			}
		}

		var coverageRatio float64
		if f.Properties.AreaAcres > 0 {
			coverageRatio = float64(nearbyChecklists) / f.Properties.AreaAcres
		}

		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Properties: map[string]any{
				"name":               f.Properties.Name,
				"type":               f.Properties.Type,
				"area_acres":         f.Properties.AreaAcres,
				"checklist_coverage": nearbyChecklists,
				"survey_priority":    classifyPriority(coverageRatio),
			},
			Geometry: f.Geometry,
		})
	}

	priorityOrder := map[string]int{"high": 0, "medium": 1, "low": 2}
	sort.SliceStable(fc.Features, func(i, j int) bool {
		pi := priorityOrder[fc.Features[i].Properties["survey_priority"].(string)]
		pj := priorityOrder[fc.Features[j].Properties["survey_priority"].(string)]
		return pi < pj
	})
	return fc
}

func classifyPriority(coverageRatio float64) string {
	switch {
	case coverageRatio < coverageHighPriority:
		return "high"
	case coverageRatio < coverageMediumPriority:
		return "medium"
	default:
		return "low"
	}
}

// WriteLayers writes the three map layers under outPath/layers and returns
// the number of layers written.
func WriteLayers(outPath string, lands *habitat.FeatureCollection, hotspots []Hotspot) (int, error) {
	layersPath := filepath.Join(outPath, "layers")
	if err := os.MkdirAll(layersPath, 0o755); err != nil {
		return 0, wrapFileErr(err, "creating layers directory", layersPath)
	}

	layers := []struct {
		name string
		fc   FeatureCollection
	}{
		{LayerPublicLands, PublicLandsLayer(lands)},
		{LayerChecklistDensity, ChecklistDensityLayer(hotspots)},
		{LayerSurveyTargets, SurveyTargetsLayer(lands, hotspots)},
	}

	written := 0
	for _, layer := range layers {
		path := filepath.Join(layersPath, layer.name)
		data, err := json.MarshalIndent(layer.fc, "", "  ")
		if err != nil {
			return written, errors.Newf("encoding layer %s: %w", layer.name, err).
				Category(errors.CategoryFileIO).
				Context("layer", layer.name).
				Component("export").
				Build()
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, wrapFileErr(err, "writing layer", path)
		}
		written++
	}
	return written, nil
}
