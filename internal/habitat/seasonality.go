package habitat

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/birdtargets/bird-targets/internal/errors"
)

// LoadSeasonalityRules reads the species seasonality tags file, a YAML map
// from species code to a list of season tags. The file is hand-edited, so
// entries are decoded one by one: a malformed entry is skipped with a
// warning instead of failing the run, and the skipped species falls back to
// year-round downstream. A missing file yields an empty map; unknown tags
// are likewise handled downstream with the year-round fallback.
func LoadSeasonalityRules(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, errors.Newf("reading seasonality rules: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("habitat").
			Build()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Newf("parsing seasonality rules: %w", err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("habitat").
			Build()
	}

	rules := map[string][]string{}
	if len(doc.Content) == 0 {
		return rules, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		logger.Warn("seasonality rules are not a species mapping, ignoring file",
			"path", path)
		return rules, nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		var code string
		if err := keyNode.Decode(&code); err != nil || code == "" {
			logger.Warn("skipping seasonality entry with unreadable species code",
				"path", path, "line", keyNode.Line)
			continue
		}
		var tags []string
		if err := valueNode.Decode(&tags); err != nil {
			logger.Warn("malformed seasonality entry, species treated as year-round",
				"path", path, "species", code, "line", valueNode.Line)
			continue
		}
		rules[code] = tags
	}
	return rules, nil
}
