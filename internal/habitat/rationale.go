package habitat

import (
	"fmt"
	"sort"
	"strings"
)

// Rationale renders a markdown explanation of a habitat score for the
// species dossiers.
func Rationale(score Score) string {
	if len(score.MatchedLands) == 0 {
		return "No suitable habitat identified on public lands."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Habitat Score:** %.4f (weight: %g)\n\n", score.ExpectedScore, score.RuleWeight)
	b.WriteString("**Matched Public Lands:**\n")

	matches := append([]Match(nil), score.MatchedLands...)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Contribution > matches[j].Contribution
	})

	for _, m := range matches {
		fmt.Fprintf(&b, "- **%s** (%s): %.0f acres\n", m.LandName, m.LandType, m.AreaAcres)
		fmt.Fprintf(&b, "  - Habitats: %s\n", strings.Join(m.MatchedHabitats, ", "))
		fmt.Fprintf(&b, "  - Contribution: %.1f\n", m.Contribution)
	}

	return strings.TrimRight(b.String(), "\n")
}
