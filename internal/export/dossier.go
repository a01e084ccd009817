package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/birdtargets/bird-targets/internal/habitat"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

// Number of top under-reported species that get a dossier.
const dossierCount = 5

var titleCaser = cases.Title(language.AmericanEnglish, cases.NoLower)

// DossierContext carries the regional context rendered into each dossier.
type DossierContext struct {
	TargetRegionName    string
	AdjacentRegionNames []string
	HabitatScores       map[string]habitat.Score
}

// WriteDossiers writes markdown dossiers for the top under-reported species
// under outPath/species_dossiers and returns how many were written.
func WriteDossiers(result *scoring.Result, ctx DossierContext, outPath string) (int, error) {
	dossiersPath := filepath.Join(outPath, "species_dossiers")
	if err := os.MkdirAll(dossiersPath, 0o755); err != nil {
		return 0, wrapFileErr(err, "creating dossiers directory", dossiersPath)
	}

	written := 0
	for _, score := range result.Eligible() {
		if written >= dossierCount {
			break
		}
		if score.UnderreportedScore <= 0 {
			continue
		}

		path := filepath.Join(dossiersPath, score.SpeciesCode+".md")
		if err := os.WriteFile(path, []byte(RenderDossier(&score, ctx)), 0o644); err != nil {
			return written, wrapFileErr(err, "writing dossier", path)
		}
		written++
	}
	return written, nil
}

// RenderDossier renders one species dossier as markdown.
func RenderDossier(score *scoring.SpeciesScore, ctx DossierContext) string {
	name := score.CommonName
	if name == "" {
		name = score.SpeciesCode
	} else {
		name = titleCaser.String(name)
	}

	target := ctx.TargetRegionName
	if target == "" {
		target = "the target region"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", name, score.SpeciesCode)
	b.WriteString("## Under-Reported Status\n\n")
	fmt.Fprintf(&b, "This species is identified as **under-reported** in %s relative to\nadjacent counties.\n\n", target)

	b.WriteString("### Scores\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Expected Score | %.4f |\n", score.ExpectedScore)
	fmt.Fprintf(&b, "| Observed Score | %.4f |\n", score.ObservedScore)
	fmt.Fprintf(&b, "| Under-reported Score | %.4f |\n\n", score.UnderreportedScore)

	if len(score.BestMonths) > 0 {
		b.WriteString("### Best Months to Survey\n\n")
		b.WriteString(formatMonthNames(score.BestMonths) + "\n\n")
	}

	b.WriteString("## Regional Context\n\n")
	fmt.Fprintf(&b, "**Target Region:** %s\n\n", target)
	if len(ctx.AdjacentRegionNames) > 0 {
		b.WriteString("**Adjacent Regions for Comparison:**\n")
		for _, adj := range ctx.AdjacentRegionNames {
			fmt.Fprintf(&b, "- %s\n", adj)
		}
		b.WriteString("\n")
	}

	if hs, ok := ctx.HabitatScores[score.SpeciesCode]; ok {
		b.WriteString("## Habitat\n\n")
		b.WriteString(habitat.Rationale(hs) + "\n\n")
	}

	b.WriteString("## Interpretation\n\n")
	b.WriteString("- **Expected Score**: Based on reporting rates in adjacent counties")
	if len(ctx.AdjacentRegionNames) > 0 {
		fmt.Fprintf(&b, "\n  (%s)", strings.Join(ctx.AdjacentRegionNames, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Observed Score**: Current reporting rate in %s\n", target)
	b.WriteString("- **Under-reported Score**: Gap between expected and observed\n  (higher = more under-reported)\n\n")

	b.WriteString("## Survey Recommendations\n\n")
	b.WriteString("1. Focus surveys on habitats where this species is typically found\n")
	b.WriteString("2. Consider time of day and seasonality for optimal detection\n")
	fmt.Fprintf(&b, "3. Prioritize under-surveyed public lands in %s\n\n", target)

	b.WriteString("---\n*Generated by bird-targets*\n")
	return b.String()
}

func formatMonthNames(months []int) string {
	names := make([]string, 0, len(months))
	for _, m := range months {
		if m >= 1 && m <= 12 {
			names = append(names, time.Month(m).String())
		}
	}
	return strings.Join(names, ", ")
}
