// Package export writes the run artifacts: the ranked targets CSV, the map
// layers and the species dossiers.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

// RankedCSVName is the canonical ranked artifact filename.
const RankedCSVName = "targets_ranked.csv"

// rankedHeader is the versioned column layout of the ranked artifact.
// Readers check it before consuming the file.
var rankedHeader = []string{
	"species_code",
	"common_name",
	"observer_expected_score",
	"habitat_expected_score",
	"expected_score",
	"observed_score",
	"underreported_score",
	"best_months",
	"excluded",
	"exclusion_reason",
}

// WriteRankedCSV writes the full ranked result, excluded species included,
// to outPath/targets_ranked.csv.
func WriteRankedCSV(result *scoring.Result, outPath string) (string, error) {
	if err := os.MkdirAll(outPath, 0o755); err != nil {
		return "", wrapFileErr(err, "creating output directory", outPath)
	}

	path := filepath.Join(outPath, RankedCSVName)
	f, err := os.Create(path)
	if err != nil {
		return "", wrapFileErr(err, "creating ranked CSV", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(rankedHeader); err != nil {
		return "", wrapFileErr(err, "writing ranked CSV header", path)
	}

	for i := range result.Ranked {
		s := &result.Ranked[i]
		record := []string{
			s.SpeciesCode,
			s.CommonName,
			formatScore(s.ObserverExpectedScore),
			formatScore(s.HabitatExpectedScore),
			formatScore(s.ExpectedScore),
			formatScore(s.ObservedScore),
			formatScore(s.UnderreportedScore),
			formatMonths(s.BestMonths),
			strconv.FormatBool(s.Excluded),
			s.ExclusionReason,
		}
		if err := w.Write(record); err != nil {
			return "", wrapFileErr(err, "writing ranked CSV row", path)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", wrapFileErr(err, "flushing ranked CSV", path)
	}
	return path, nil
}

// ReadRankedCSV reads a ranked artifact back, validating the header layout.
func ReadRankedCSV(path string) ([]scoring.SpeciesScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapFileErr(err, "opening ranked CSV", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, wrapFileErr(err, "reading ranked CSV header", path)
	}
	if !equalHeader(header, rankedHeader) {
		return nil, errors.Newf("ranked CSV has unexpected column layout: %v", header).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Component("export").
			Build()
	}

	var scores []scoring.SpeciesScore
	records, err := r.ReadAll()
	if err != nil {
		return nil, wrapFileErr(err, "reading ranked CSV rows", path)
	}
	for _, rec := range records {
		score := scoring.SpeciesScore{
			SpeciesCode:     rec[0],
			CommonName:      rec[1],
			ExclusionReason: rec[9],
		}
		score.ObserverExpectedScore, _ = strconv.ParseFloat(rec[2], 64)
		score.HabitatExpectedScore, _ = strconv.ParseFloat(rec[3], 64)
		score.ExpectedScore, _ = strconv.ParseFloat(rec[4], 64)
		score.ObservedScore, _ = strconv.ParseFloat(rec[5], 64)
		score.UnderreportedScore, _ = strconv.ParseFloat(rec[6], 64)
		score.BestMonths = parseMonths(rec[7])
		score.Excluded, _ = strconv.ParseBool(rec[8])
		scores = append(scores, score)
	}
	return scores, nil
}

func equalHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatMonths(months []int) string {
	if len(months) == 0 {
		return ""
	}
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, " ")
}

func parseMonths(value string) []int {
	if value == "" {
		return nil
	}
	var months []int
	for _, part := range strings.Fields(value) {
		if m, err := strconv.Atoi(part); err == nil {
			months = append(months, m)
		}
	}
	return months
}

func wrapFileErr(err error, op, path string) error {
	return errors.Newf("%s: %w", op, err).
		Category(errors.CategoryFileIO).
		Context("path", path).
		Component("export").
		Build()
}
