// Package analysis drives complete scoring runs: loading activity from the
// cache or from fixture files, running the scoring engine and writing the
// ranked CSV, GeoJSON layers and species dossiers.
package analysis

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/datastore"
	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/export"
	"github.com/birdtargets/bird-targets/internal/fetcher"
	"github.com/birdtargets/bird-targets/internal/habitat"
	"github.com/birdtargets/bird-targets/internal/logging"
	"github.com/birdtargets/bird-targets/internal/observability"
	"github.com/birdtargets/bird-targets/internal/scoring"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "analysis.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "analysis", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize analysis file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "analysis")
		closeLogger = func() error { return nil }
	}
}

// RunSummary reports what a completed run produced.
type RunSummary struct {
	RankedPath       string
	SpeciesRanked    int
	SpeciesExcluded  int
	LayersExported   int
	DossiersExported int
	Warnings         []string
}

// RunFromCache scores the cached eBird activity and writes all artifacts
// under the configured output path.
func RunFromCache(settings *conf.Settings, metrics *observability.Metrics) (*RunSummary, error) {
	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}()

	rules, err := habitat.LoadRules(settings.Scoring.HabitatRules)
	if err != nil {
		return nil, err
	}
	lands, err := habitat.LoadPublicLands(settings.Scoring.PublicLands)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.Warn("public lands file not found, habitat scores default to zero",
			"path", settings.Scoring.PublicLands)
		lands = &habitat.FeatureCollection{Type: "FeatureCollection"}
	}
	seasonality, err := habitat.LoadSeasonalityRules(settings.Scoring.SeasonalityRules)
	if err != nil {
		return nil, err
	}

	habitatScores := habitat.CalculateAll(rules, lands)
	snap, err := fetcher.BuildSnapshot(store, habitat.ExpectedScores(habitatScores), seasonality)
	if err != nil {
		return nil, err
	}

	target, err := store.GetTargetRegion()
	if err != nil {
		return nil, err
	}
	adjacent, err := store.GetAdjacentRegions()
	if err != nil {
		return nil, err
	}
	adjacentNames := make([]string, 0, len(adjacent))
	for i := range adjacent {
		adjacentNames = append(adjacentNames, adjacent[i].Name)
	}

	dossierCtx := export.DossierContext{
		TargetRegionName:    target.Name,
		AdjacentRegionNames: adjacentNames,
		HabitatScores:       habitatScores,
	}
	hotspots, err := loadHotspots(settings)
	if err != nil {
		return nil, err
	}
	return scoreSnapshot(settings, metrics, snap, dossierCtx, settings.Output.Path, lands, hotspots)
}

// ExportFromCache regenerates the map layers and dossiers from the cache
// without touching the fetch pathway. The scores are recomputed so that the
// dossiers reflect the current configuration.
func ExportFromCache(settings *conf.Settings, metrics *observability.Metrics) (*RunSummary, error) {
	return RunFromCache(settings, metrics)
}

// scoreSnapshot runs the engine over a snapshot and writes every artifact.
func scoreSnapshot(settings *conf.Settings, metrics *observability.Metrics, snap *scoring.Snapshot,
	dossierCtx export.DossierContext, outPath string, lands *habitat.FeatureCollection,
	hotspots []export.Hotspot) (*RunSummary, error) {

	start := time.Now()
	engine := scoring.New(settings.ScoringConfig())
	result := engine.Run(snap)

	summary := &RunSummary{Warnings: result.Warnings}

	rankedPath, err := export.WriteRankedCSV(&result, outPath)
	if err != nil {
		recordRun(metrics, "error", start, &result)
		return nil, err
	}
	summary.RankedPath = rankedPath

	layers, err := export.WriteLayers(outPath, lands, hotspots)
	if err != nil {
		recordRun(metrics, "error", start, &result)
		return nil, err
	}
	summary.LayersExported = layers

	dossiers, err := export.WriteDossiers(&result, dossierCtx, outPath)
	if err != nil {
		recordRun(metrics, "error", start, &result)
		return nil, err
	}
	summary.DossiersExported = dossiers

	for i := range result.Ranked {
		if result.Ranked[i].Excluded {
			summary.SpeciesExcluded++
		} else {
			summary.SpeciesRanked++
		}
	}

	recordRun(metrics, "ok", start, &result)
	logger.Info("scoring run complete",
		"run_id", result.RunID,
		"ranked", summary.SpeciesRanked,
		"excluded", summary.SpeciesExcluded,
		"layers", summary.LayersExported,
		"dossiers", summary.DossiersExported,
		"warnings", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds())
	return summary, nil
}

// loadHotspots reads the hotspots file that lives next to the public lands
// input. A missing file is not an error, it just produces empty layers.
func loadHotspots(settings *conf.Settings) ([]export.Hotspot, error) {
	path := filepath.Join(filepath.Dir(settings.Scoring.PublicLands), "hotspots.json")
	hotspots, err := export.LoadHotspots(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("hotspots file not found, layers will be sparse", "path", path)
			return nil, nil
		}
		return nil, err
	}
	return hotspots, nil
}

func recordRun(metrics *observability.Metrics, status string, start time.Time, result *scoring.Result) {
	if metrics == nil {
		return
	}
	ranked := 0
	excludedByReason := make(map[string]int)
	for i := range result.Ranked {
		if result.Ranked[i].Excluded {
			excludedByReason[result.Ranked[i].ExclusionReason]++
		} else {
			ranked++
		}
	}
	metrics.Scoring.RecordRun(status, time.Since(start).Seconds(), ranked, excludedByReason, len(result.Warnings))
}

// Close releases the package logger.
func Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close analysis logger: %v\n", err)
		}
	}
}
