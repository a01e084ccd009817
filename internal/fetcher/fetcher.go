// Package fetcher samples historical eBird observations for the target
// region and its neighbors and aggregates them into the activity cache.
package fetcher

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/datastore"
	"github.com/birdtargets/bird-targets/internal/ebird"
	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/logging"
	"github.com/birdtargets/bird-targets/internal/observability/metrics"
)

// Minimum number of sample dates across the whole fetch window, regardless
// of how few years are requested.
const minSamplesTotal = 24

// Default neighbors of Durham County, used when adjacency discovery via the
// API is unavailable and no explicit list is configured.
var defaultAdjacentRegions = []ebird.AdjacentRegion{
	{Code: "US-NC-037", Name: "Chatham"},
	{Code: "US-NC-077", Name: "Granville"},
	{Code: "US-NC-135", Name: "Orange"},
	{Code: "US-NC-145", Name: "Person"},
	{Code: "US-NC-183", Name: "Wake"},
}

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "fetcher.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "fetcher", serviceLevelVar)
	if err != nil {
		log.Printf("FATAL: Failed to initialize fetcher file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "fetcher")
		closeLogger = func() error { return nil }
	}
}

// Fetcher drives the sampling pipeline: region discovery, historical
// observation sampling, per-cell aggregation and cache writes.
type Fetcher struct {
	client   *ebird.Client
	store    datastore.Interface
	settings *conf.Settings
	metrics  *metrics.FetchMetrics
}

// New creates a Fetcher around an eBird client and an open datastore.
func New(client *ebird.Client, store datastore.Interface, settings *conf.Settings) *Fetcher {
	return &Fetcher{
		client:   client,
		store:    store,
		settings: settings,
	}
}

// SetMetrics attaches Prometheus fetch metrics. Optional; a nil receiver
// value disables recording.
func (f *Fetcher) SetMetrics(m *metrics.FetchMetrics) {
	f.metrics = m
}

// sampleSeed derives a deterministic RNG seed from the fetch parameters so
// repeated fetches of the same window sample the same dates.
func sampleSeed(regionCode string, years int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", regionCode, years)
	return int64(h.Sum64())
}

// GenerateSampleDates spreads sample dates evenly across the fetch window
// ending yesterday, with jitter so samples do not always land on the same
// day of month. The result is sorted ascending.
func GenerateSampleDates(now time.Time, years, samplesPerYear int, rng *rand.Rand) []time.Time {
	endDate := now.AddDate(0, 0, -1)
	startDate := endDate.AddDate(-years, 0, 0)

	totalSamples := years * samplesPerYear
	if totalSamples < minSamplesTotal {
		totalSamples = minSamplesTotal
	}

	daysInPeriod := int(endDate.Sub(startDate).Hours() / 24)
	if daysInPeriod < 1 {
		daysInPeriod = 1
	}
	interval := float64(daysInPeriod) / float64(totalSamples)

	samples := make([]time.Time, 0, totalSamples)
	for i := 0; i < totalSamples; i++ {
		baseOffset := int(float64(i) * interval)
		maxJitter := int(interval * 0.5)
		if maxJitter < 1 {
			maxJitter = 1
		}
		offset := baseOffset + rng.Intn(maxJitter+1)
		if offset > daysInPeriod-1 {
			offset = daysInPeriod - 1
		}
		samples = append(samples, startDate.AddDate(0, 0, offset))
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Before(samples[j]) })
	return samples
}

// FetchAll fetches the target region and every adjacent region into the
// datastore. It records metadata about the fetch window afterwards.
func (f *Fetcher) FetchAll(ctx context.Context) error {
	targetCode := f.settings.Fetch.Region

	categories, err := f.loadCategories(ctx)
	if err != nil {
		// Without the taxonomy, category exclusions cannot be applied.
		// Fetch continues on raw records rather than failing outright.
		logger.Warn("taxonomy unavailable, category exclusions disabled", "error", err)
		categories = map[string]string{}
	}

	adjacent, err := f.resolveAdjacentRegions(ctx, targetCode)
	if err != nil {
		return err
	}

	if err := f.fetchRegion(ctx, targetCode, true, categories); err != nil {
		return err
	}

	for _, region := range adjacent {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.fetchRegion(ctx, region.Code, false, categories); err != nil {
			// A single failed neighbor degrades regional evidence but
			// does not abort the fetch.
			logger.Warn("failed to fetch adjacent region, continuing",
				"region", region.Code,
				"error", err)
		}
	}

	if err := f.store.SetMetadata(datastore.MetaTargetRegion, targetCode); err != nil {
		return err
	}
	if err := f.store.SetMetadata(datastore.MetaYearsSampled, fmt.Sprintf("%d", f.settings.Fetch.Years)); err != nil {
		return err
	}
	return f.store.SetMetadata(datastore.MetaFetchedAt, time.Now().UTC().Format(time.RFC3339))
}

// resolveAdjacentRegions returns the configured adjacency list, or discovers
// it through the API, falling back to the Durham defaults.
func (f *Fetcher) resolveAdjacentRegions(ctx context.Context, targetCode string) ([]ebird.AdjacentRegion, error) {
	if codes := f.settings.Fetch.AdjacentRegions; len(codes) > 0 {
		regions := make([]ebird.AdjacentRegion, 0, len(codes))
		for _, code := range codes {
			regions = append(regions, ebird.AdjacentRegion{Code: code})
		}
		return regions, nil
	}

	regions, err := f.client.GetAdjacentRegions(ctx, targetCode)
	if err == nil && len(regions) > 0 {
		return regions, nil
	}
	if errors.IsCategory(err, errors.CategoryConfiguration) {
		// Bad API key, nothing else will work either.
		return nil, err
	}

	logger.Warn("adjacent region discovery failed, using defaults",
		"region", targetCode,
		"error", err)
	return defaultAdjacentRegions, nil
}

// loadCategories builds a species code to taxonomic category map.
func (f *Fetcher) loadCategories(ctx context.Context) (map[string]string, error) {
	taxonomy, err := f.client.GetTaxonomy(ctx, "")
	if err != nil {
		return nil, err
	}
	categories := make(map[string]string, len(taxonomy))
	for i := range taxonomy {
		categories[taxonomy[i].SpeciesCode] = taxonomy[i].Category
	}
	return categories, nil
}

// fetchRegion samples historical dates for one region, aggregates the
// observations into per-month activity cells and writes them to the cache.
func (f *Fetcher) fetchRegion(ctx context.Context, regionCode string, isTarget bool, categories map[string]string) error {
	started := time.Now()
	logger.Info("fetching region",
		"region", regionCode,
		"target", isTarget,
		"years", f.settings.Fetch.Years)

	region := datastore.Region{
		Code:      regionCode,
		IsTarget:  isTarget,
		FetchedAt: time.Now().UTC(),
	}
	if info, err := f.client.GetRegionInfo(ctx, regionCode); err == nil {
		region.Name = info.Result
		region.MinLat = info.Bounds.MinLat
		region.MaxLat = info.Bounds.MaxLat
		region.MinLng = info.Bounds.MinLng
		region.MaxLng = info.Bounds.MaxLng
	} else {
		logger.Warn("region info unavailable", "region", regionCode, "error", err)
	}
	if err := f.store.SaveRegion(&region); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(sampleSeed(regionCode, f.settings.Fetch.Years)))
	dates := GenerateSampleDates(time.Now(), f.settings.Fetch.Years, f.settings.Fetch.SamplesPerYear, rng)

	agg := newActivityAggregator(regionCode, f.settings.Scoring.ExcludedCategories, categories)
	sampled := 0

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}

		obs, err := f.client.GetHistoricObservations(ctx, regionCode, date)
		if err != nil {
			// Dates with no data are expected, skip quietly.
			if !errors.IsCategory(err, errors.CategoryNotFound) {
				logger.Debug("historic observations unavailable",
					"region", regionCode,
					"date", date.Format("2006-01-02"),
					"error", err)
			}
			continue
		}
		agg.addObservations(date, obs)
		sampled++

		if stats, err := f.client.GetRegionStats(ctx, regionCode, date); err == nil {
			if err := f.store.SaveRegionStats(&datastore.RegionStats{
				RegionCode:      regionCode,
				Date:            date.Format("2006-01-02"),
				NumChecklists:   stats.NumChecklists,
				NumContributors: stats.NumContributors,
				NumSpecies:      stats.NumSpecies,
			}); err != nil {
				return err
			}
		}
	}

	// Checklist effort comes from the checklist feed. That feed only goes
	// back so far, but it is the one source with duration and distance.
	if lists, err := f.client.GetChecklistFeed(ctx, regionCode, 200); err == nil {
		agg.addChecklists(lists)
	} else {
		logger.Debug("checklist feed unavailable", "region", regionCode, "error", err)
	}

	rows := agg.rows()
	if err := f.store.ReplaceActivity(regionCode, rows); err != nil {
		return err
	}

	if f.metrics != nil {
		f.metrics.RecordRegionFetch(regionCode, time.Since(started).Seconds(), sampled, len(rows))
	}
	logger.Info("region fetched",
		"region", regionCode,
		"dates_sampled", sampled,
		"activity_rows", len(rows))
	return nil
}

// Close releases the fetcher's log file.
func Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing fetcher logger: %v", err)
		}
	}
}
