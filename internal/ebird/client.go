package ebird

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/errors"
	"github.com/birdtargets/bird-targets/internal/logging"
	"github.com/birdtargets/bird-targets/internal/observability/metrics"
)

// Package-level logger specific to ebird service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "ebird.log")
	initialLevel := slog.LevelDebug
	serviceLevelVar.Set(initialLevel)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "ebird", serviceLevelVar)
	if err != nil {
		// Fallback: log error to standard log and disable service logging
		log.Printf("FATAL: Failed to initialize ebird file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "ebird")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for interacting with the eBird API
type Client struct {
	config      Config
	httpClient  *http.Client
	cache       *cache.Cache
	rateLimiter *time.Ticker
	mu          sync.Mutex
	lastRequest time.Time
	debug       bool
	firstCallMu sync.Once
	promMetrics *metrics.FetchMetrics

	// Metrics
	metrics struct {
		apiCalls      int64
		cacheHits     int64
		cacheMisses   int64
		apiErrors     int64
		totalDuration time.Duration
		mu            sync.RWMutex
	}
}

// NewClient creates a new eBird API client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("eBird API key is required, set EBIRD_API_KEY or fetch.apikey").
			Category(errors.CategoryConfiguration).
			Component("ebird").
			Build()
	}

	// Use defaults for missing config values
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultConfig().CacheTTL
	}
	if config.RateLimitMS == 0 {
		config.RateLimitMS = DefaultConfig().RateLimitMS
	}

	settings := conf.GetSettings()
	debug := settings != nil && settings.Debug

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:       cache.New(config.CacheTTL, config.CacheTTL*2),
		rateLimiter: time.NewTicker(time.Duration(config.RateLimitMS) * time.Millisecond),
		debug:       debug,
	}

	logger.Info("eBird client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL,
		"rate_limit_ms", config.RateLimitMS,
		"debug", debug,
		"api_key_configured", config.APIKey != "")

	return client, nil
}

// Close cleans up client resources
func (c *Client) Close() {
	c.rateLimiter.Stop()
	logger.Info("Closing eBird client")

	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing eBird logger: %v", err)
		}
	}
}

// GetRegionInfo retrieves the name and bounding box of a region.
func (c *Client) GetRegionInfo(ctx context.Context, regionCode string) (*RegionInfo, error) {
	cacheKey := fmt.Sprintf("region_info:%s", regionCode)
	if cached, found := c.cache.Get(cacheKey); found {
		if info, ok := cached.(*RegionInfo); ok {
			c.recordCacheHit()
			return info, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/ref/region/info/%s", c.config.BaseURL, regionCode)
	var info RegionInfo
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &info); err != nil {
		return nil, err
	}
	if info.Code == "" {
		info.Code = regionCode
	}

	c.cache.Set(cacheKey, &info, cache.DefaultExpiration)
	return &info, nil
}

// GetAdjacentRegions retrieves the regions bordering the given region.
func (c *Client) GetAdjacentRegions(ctx context.Context, regionCode string) ([]AdjacentRegion, error) {
	cacheKey := fmt.Sprintf("adjacent:%s", regionCode)
	if cached, found := c.cache.Get(cacheKey); found {
		if regions, ok := cached.([]AdjacentRegion); ok {
			c.recordCacheHit()
			return regions, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/ref/adjacent/%s", c.config.BaseURL, regionCode)
	var regions []AdjacentRegion
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &regions); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, regions, cache.DefaultExpiration)

	logger.Debug("adjacent regions fetched",
		"region", regionCode,
		"count", len(regions))

	return regions, nil
}

// GetSpeciesList retrieves all species codes ever reported in a region.
func (c *Client) GetSpeciesList(ctx context.Context, regionCode string) ([]string, error) {
	cacheKey := fmt.Sprintf("spplist:%s", regionCode)
	if cached, found := c.cache.Get(cacheKey); found {
		if list, ok := cached.([]string); ok {
			c.recordCacheHit()
			return list, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/product/spplist/%s", c.config.BaseURL, regionCode)
	var list []string
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &list); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, list, cache.DefaultExpiration)
	return list, nil
}

// GetTaxonomy retrieves the complete eBird taxonomy. Used to resolve
// taxonomic categories so spuh/slash/hybrid records can be dropped.
func (c *Client) GetTaxonomy(ctx context.Context, locale string) ([]TaxonomyEntry, error) {
	cacheKey := fmt.Sprintf("taxonomy:%s", locale)
	if cached, found := c.cache.Get(cacheKey); found {
		if taxonomy, ok := cached.([]TaxonomyEntry); ok {
			c.recordCacheHit()
			return taxonomy, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	// eBird API defaults to CSV, we need to specify fmt=json
	url := fmt.Sprintf("%s/ref/taxonomy/ebird?fmt=json", c.config.BaseURL)
	if locale != "" {
		url = fmt.Sprintf("%s&locale=%s", url, locale)
	}

	var taxonomy []TaxonomyEntry
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &taxonomy); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, taxonomy, cache.DefaultExpiration)

	logger.Debug("eBird taxonomy cached",
		"cache_key", cacheKey,
		"entries", len(taxonomy),
		"locale", locale)

	return taxonomy, nil
}

// GetRecentObservations retrieves recent observations for a region, up to 30
// days back.
func (c *Client) GetRecentObservations(ctx context.Context, regionCode string, back int) ([]Observation, error) {
	cacheKey := fmt.Sprintf("recent:%s:%d", regionCode, back)
	if cached, found := c.cache.Get(cacheKey); found {
		if obs, ok := cached.([]Observation); ok {
			c.recordCacheHit()
			return obs, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/data/obs/%s/recent", c.config.BaseURL, regionCode)
	if back > 0 {
		url = fmt.Sprintf("%s?back=%d", url, back)
	}

	var obs []Observation
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &obs); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, obs, cache.DefaultExpiration)
	return obs, nil
}

// GetHistoricObservations retrieves all observations reported in a region on
// a specific date.
func (c *Client) GetHistoricObservations(ctx context.Context, regionCode string, date time.Time) ([]Observation, error) {
	cacheKey := fmt.Sprintf("historic:%s:%s", regionCode, date.Format("2006-01-02"))
	if cached, found := c.cache.Get(cacheKey); found {
		if obs, ok := cached.([]Observation); ok {
			c.recordCacheHit()
			return obs, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/data/obs/%s/historic/%d/%d/%d",
		c.config.BaseURL, regionCode, date.Year(), int(date.Month()), date.Day())

	var obs []Observation
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &obs); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, obs, cache.DefaultExpiration)
	return obs, nil
}

// GetRegionStats retrieves checklist and contributor counts for a region on
// a specific date.
func (c *Client) GetRegionStats(ctx context.Context, regionCode string, date time.Time) (*RegionStats, error) {
	cacheKey := fmt.Sprintf("stats:%s:%s", regionCode, date.Format("2006-01-02"))
	if cached, found := c.cache.Get(cacheKey); found {
		if stats, ok := cached.(*RegionStats); ok {
			c.recordCacheHit()
			return stats, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/product/stats/%s/%d/%d/%d",
		c.config.BaseURL, regionCode, date.Year(), int(date.Month()), date.Day())

	var stats RegionStats
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &stats); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, &stats, cache.DefaultExpiration)
	return &stats, nil
}

// GetChecklistFeed retrieves recent checklists for a region, newest first.
func (c *Client) GetChecklistFeed(ctx context.Context, regionCode string, maxResults int) ([]ChecklistSummary, error) {
	cacheKey := fmt.Sprintf("lists:%s:%d", regionCode, maxResults)
	if cached, found := c.cache.Get(cacheKey); found {
		if lists, ok := cached.([]ChecklistSummary); ok {
			c.recordCacheHit()
			return lists, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/product/lists/%s", c.config.BaseURL, regionCode)
	if maxResults > 0 {
		url = fmt.Sprintf("%s?maxResults=%d", url, maxResults)
	}

	var lists []ChecklistSummary
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &lists); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, lists, cache.DefaultExpiration)
	return lists, nil
}

// GetTop100 retrieves the top contributors for a region on a specific date.
func (c *Client) GetTop100(ctx context.Context, regionCode string, date time.Time) ([]Top100Entry, error) {
	cacheKey := fmt.Sprintf("top100:%s:%s", regionCode, date.Format("2006-01-02"))
	if cached, found := c.cache.Get(cacheKey); found {
		if entries, ok := cached.([]Top100Entry); ok {
			c.recordCacheHit()
			return entries, nil
		}
	}
	c.recordCacheMiss()

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/product/top100/%s/%d/%d/%d",
		c.config.BaseURL, regionCode, date.Year(), int(date.Month()), date.Day())

	var entries []Top100Entry
	if err := c.doRequestWithRetry(reqCtx, http.MethodGet, url, &entries); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, entries, cache.DefaultExpiration)
	return entries, nil
}

// SetMetrics attaches Prometheus fetch metrics to the client. Optional;
// the internal counters exposed by GetMetrics work either way.
func (c *Client) SetMetrics(m *metrics.FetchMetrics) {
	c.promMetrics = m
}

// endpointLabel reduces a request URL to a low-cardinality endpoint label,
// the first two path segments under the API base.
func endpointLabel(url string) string {
	path := strings.TrimPrefix(url, "https://")
	if idx := strings.Index(path, "/v2/"); idx >= 0 {
		path = path[idx+len("/v2/"):]
	}
	parts := strings.SplitN(path, "/", 3)
	if len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return path
}

func (c *Client) recordCacheHit() {
	c.metrics.mu.Lock()
	c.metrics.cacheHits++
	c.metrics.mu.Unlock()
	if c.promMetrics != nil {
		c.promMetrics.RecordCacheResult(true)
	}
}

func (c *Client) recordCacheMiss() {
	c.metrics.mu.Lock()
	c.metrics.cacheMisses++
	c.metrics.mu.Unlock()
	if c.promMetrics != nil {
		c.promMetrics.RecordCacheResult(false)
	}
}

// doRequest performs an HTTP request with rate limiting and auth
func (c *Client) doRequest(ctx context.Context, method, url string, result any) error {
	// Rate limiting
	c.mu.Lock()
	select {
	case <-c.rateLimiter.C:
	case <-ctx.Done():
		c.mu.Unlock()
		return ctx.Err()
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	start := time.Now()

	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		c.recordAPIError(url, string(errors.CategoryNetwork))
		return errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("method", method).
			Context("url", url).
			Component("ebird").
			Build()
	}

	req.Header.Set("X-eBirdApiToken", c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	if c.debug {
		logger.Debug("eBird API request",
			"method", method,
			"url", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordAPIError(url, string(errors.CategoryNetwork))
		logger.Error("eBird API request failed",
			"error", err,
			"method", method,
			"url", url)
		return errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("method", method).
			Context("url", url).
			Component("ebird").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", url).
			Context("status_code", resp.StatusCode).
			Component("ebird").
			Build()
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusOK && !strings.Contains(strings.ToLower(contentType), "application/json") {
		responsePreview := string(bodyBytes)
		if len(responsePreview) > 500 {
			responsePreview = responsePreview[:500] + "..."
		}
		logger.Error("eBird API returned non-JSON response",
			"status_code", resp.StatusCode,
			"content_type", contentType,
			"url", url,
			"response_preview", responsePreview)
		return errors.Newf("eBird API returned non-JSON response (Content-Type: %s)", contentType).
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Context("content_type", contentType).
			Context("url", url).
			Component("ebird").
			Build()
	}

	if resp.StatusCode >= 400 {
		c.recordAPIError(url, string(getErrorCategory(resp.StatusCode)))

		var apiErr Error
		if err := json.Unmarshal(bodyBytes, &apiErr); err != nil || apiErr.Detail == "" {
			apiErr.Detail = string(bodyBytes)
		}
		apiErr.Status = resp.StatusCode

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			logger.Error("eBird API authentication failed",
				"status_code", resp.StatusCode,
				"url", url,
				"message", "check your eBird API key")
		} else {
			logger.Warn("eBird API error response",
				"status_code", resp.StatusCode,
				"error_detail", apiErr.Detail,
				"url", url)
		}

		return errors.Newf("eBird API error (status %d): %s", resp.StatusCode, apiErr.Detail).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("url", url).
			Component("ebird").
			Build()
	}

	if result != nil {
		if err := json.Unmarshal(bodyBytes, result); err != nil {
			responsePreview := string(bodyBytes)
			if len(responsePreview) > 500 {
				responsePreview = responsePreview[:500] + "..."
			}
			logger.Error("Failed to parse eBird API response",
				"error", err,
				"url", url,
				"response_size", len(bodyBytes),
				"response_preview", responsePreview)
			return errors.Newf("failed to parse response: %w", err).
				Category(errors.CategoryFileParsing).
				Context("url", url).
				Context("response_size", len(bodyBytes)).
				Component("ebird").
				Build()
		}
	}

	duration := time.Since(start)

	if resp.StatusCode == http.StatusOK {
		// Log first successful API call to confirm authentication
		c.firstCallMu.Do(func() {
			logger.Info("eBird API authentication successful",
				"first_successful_request", url)
		})

		if c.debug {
			logger.Debug("eBird API response",
				"status_code", resp.StatusCode,
				"url", url,
				"duration_ms", duration.Milliseconds(),
				"response_size", len(bodyBytes))
		}
	}

	c.metrics.mu.Lock()
	c.metrics.totalDuration += duration
	c.metrics.mu.Unlock()
	if c.promMetrics != nil {
		c.promMetrics.RecordAPIRequest(endpointLabel(url), duration.Seconds())
	}

	return nil
}

func (c *Client) recordAPIError(url, category string) {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
	if c.promMetrics != nil {
		c.promMetrics.RecordAPIError(endpointLabel(url), category)
	}
}

// doRequestWithRetry wraps doRequest with retry logic for transient failures
func (c *Client) doRequestWithRetry(ctx context.Context, method, url string, result any) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.doRequest(ctx, method, url, result)
		if err == nil {
			return nil
		}

		// Check if error is retryable
		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			if enhancedErr.Category == errors.CategoryConfiguration ||
				enhancedErr.Category == errors.CategoryNotFound ||
				enhancedErr.Category == errors.CategoryValidation {
				return err
			}

			if statusCode, ok := enhancedErr.Context["status_code"].(int); ok {
				// Don't retry client errors except 429
				if statusCode >= 400 && statusCode < 500 && statusCode != 429 {
					return err
				}
			}
		}

		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		delay := time.Duration(attempt+1) * 500 * time.Millisecond
		if attempt < maxRetries-1 {
			logger.Warn("eBird API request failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"delay_ms", delay.Milliseconds(),
				"url", url,
				"error", err.Error())

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// ClearCache clears all cached data
func (c *Client) ClearCache() {
	c.cache.Flush()
	logger.Info("eBird cache cleared")
}

// Metrics represents eBird client performance metrics
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// GetMetrics returns current client metrics
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()

	metrics := Metrics{
		APICalls:      c.metrics.apiCalls,
		CacheHits:     c.metrics.cacheHits,
		CacheMisses:   c.metrics.cacheMisses,
		APIErrors:     c.metrics.apiErrors,
		TotalDuration: c.metrics.totalDuration,
	}

	if metrics.APICalls > 0 {
		metrics.AvgDuration = time.Duration(int64(metrics.TotalDuration) / metrics.APICalls)
	}

	return metrics
}

// getErrorCategory determines the appropriate error category based on HTTP status code
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case 401, 403:
		// Authentication errors need user attention
		return errors.CategoryConfiguration
	case 429:
		return errors.CategoryLimit
	case 404:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}
