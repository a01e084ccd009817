// Package conf defines the settings structure for the bird-targets tool and
// the functions to load and persist it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogSettings controls the main application log file.
type LogSettings struct {
	Enabled bool   // true to enable main log file
	Path    string // path to main log file
}

// MainSettings are node level settings.
type MainSettings struct {
	Name string      // name of this analysis node, used to identify output
	Log  LogSettings // main log file settings
}

// FetchSettings control the eBird data fetch pathway.
type FetchSettings struct {
	Region          string   // target region code, e.g. US-NC-063
	AdjacentRegions []string // explicit adjacent region codes; empty to discover via the API
	Years           int      // years of historical data to sample
	SamplesPerYear  int      // sample dates per year
	APIKey          string   // eBird API key; EBIRD_API_KEY env var takes precedence
	RateLimitMS     int      // milliseconds between API requests
	TimeoutSeconds  int      // per-request timeout
	CacheTTLHours   int      // client response cache TTL
}

// EffortSignalSettings weight the three effort signals inside the composite
// effort mass. They are rescaled to sum to 1.0 at engine entry.
type EffortSignalSettings struct {
	ChecklistWeight float64
	DurationWeight  float64
	DistanceWeight  float64
}

// ScoringSettings configure the under-reported scoring engine.
type ScoringSettings struct {
	ObserverWeight          float64              // weight of the observer expectation signal
	HabitatWeight           float64              // weight of the habitat expectation signal
	MinAdjacentRegions      int                  // plausibility: minimum adjacent regions with presence
	MinAdjacentObservations int                  // plausibility: minimum total adjacent observations
	ConfidenceSaturation    int                  // checklist count at which confidence reaches 1.0
	MinEffortMass           float64              // cells below this mass are missing data
	Effort                  EffortSignalSettings // effort signal weighting
	ExcludedSpecies         []string             // taxonomy denylist, by species code
	ExcludedCategories      []string             // taxonomy categories dropped at fetch time
	SeasonalityRules        string               // path to seasonality rules YAML
	HabitatRules            string               // path to habitat rules YAML
	PublicLands             string               // path to public lands GeoJSON
}

// SQLiteSettings configure the SQLite cache store.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings configure the optional MySQL cache store.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings control where artifacts and the cache live.
type OutputSettings struct {
	Path   string // output directory for ranked CSV, layers and dossiers
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// ServerSettings configure the local map server.
type ServerSettings struct {
	Port  int
	Debug bool
}

// Settings is the full configuration tree.
type Settings struct {
	Debug bool // true to enable debug mode

	Main    MainSettings
	Fetch   FetchSettings
	Scoring ScoringSettings
	Output  OutputSettings
	Server  ServerSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and stores it as the current instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// EBIRD_API_KEY always takes precedence over the config file so the
	// key never has to be written to disk.
	if key := os.Getenv("EBIRD_API_KEY"); key != "" {
		settings.Fetch.APIKey = key
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// function defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns a list of default config paths for the current OS.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Local", "bird-targets"),
		}, nil
	default:
		return []string{
			filepath.Join(homeDir, ".config", "bird-targets"),
			"/etc/bird-targets",
			".",
		}, nil
	}
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
