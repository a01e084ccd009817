// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the fetcher and the scoring pipeline need.
type Interface interface {
	Open() error
	Close() error

	SaveRegion(region *Region) error
	GetRegion(code string) (Region, error)
	GetTargetRegion() (Region, error)
	GetAdjacentRegions() ([]Region, error)

	ReplaceActivity(regionCode string, rows []SpeciesActivity) error
	GetActivity(regionCodes []string) ([]SpeciesActivity, error)

	SaveRegionStats(stats *RegionStats) error
	GetRegionStats(regionCode string) ([]RegionStats, error)

	SetMetadata(key, value string) error
	GetMetadata(key string) (string, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// createGormLogger configures a GORM logger writing to standard error. Debug
// mode lowers the level so every query is visible.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// performAutoMigration runs schema migration and stamps the schema version.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Region{}, &SpeciesActivity{}, &RegionStats{}, &Metadata{}); err != nil {
		return errors.Newf("failed to auto-migrate %s database: %w", dbType, err).
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Component("datastore").
			Build()
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	ds := &DataStore{DB: db}
	return ds.SetMetadata(MetaSchemaVersion, SchemaVersion)
}

// SaveRegion inserts or updates a region record keyed by its region code.
func (ds *DataStore) SaveRegion(region *Region) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "is_target", "min_lat", "max_lat", "min_lng", "max_lng", "fetched_at",
		}),
	}).Create(region).Error
	if err != nil {
		return errors.Newf("saving region %s: %w", region.Code, err).
			Category(errors.CategoryDatabase).
			Context("region", region.Code).
			Component("datastore").
			Build()
	}
	return nil
}

// GetRegion retrieves a region by code.
func (ds *DataStore) GetRegion(code string) (Region, error) {
	var region Region
	if ds.DB == nil {
		return region, errNotOpen()
	}
	err := ds.DB.Where("code = ?", code).First(&region).Error
	if err != nil {
		return region, wrapQueryErr(err, "region", code)
	}
	return region, nil
}

// GetTargetRegion retrieves the region flagged as the fetch target.
func (ds *DataStore) GetTargetRegion() (Region, error) {
	var region Region
	if ds.DB == nil {
		return region, errNotOpen()
	}
	err := ds.DB.Where("is_target = ?", true).First(&region).Error
	if err != nil {
		return region, wrapQueryErr(err, "target_region", "")
	}
	return region, nil
}

// GetAdjacentRegions retrieves all non-target regions, ordered by code.
func (ds *DataStore) GetAdjacentRegions() ([]Region, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var regions []Region
	err := ds.DB.Where("is_target = ?", false).Order("code").Find(&regions).Error
	if err != nil {
		return nil, wrapQueryErr(err, "adjacent_regions", "")
	}
	return regions, nil
}

// ReplaceActivity replaces all activity rows for a region in one transaction.
// A refetch always rewrites the full region so partial fetches never mix with
// older data.
func (ds *DataStore) ReplaceActivity(regionCode string, rows []SpeciesActivity) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("region_code = ?", regionCode).Delete(&SpeciesActivity{}).Error; err != nil {
			return fmt.Errorf("clearing activity for %s: %w", regionCode, err)
		}
		if len(rows) == 0 {
			return nil
		}
		// Batch inserts keep SQLite variable limits comfortable.
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("inserting activity for %s: %w", regionCode, err)
		}
		return nil
	})
}

// GetActivity retrieves activity rows for the given regions, ordered for
// deterministic consumption.
func (ds *DataStore) GetActivity(regionCodes []string) ([]SpeciesActivity, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var rows []SpeciesActivity
	query := ds.DB.Order("region_code, species_code, month")
	if len(regionCodes) > 0 {
		query = query.Where("region_code IN ?", regionCodes)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapQueryErr(err, "activity", "")
	}
	return rows, nil
}

// SaveRegionStats inserts or updates a stats record keyed by region and date.
func (ds *DataStore) SaveRegionStats(stats *RegionStats) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "region_code"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"num_checklists", "num_contributors", "num_species",
		}),
	}).Create(stats).Error
	if err != nil {
		return errors.Newf("saving region stats for %s on %s: %w", stats.RegionCode, stats.Date, err).
			Category(errors.CategoryDatabase).
			Context("region", stats.RegionCode).
			Component("datastore").
			Build()
	}
	return nil
}

// GetRegionStats retrieves all stats records for a region, oldest first.
func (ds *DataStore) GetRegionStats(regionCode string) ([]RegionStats, error) {
	if ds.DB == nil {
		return nil, errNotOpen()
	}
	var stats []RegionStats
	err := ds.DB.Where("region_code = ?", regionCode).Order("date").Find(&stats).Error
	if err != nil {
		return nil, wrapQueryErr(err, "region_stats", regionCode)
	}
	return stats, nil
}

// SetMetadata inserts or updates a metadata key.
func (ds *DataStore) SetMetadata(key, value string) error {
	if ds.DB == nil {
		return errNotOpen()
	}
	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Metadata{Key: key, Value: value}).Error
	if err != nil {
		return errors.Newf("saving metadata %s: %w", key, err).
			Category(errors.CategoryDatabase).
			Context("key", key).
			Component("datastore").
			Build()
	}
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (ds *DataStore) GetMetadata(key string) (string, error) {
	if ds.DB == nil {
		return "", errNotOpen()
	}
	var meta Metadata
	err := ds.DB.Where("key = ?", key).First(&meta).Error
	if err != nil {
		return "", wrapQueryErr(err, "metadata", key)
	}
	return meta.Value, nil
}

func errNotOpen() error {
	return errors.Newf("database connection is not initialized").
		Category(errors.CategoryDatabase).
		Component("datastore").
		Build()
}

func wrapQueryErr(err error, entity, key string) error {
	category := errors.CategoryDatabase
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = errors.CategoryNotFound
	}
	return errors.Newf("querying %s %q: %w", entity, key, err).
		Category(category).
		Context("entity", entity).
		Context("key", key).
		Component("datastore").
		Build()
}
