// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "bird-targets")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/bird-targets.log")

	viper.SetDefault("fetch.region", "US-NC-063")
	viper.SetDefault("fetch.adjacentregions", []string{})
	viper.SetDefault("fetch.years", 5)
	viper.SetDefault("fetch.samplesperyear", 12)
	viper.SetDefault("fetch.ratelimitms", 500)
	viper.SetDefault("fetch.timeoutseconds", 30)
	viper.SetDefault("fetch.cachettlhours", 24)

	viper.SetDefault("scoring.observerweight", 0.7)
	viper.SetDefault("scoring.habitatweight", 0.3)
	viper.SetDefault("scoring.minadjacentregions", 3)
	viper.SetDefault("scoring.minadjacentobservations", 25)
	viper.SetDefault("scoring.confidencesaturation", 25)
	viper.SetDefault("scoring.mineffortmass", 0.01)
	viper.SetDefault("scoring.effort.checklistweight", 0.5)
	viper.SetDefault("scoring.effort.durationweight", 0.3)
	viper.SetDefault("scoring.effort.distanceweight", 0.2)
	viper.SetDefault("scoring.excludedspecies", []string{})
	viper.SetDefault("scoring.excludedcategories", []string{"spuh", "slash", "hybrid", "domestic", "form"})
	viper.SetDefault("scoring.seasonalityrules", "data/seasonality_rules.yaml")
	viper.SetDefault("scoring.habitatrules", "data/species_habitat_rules.yaml")
	viper.SetDefault("scoring.publiclands", "data/public_lands.geojson")

	viper.SetDefault("output.path", "output/")
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "cache/ebird_cache.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "birdtargets")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "birdtargets")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.debug", false)
}
