package demo

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birdtargets/bird-targets/internal/analysis"
	"github.com/birdtargets/bird-targets/internal/conf"
)

// fixturesPath holds the fixtures flag value
var fixturesPath string

// Command creates the demo command, which scores bundled fixture data
// instead of the live cache. Useful for trying the pipeline without an
// eBird API key.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the scoring pipeline on fixture data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(fixturesPath); err != nil {
				return fmt.Errorf("fixtures path does not exist: %s", fixturesPath)
			}
			summary, err := analysis.RunDemo(settings, nil, fixturesPath, settings.Output.Path)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d species to %s (%d excluded)\n",
				summary.SpeciesRanked+summary.SpeciesExcluded, summary.RankedPath, summary.SpeciesExcluded)
			fmt.Printf("Exported %d GeoJSON layers and %d species dossiers\n",
				summary.LayersExported, summary.DossiersExported)
			return nil
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "Path to fixtures directory")
	cmd.Flags().Float64Var(&settings.Scoring.ObserverWeight, "observer-weight", viper.GetFloat64("scoring.observerweight"), "Weight of the observer expectation signal")
	cmd.Flags().Float64Var(&settings.Scoring.HabitatWeight, "habitat-weight", viper.GetFloat64("scoring.habitatweight"), "Weight of the habitat expectation signal")
	cmd.Flags().StringVar(&settings.Scoring.HabitatRules, "habitat-rules", viper.GetString("scoring.habitatrules"), "Path to species habitat rules YAML")

	if err := cmd.MarkFlagRequired("fixtures"); err != nil {
		return fmt.Errorf("error marking flag required: %v", err)
	}

	return nil
}
