package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birdtargets/bird-targets/internal/analysis"
	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/observability"
)

// Command creates the run command, which scores cached eBird activity and
// writes the ranked CSV, GeoJSON layers and species dossiers.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score cached eBird data and write all artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().Float64Var(&settings.Scoring.ObserverWeight, "observer-weight", viper.GetFloat64("scoring.observerweight"), "Weight of the observer expectation signal")
	cmd.Flags().Float64Var(&settings.Scoring.HabitatWeight, "habitat-weight", viper.GetFloat64("scoring.habitatweight"), "Weight of the habitat expectation signal")
	cmd.Flags().StringVar(&settings.Scoring.HabitatRules, "habitat-rules", viper.GetString("scoring.habitatrules"), "Path to species habitat rules YAML")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

func runAnalysis(settings *conf.Settings) error {
	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	summary, err := analysis.RunFromCache(settings, metrics)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d species to %s (%d excluded)\n",
		summary.SpeciesRanked+summary.SpeciesExcluded, summary.RankedPath, summary.SpeciesExcluded)
	fmt.Printf("Exported %d GeoJSON layers and %d species dossiers\n",
		summary.LayersExported, summary.DossiersExported)
	for _, warning := range summary.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
	return nil
}
