// Package exportcmd implements the export subcommand. The package name
// avoids clashing with the internal export package.
package exportcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birdtargets/bird-targets/internal/analysis"
	"github.com/birdtargets/bird-targets/internal/conf"
)

// Command creates the export command, which regenerates the GeoJSON layers
// and species dossiers from the cache under the configured output path.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export GeoJSON layers and species dossiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := analysis.ExportFromCache(settings, nil)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d GeoJSON layers and %d species dossiers to %s\n",
				summary.LayersExported, summary.DossiersExported, settings.Output.Path)
			return nil
		},
	}
}
