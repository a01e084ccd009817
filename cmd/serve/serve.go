package serve

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/observability"
	"github.com/birdtargets/bird-targets/internal/server"
)

// Command creates the serve command, which serves the exported artifacts
// over HTTP for the local map client.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local map server",
		Long:  "Serve the exported GeoJSON layers, ranked targets and species dossiers over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().IntVarP(&settings.Server.Port, "port", "p", viper.GetInt("server.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

func runServe(cmd *cobra.Command, settings *conf.Settings) error {
	layersPath := filepath.Join(settings.Output.Path, "layers")
	if _, err := os.Stat(layersPath); err != nil {
		fmt.Fprintf(os.Stderr, "Layers path does not exist: %s\n", layersPath)
		fmt.Fprintln(os.Stderr, "Run 'bird-targets run' or 'bird-targets export' first to generate layers.")
		return err
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	srv := server.New(settings, metrics)
	defer server.Close()

	fmt.Printf("Serving %s on http://localhost:%d\n", settings.Output.Path, settings.Server.Port)
	return srv.Start(cmd.Context())
}
