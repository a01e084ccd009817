package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birdtargets/bird-targets/cmd/demo"
	"github.com/birdtargets/bird-targets/cmd/exportcmd"
	"github.com/birdtargets/bird-targets/cmd/fetch"
	"github.com/birdtargets/bird-targets/cmd/run"
	"github.com/birdtargets/bird-targets/cmd/serve"
	"github.com/birdtargets/bird-targets/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bird-targets",
		Short: "Under-reported bird species discovery for Durham County, NC",
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		fetch.Command(settings),
		run.Command(settings),
		demo.Command(settings),
		exportcmd.Command(settings),
		serve.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}
		if err := conf.ValidateSettings(settings); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Output.Path, "out", viper.GetString("output.path"), "Output directory for artifacts")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
