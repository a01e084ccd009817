package fetch

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/birdtargets/bird-targets/internal/conf"
	"github.com/birdtargets/bird-targets/internal/datastore"
	"github.com/birdtargets/bird-targets/internal/ebird"
	"github.com/birdtargets/bird-targets/internal/fetcher"
	"github.com/birdtargets/bird-targets/internal/observability"
)

// Command creates the fetch command, which samples historical eBird data
// for the target and adjacent regions and writes it to the local cache.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch eBird data and cache it locally",
		Long:  "Sample historical eBird observations for the target region and its neighbors and write the aggregated activity to the local cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Fetch.Region, "region", viper.GetString("fetch.region"), "Target region code, e.g. US-NC-063")
	cmd.Flags().IntVar(&settings.Fetch.Years, "years", viper.GetInt("fetch.years"), "Years of historical data to sample")
	cmd.Flags().IntVar(&settings.Fetch.SamplesPerYear, "samples-per-year", viper.GetInt("fetch.samplesperyear"), "Sample dates per year")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

func runFetch(cmd *cobra.Command, settings *conf.Settings) error {
	client, err := ebird.NewClient(ebird.Config{
		APIKey:      settings.Fetch.APIKey,
		RateLimitMS: settings.Fetch.RateLimitMS,
		Timeout:     time.Duration(settings.Fetch.TimeoutSeconds) * time.Second,
		CacheTTL:    time.Duration(settings.Fetch.CacheTTLHours) * time.Hour,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Printf("Fetching eBird data for %s over the last %d years...\n",
		settings.Fetch.Region, settings.Fetch.Years)

	f := fetcher.New(client, store, settings)
	if m, err := observability.NewMetrics(); err == nil {
		client.SetMetrics(m.Fetch)
		f.SetMetrics(m.Fetch)
	}
	if err := f.FetchAll(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Fetch complete!")
	return nil
}
