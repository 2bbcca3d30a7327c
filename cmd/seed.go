package cmd

import (
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/seed"
)

var (
	seedDBPath       string
	seedEntities     int
	seedContracts    int
	seedPerformances int
	seedRandom       uint64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with test data.",
	Long: `Populate the local database with reference or bulk test data.

Only runs when debug is enabled in the configuration (debug: true or
NINETOFIVER_DEBUG=true).`,
	Example: `
  # Reference data: leave types, companies, locations, performance types, work schedules
  NINETOFIVER_DEBUG=true ninetofiver seed basic

  # Bulk data for performance testing
  NINETOFIVER_DEBUG=true ninetofiver seed performances --contracts 200 --performances 2000
`,
}

var seedBasicCmd = &cobra.Command{
	Use:   "basic",
	Short: "Populate reference tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		store, err := openStore(seedDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		summary, err := seed.NewPopulator(cfg.Debug, log.Logger, nil).PopulateBasic(store)
		if err != nil {
			return err
		}
		fmt.Printf(
			"Seed completed. Leave types: %d, Companies: %d, Locations: %d, Performance types: %d, Work schedules: %d\n",
			summary.LeaveTypes, summary.Companies, summary.Locations, summary.PerformanceTypes, summary.WorkSchedules,
		)
		return nil
	},
}

var seedPerformancesCmd = &cobra.Command{
	Use:   "performances",
	Short: "Populate users, contracts, timesheets and performances in bulk.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		store, err := openStore(seedDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var rng *rand.Rand
		if cmd.Flags().Changed("seed") {
			rng = rand.New(rand.NewPCG(seedRandom, seedRandom))
		}
		sizes := seed.Sizes{Entities: seedEntities, Contracts: seedContracts, Performances: seedPerformances}

		summary, err := seed.NewPopulator(cfg.Debug, log.Logger, nil).PopulatePerformance(store, sizes, rng)
		if err != nil {
			return err
		}
		fmt.Printf(
			"Seed completed. Users: %d, Companies: %d, Contracts: %d, Timesheets: %d, Performances: %d\n",
			summary.Users, summary.Companies, summary.Contracts, summary.Timesheets, summary.Performances,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedBasicCmd)
	seedCmd.AddCommand(seedPerformancesCmd)

	defaults := seed.DefaultSizes()
	seedCmd.PersistentFlags().StringVar(&seedDBPath, "db", "", "Path to local SQLite database (default: database.path)")
	seedPerformancesCmd.Flags().IntVar(&seedEntities, "entities", defaults.Entities, "Users, companies, customers, roles and contract groups to create")
	seedPerformancesCmd.Flags().IntVar(&seedContracts, "contracts", defaults.Contracts, "Contracts to create")
	seedPerformancesCmd.Flags().IntVar(&seedPerformances, "performances", defaults.Performances, "Performances to create")
	seedPerformancesCmd.Flags().Uint64Var(&seedRandom, "seed", 0, "Random seed for reproducible data")
}
