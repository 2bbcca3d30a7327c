/*
Copyright © 2025 riad@rsworld.eu

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ninetofiver/config"
	"ninetofiver/internal/logger"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ninetofiver",
	Short: "Reconcile Redmine time entries with contracts, run reports and serve leave feeds.",
	Long: `
**********************************************
*              NINE TO FIVER                 *
**********************************************

This CLI keeps a local SQLite database of users, contracts, timesheets and leave,
reconciles Redmine time entries against the contracts each user may book on,
runs the admin reports and serves the leave calendar feed.
`,
	Example: `
  # Create configuration file
  ninetofiver config create

  # Preview today's Redmine time entries of one user
  ninetofiver redmine sync --user jdoe

  # Import last week's entries of every active user
  ninetofiver redmine sync --all --from "last monday" --to yesterday --apply

  # Run a report and export it to Excel
  ninetofiver report run timesheet_overview --param status=closed --output ./closed.xlsx

  # Write the leave calendar
  ninetofiver feed leave --output ./leave.ics

  # Start the local API
  ninetofiver serve
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := viper.GetString(config.KeyLogLevel)
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		log.Logger = logger.New(level, viper.GetString(config.KeyLogFormat), os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefaults()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "configFile", "", "Config file override (default discovery: $HOME/.ninetofiver.yaml, then ./.ninetofiver.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug|info|warn|error")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ninetofiver")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Create one first with: ninetofiver config create")
	}
}
