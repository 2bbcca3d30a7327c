package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ninetofiver/config"
)

var (
	createDBPath     string
	createRedmineURL string
	createAPIKey     string
)

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a configuration file from the example template.",
	Long: `Create a new configuration file from the example template also used by "config edit".

Database path and Redmine connection can be filled in directly. The generated
file is validated before it is written. An existing file is never overwritten.`,
	Example: `
  # Create default config at $HOME/.ninetofiver.yaml
  ninetofiver config create

  # Create a config connected to Redmine
  ninetofiver config create --redmine-url https://redmine.example.com --api-key 0123abcd

  # Create a config next to a custom database
  ninetofiver --configFile ./team.yaml config create --db ./team.db
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return createConfigFile(os.Stdout, map[string]string{
			config.KeyDatabasePath:  createDBPath,
			config.KeyRedmineURL:    createRedmineURL,
			config.KeyRedmineAPIKey: createAPIKey,
		})
	},
}

func createConfigFile(w io.Writer, overrides map[string]string) error {
	path, err := configFilePath(cfgFile, viper.ConfigFileUsed())
	if err != nil {
		return err
	}

	created, err := writeConfigTemplate(path, overrides)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(w, "Config file already exists at: %s\n", path)
		return nil
	}

	fmt.Fprintf(w, "New config file created at: %s\n", path)
	if overrides[config.KeyRedmineURL] == "" || overrides[config.KeyRedmineAPIKey] == "" {
		fmt.Fprintf(w, "Redmine is not configured yet; set %s and %s to enable sync.\n", config.KeyRedmineURL, config.KeyRedmineAPIKey)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configCreateCmd)

	configCreateCmd.Flags().StringVar(&createDBPath, "db", "", "Database path written to database.path")
	configCreateCmd.Flags().StringVar(&createRedmineURL, "redmine-url", "", "Redmine base URL written to redmine.url")
	configCreateCmd.Flags().StringVar(&createAPIKey, "api-key", "", "Redmine API key written to redmine.api_key")
}
