package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configDeleteYes bool

var configDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the active configuration file.",
	Long: `Delete the configuration file currently loaded by ninetofiver.

The database configured in database.path is kept; use "ninetofiver delete" for
that. Unless --yes is given, an interactive prompt requires typing exactly "Y".`,
	Example: `
  # Delete active config
  ninetofiver config delete

  # Delete config at a custom path without prompting
  ninetofiver --configFile ./custom-ninetofiver.yaml config delete --yes
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.ConfigFileUsed()
		if path == "" {
			return errors.New("no configuration file loaded")
		}

		if !configDeleteYes {
			confirmed, err := confirmPrompt(promptInput, promptOutput, fmt.Sprintf("Delete configuration file %q?", path))
			if err != nil {
				return err
			}
			if !confirmed {
				return errors.New("delete aborted: confirmation was not 'Y'")
			}
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("delete configuration file: %w", err)
		}
		fmt.Printf("Configuration file deleted: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)

	configDeleteCmd.Flags().BoolVar(&configDeleteYes, "yes", false, "Skip the confirmation prompt")
}
