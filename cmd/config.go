package cmd

import "github.com/spf13/cobra"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ninetofiver configuration file values.",
	Long: `Create, edit, display, and delete the ninetofiver configuration file.

The configuration stores application-wide values:
- database.path
- redmine.url / redmine.api_key / redmine.issue_contract_field
- log.level / log.format
- server.port
- feeds.leave_link
- debug`,
	Example: `
  # Create default config in $HOME/.ninetofiver.yaml
  ninetofiver config create

  # Show active config and source file
  ninetofiver config show

  # Open active config in editor (creates example if missing)
  ninetofiver config edit

  # Delete active config file
  ninetofiver config delete
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
