package cmd

import (
	"github.com/spf13/cobra"
)

var redmineDBPath string

var redmineCmd = &cobra.Command{
	Use:   "redmine",
	Short: "Inspect Redmine and reconcile its time entries.",
	Long: `Read-only access to the configured Redmine instance.

Requires redmine.url and redmine.api_key in the configuration (or the
NINETOFIVER_REDMINE_URL / NINETOFIVER_REDMINE_API_KEY environment variables).`,
	Example: `
  # List Redmine users and projects
  ninetofiver redmine users
  ninetofiver redmine projects

  # Show issues assigned to a local user
  ninetofiver redmine issues --user jdoe

  # Reconcile time entries of every active user for a week and import them
  ninetofiver redmine sync --all --from 2026-03-09 --to 2026-03-13 --apply
`,
}

func init() {
	rootCmd.AddCommand(redmineCmd)

	redmineCmd.PersistentFlags().StringVar(&redmineDBPath, "db", "", "Path to local SQLite database (default: database.path)")
}
