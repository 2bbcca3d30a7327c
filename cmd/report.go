package cmd

import "github.com/spf13/cobra"

var reportDBPath string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List and run the admin reports.",
	Long: `Reports are named filter sets over timesheets, leave, users and contracts.

Each report accepts its own filter parameters; "report filters <name>" lists them
together with their allowed choices.`,
	Example: `
  # List available reports
  ninetofiver report list

  # Show the filters of one report
  ninetofiver report filters timesheet_contract_overview

  # Run a report with filters and export it
  ninetofiver report run timesheet_contract_overview --param year=2026 --param contract=4 --output ./contract.xlsx
`,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.PersistentFlags().StringVar(&reportDBPath, "db", "", "Path to local SQLite database (default: database.path)")
}
