package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/redmine"
)

var redmineProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Redmine projects as selectable choices.",
	Long: `List all Redmine projects sorted by name.

A project id stored as a contract's Redmine id links every time entry booked on
that project (without a contract on its issue) to the contract.`,
	Example: `
  ninetofiver redmine projects
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		client, err := requireRedmineClient(cfg, log.Logger)
		if err != nil {
			return err
		}

		choices, err := redmine.ProjectChoices(cmd.Context(), client)
		if err != nil {
			return err
		}
		printChoices(os.Stdout, choices)
		return nil
	},
}

func init() {
	redmineCmd.AddCommand(redmineProjectsCmd)
}
