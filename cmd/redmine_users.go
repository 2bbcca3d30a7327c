package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/redmine"
)

var redmineUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List Redmine users as selectable choices.",
	Long: `List all Redmine users sorted by label ("First Last [login, mail]").

The ids are the values to store as a local user's Redmine id.`,
	Example: `
  ninetofiver redmine users
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

		choices, err := redmine.UserChoices(cmd.Context(), client)
		if err != nil {
			return err
		}
		printChoices(os.Stdout, choices)
		return nil
	},
}

func printChoices(w io.Writer, choices []redmine.Choice) {
	for _, choice := range choices {
		if choice.ID == nil {
			continue
		}
		fmt.Fprintf(w, "%8d  %s\n", *choice.ID, choice.Label)
	}
}

func init() {
	redmineCmd.AddCommand(redmineUsersCmd)
}
