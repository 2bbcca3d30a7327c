package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/reconcile"
	"ninetofiver/redmine"
)

var redmineIssuesUser string

var redmineIssuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List Redmine issues assigned to a local user.",
	Long: `List the open Redmine issues assigned to a local user, together with the
contract id carried by the issue's own contract custom field.

The user is given by username or id. Users without a stored Redmine id are
matched by username when they have an e-mail address.`,
	Example: `
  ninetofiver redmine issues --user jdoe
  ninetofiver redmine issues --user 12
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

		store, err := openStore(redmineDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := findUser(store, redmineIssuesUser)
		if err != nil {
			return err
		}

		service := reconcile.NewService(reconcile.Options{
			Client:       client,
			Contracts:    store,
			Performances: store,
			Resolver:     resolverOptions(cfg),
			Logger:       log.Logger,
		})
		issues, err := service.UserIssues(cmd.Context(), user)
		if err != nil {
			return err
		}

		printIssues(os.Stdout, reconcile.NewResolver(resolverOptions(cfg), log.Logger), issues)
		fmt.Printf("Issues assigned to %s: %d\n", user.Username, len(issues))
		return nil
	},
}

func printIssues(w io.Writer, resolver *reconcile.Resolver, issues []redmine.Issue) {
	for _, issue := range issues {
		contract := "-"
		if id, ok := resolver.IssueContract(issue); ok {
			contract = fmt.Sprintf("%d", id)
		}
		fmt.Fprintf(w, "#%-7d [%s] %s (contract: %s)\n", issue.ID, issue.Project.Name, issue.Subject, contract)
	}
}

func init() {
	redmineCmd.AddCommand(redmineIssuesCmd)

	redmineIssuesCmd.Flags().StringVarP(&redmineIssuesUser, "user", "u", "", "Local username or user id")
	_ = redmineIssuesCmd.MarkFlagRequired("user")
}
