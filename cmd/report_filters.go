package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/report"
)

var reportFiltersCmd = &cobra.Command{
	Use:   "filters <report>",
	Short: "Show the filter parameters of a report.",
	Long: `Show every filter parameter of a report with its kind, lookup and choices.

Choices of model backed filters are loaded from the local database.`,
	Example: `
  ninetofiver report filters user_leave_overview
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := report.Find(args[0])
		if err != nil {
			return err
		}

		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		store, err := openStore(reportDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		filters, err := set.Describe(cmd.Context(), store)
		if err != nil {
			return err
		}
		printFilters(os.Stdout, set, filters)
		return nil
	},
}

func printFilters(w io.Writer, set report.FilterSet, filters []report.Filter) {
	fmt.Fprintf(w, "%s (%s)\n", set.Title, set.Name)
	for _, filter := range filters {
		fmt.Fprintf(w, "  %s: %s [%s, %s]", filter.Param, filter.Label, filter.Kind, filter.Lookup)
		if filter.Initial != "" {
			fmt.Fprintf(w, " initial=%s", filter.Initial)
		}
		fmt.Fprintln(w)
		if len(filter.Choices) == 0 {
			continue
		}
		choices := make([]string, 0, len(filter.Choices))
		for _, choice := range filter.Choices {
			choices = append(choices, fmt.Sprintf("%s=%s", choice.Value, choice.Label))
		}
		fmt.Fprintf(w, "      %s\n", strings.Join(choices, ", "))
	}
}

func init() {
	reportCmd.AddCommand(reportFiltersCmd)
}
