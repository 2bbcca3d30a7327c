package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ninetofiver/report"
)

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available reports.",
	Example: `
  ninetofiver report list
`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, set := range report.Sets() {
			fmt.Printf("%-40s %s\n", set.Name, set.Title)
		}
	},
}

func init() {
	reportCmd.AddCommand(reportListCmd)
}
