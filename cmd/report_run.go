package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ninetofiver/config"
	"ninetofiver/output"
	"ninetofiver/report"
)

var (
	reportParams []string
	reportOutput string
	reportFormat string
)

var reportRunCmd = &cobra.Command{
	Use:   "run <report>",
	Short: "Run a report and print or export its rows.",
	Long: `Run a report with the given filter parameters.

Parameters are passed as name=value; repeat a parameter for multiple choice
filters. Invalid parameters are reported per filter and nothing is run.`,
	Example: `
  # Print closed timesheets of 2026
  ninetofiver report run timesheet_overview --param status=closed --param year=2026

  # Export leave of one user since March
  ninetofiver report run user_leave_overview -p user=3 -p from_date=2026-03-01 --output ./leave.csv
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := report.Find(args[0])
		if err != nil {
			return err
		}
		values, err := parseReportParams(reportParams)
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

		query, err := set.Bind(cmd.Context(), values, store)
		if err != nil {
			var validationErr *report.ValidationError
			if errors.As(err, &validationErr) {
				printValidationError(os.Stderr, validationErr)
			}
			return err
		}

		result, err := store.RunReport(cmd.Context(), query)
		if err != nil {
			return err
		}

		if strings.TrimSpace(reportOutput) == "" {
			printReport(os.Stdout, result)
			return nil
		}
		if err := writeTable(reportOutput, reportFormat, output.ReportTable(result)); err != nil {
			return err
		}
		fmt.Printf("Export completed. Rows: %d, Report: %s, File: %s\n", len(result.Rows), result.Name, reportOutput)
		return nil
	},
}

func parseReportParams(params []string) (url.Values, error) {
	values := url.Values{}
	for _, param := range params {
		name, value, ok := strings.Cut(param, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q (expected name=value)", param)
		}
		values.Add(name, strings.TrimSpace(value))
	}
	return values, nil
}

func printValidationError(w io.Writer, err *report.ValidationError) {
	params := make([]string, 0, len(err.Fields))
	for param := range err.Fields {
		params = append(params, param)
	}
	sort.Strings(params)
	for _, param := range params {
		for _, message := range err.Fields[param] {
			invalidRow.Fprintf(w, "%s: %s\n", param, message)
		}
	}
}

func printReport(w io.Writer, result report.Result) {
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	fmt.Fprintf(w, "Rows: %d\n", len(result.Rows))
}

func init() {
	reportCmd.AddCommand(reportRunCmd)

	reportRunCmd.Flags().StringArrayVarP(&reportParams, "param", "p", nil, "Filter parameter name=value (repeatable)")
	reportRunCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Optional export file path")
	reportRunCmd.Flags().StringVarP(&reportFormat, "format", "f", "", "Export format: csv|excel (optional, inferred from output extension)")
}
