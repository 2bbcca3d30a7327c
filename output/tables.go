package output

import (
	"strconv"

	"ninetofiver/reconcile"
	"ninetofiver/report"
)

var resultHeaders = []string{"ID", "RedmineID", "Date", "Duration", "Contract", "Updated", "Valid", "InvalidReason", "Description"}

// ResultsTable renders reconciliation results one row per time entry.
func ResultsTable(results []reconcile.Result) Table {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			optionalID(result.ID),
			strconv.FormatInt(result.RedmineID, 10),
			result.Date.Format("2006-01-02"),
			formatHours(result.Duration),
			optionalID(result.ContractID),
			strconv.FormatBool(result.Updated),
			strconv.FormatBool(result.Status.IsValid()),
			result.Status.Reason(),
			result.Description,
		})
	}
	return Table{Headers: append([]string(nil), resultHeaders...), Rows: rows}
}

// ReportTable renders an executed report with its own columns.
func ReportTable(result report.Result) Table {
	rows := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, append([]string(nil), row...))
	}
	return Table{Headers: append([]string(nil), result.Columns...), Rows: rows}
}

func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func formatHours(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
