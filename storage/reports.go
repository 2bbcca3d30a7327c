package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ninetofiver/report"
)

type baseQuery struct {
	selectSQL string
	where     []string
	orderBy   string
}

func contractBase(kind string) baseQuery {
	return baseQuery{
		selectSQL: `
SELECT
	c.id AS id,
	c.name AS name,
	co.name AS company,
	cust.name AS customer,
	c.starts_at AS starts_at,
	c.ends_at AS ends_at,
	c.active AS active
FROM contracts c
JOIN companies co ON co.id = c.company_id
JOIN companies cust ON cust.id = c.customer_id`,
		where:   []string{"c.kind = '" + kind + "'"},
		orderBy: "c.ends_at, c.name",
	}
}

var reportBases = map[report.Model]baseQuery{
	report.ModelTimesheet: {
		selectSQL: `
SELECT
	t.id AS id,
	u.username AS user,
	t.year AS year,
	t.month AS month,
	t.status AS status,
	(SELECT COALESCE(SUM(p.duration), 0) FROM performances p WHERE p.timesheet_id = t.id) AS hours
FROM timesheets t
JOIN users u ON u.id = t.user_id`,
		orderBy: "t.year, t.month, u.username",
	},
	report.ModelLeaveDate: {
		selectSQL: `
SELECT
	ld.id AS id,
	u.username AS user,
	lt.name AS leave_type,
	l.status AS status,
	ld.starts_at AS starts_at,
	ld.ends_at AS ends_at
FROM leave_dates ld
JOIN leaves l ON l.id = ld.leave_id
JOIN leave_types lt ON lt.id = l.leave_type_id
JOIN users u ON u.id = l.user_id`,
		orderBy: "ld.starts_at DESC",
	},
	report.ModelUser: {
		selectSQL: `
SELECT
	u.id AS id,
	u.username AS username,
	u.first_name AS first_name,
	u.last_name AS last_name,
	u.email AS email
FROM users u`,
		where:   []string{"u.is_active = 1"},
		orderBy: "u.username",
	},
	report.ModelConsultancyContract: contractBase("consultancycontract"),
	report.ModelProjectContract:     contractBase("projectcontract"),
	report.ModelSupportContract:     contractBase("supportcontract"),
	report.ModelTraining: {
		selectSQL: `
SELECT
	tr.id AS id,
	u.username AS user,
	tr.name AS name,
	tr.starts_at AS starts_at,
	tr.ends_at AS ends_at
FROM trainings tr
JOIN users u ON u.id = tr.user_id`,
		orderBy: "tr.ends_at, u.username",
	},
}

var choiceQueries = map[string]string{
	report.SourceActiveUsers:            `SELECT id, username FROM users WHERE is_active = 1 ORDER BY username;`,
	report.SourceGroups:                 `SELECT id, name FROM auth_groups ORDER BY name;`,
	report.SourceCompanies:              `SELECT id, name FROM companies ORDER BY name;`,
	report.SourceInternalCompanies:      `SELECT id, name FROM companies WHERE internal = 1 ORDER BY name;`,
	report.SourceContractGroups:         `SELECT id, name FROM contract_groups ORDER BY name;`,
	report.SourceActiveContracts:        `SELECT id, name FROM contracts WHERE active = 1 ORDER BY name;`,
	report.SourceActiveProjectContracts: `SELECT id, name FROM contracts WHERE active = 1 AND kind = 'projectcontract' ORDER BY name;`,
	report.SourceTimesheetYears:         `SELECT DISTINCT year, year FROM timesheets ORDER BY year;`,
	report.SourceTimesheetMonths:        `SELECT DISTINCT month, month FROM timesheets ORDER BY month;`,
}

// ReportChoices lists the selectable values of a report choice source.
func (s *SQLiteStore) ReportChoices(ctx context.Context, source string) ([]report.Choice, error) {
	query, ok := choiceQueries[source]
	if !ok {
		return nil, fmt.Errorf("unknown choice source %q", source)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s choices: %w", source, err)
	}
	defer rows.Close()

	choices := make([]report.Choice, 0, 32)
	for rows.Next() {
		var (
			value int64
			label string
		)
		if err := rows.Scan(&value, &label); err != nil {
			return nil, fmt.Errorf("scan %s choice: %w", source, err)
		}
		choices = append(choices, report.Choice{Value: strconv.FormatInt(value, 10), Label: label})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s choices: %w", source, err)
	}
	return choices, nil
}

// RunReport executes a bound report query against the base rows of its model.
func (s *SQLiteStore) RunReport(ctx context.Context, query report.Query) (report.Result, error) {
	base, ok := reportBases[query.Set.Model]
	if !ok {
		return report.Result{}, fmt.Errorf("no base query for report model %q", query.Set.Model)
	}

	selectSQL := strings.TrimSpace(base.selectSQL)
	if query.Distinct {
		selectSQL = "SELECT DISTINCT" + strings.TrimPrefix(selectSQL, "SELECT")
	}

	conditions := append(append([]string(nil), base.where...), query.Clauses...)
	var sqlText strings.Builder
	sqlText.WriteString(selectSQL)
	if len(conditions) > 0 {
		sqlText.WriteString("\nWHERE ")
		sqlText.WriteString(strings.Join(conditions, "\n\tAND "))
	}
	if base.orderBy != "" {
		sqlText.WriteString("\nORDER BY ")
		sqlText.WriteString(base.orderBy)
	}
	sqlText.WriteString(";")

	rows, err := s.db.QueryContext(ctx, sqlText.String(), query.Args...)
	if err != nil {
		return report.Result{}, fmt.Errorf("run report %s: %w", query.Set.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return report.Result{}, fmt.Errorf("read report columns: %w", err)
	}

	result := report.Result{Name: query.Set.Name, Columns: columns, Rows: make([][]string, 0, 64)}
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return report.Result{}, fmt.Errorf("scan report row: %w", err)
		}

		row := make([]string, len(columns))
		for i, value := range values {
			row[i] = renderValue(value)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return report.Result{}, fmt.Errorf("iterate report rows: %w", err)
	}
	return result, nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(datetimeLayout)
	default:
		return fmt.Sprint(v)
	}
}
