package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"ninetofiver/model"
)

// RedminePerformances returns the performances of user imported from the
// given Redmine time entries, keyed by time entry id.
func (s *SQLiteStore) RedminePerformances(userID int64, redmineIDs []int64) (map[int64]model.ImportedPerformance, error) {
	out := make(map[int64]model.ImportedPerformance)
	if len(redmineIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(redmineIDs)+1)
	args = append(args, userID)
	for _, id := range redmineIDs {
		args = append(args, strconv.FormatInt(id, 10))
	}

	query := `
SELECT p.id, p.redmine_id, p.date, p.duration, p.description
FROM performances p
JOIN timesheets t ON t.id = p.timesheet_id
WHERE t.user_id = ? AND p.redmine_id IN (` + placeholders(len(redmineIDs)) + `)
ORDER BY p.id;`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query imported performances of user %d: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			performance model.ImportedPerformance
			redmineRaw  string
			dateRaw     string
		)
		if err := rows.Scan(&performance.ID, &redmineRaw, &dateRaw, &performance.Duration, &performance.Description); err != nil {
			return nil, fmt.Errorf("scan imported performance: %w", err)
		}
		performance.RedmineID, err = strconv.ParseInt(redmineRaw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse redmine id %q of performance %d: %w", redmineRaw, performance.ID, err)
		}
		performance.Date, err = parseDate(dateRaw)
		if err != nil {
			return nil, err
		}
		if _, seen := out[performance.RedmineID]; !seen {
			out[performance.RedmineID] = performance
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imported performances: %w", err)
	}
	return out, nil
}

// TimesheetFor returns the user's timesheet of the month, creating an active
// one when missing.
func (s *SQLiteStore) TimesheetFor(userID int64, year, month int) (model.Timesheet, error) {
	if month < 1 || month > 12 {
		return model.Timesheet{}, fmt.Errorf("month must be 1..12, got %d", month)
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO timesheets (user_id, year, month, status) VALUES (?, ?, ?, ?);`,
		userID, year, month, model.StatusActive,
	); err != nil {
		return model.Timesheet{}, fmt.Errorf("create timesheet %04d-%02d of user %d: %w", year, month, userID, err)
	}

	timesheet := model.Timesheet{UserID: userID, Year: year, Month: month}
	err := s.db.QueryRow(
		`SELECT id, status FROM timesheets WHERE user_id = ? AND year = ? AND month = ?;`,
		userID, year, month,
	).Scan(&timesheet.ID, &timesheet.Status)
	if err != nil {
		return model.Timesheet{}, fmt.Errorf("query timesheet %04d-%02d of user %d: %w", year, month, userID, err)
	}
	return timesheet, nil
}

func (s *SQLiteStore) SetTimesheetStatus(id int64, status string) error {
	if _, err := s.db.Exec(`UPDATE timesheets SET status = ? WHERE id = ?;`, status, id); err != nil {
		return fmt.Errorf("update timesheet %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) ListTimesheets() ([]model.Timesheet, error) {
	rows, err := s.db.Query(`SELECT id, user_id, year, month, status FROM timesheets ORDER BY year, month, user_id;`)
	if err != nil {
		return nil, fmt.Errorf("query timesheets: %w", err)
	}
	defer rows.Close()

	timesheets := make([]model.Timesheet, 0, 256)
	for rows.Next() {
		var timesheet model.Timesheet
		if err := rows.Scan(&timesheet.ID, &timesheet.UserID, &timesheet.Year, &timesheet.Month, &timesheet.Status); err != nil {
			return nil, fmt.Errorf("scan timesheet: %w", err)
		}
		timesheets = append(timesheets, timesheet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timesheets: %w", err)
	}
	return timesheets, nil
}

func (s *SQLiteStore) InsertPerformance(performance model.Performance) (int64, error) {
	id, err := s.insert(`
INSERT INTO performances (timesheet_id, contract_id, date, duration, description, redmine_id)
VALUES (?, ?, ?, ?, ?, ?);`,
		performance.TimesheetID,
		performance.ContractID,
		formatDate(performance.Date),
		performance.Duration,
		performance.Description,
		nullableString(performance.RedmineID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert performance: %w", err)
	}
	return id, nil
}

// InsertPerformances stores performances in one transaction.
func (s *SQLiteStore) InsertPerformances(performances []model.Performance) (int, error) {
	if len(performances) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO performances (timesheet_id, contract_id, date, duration, description, redmine_id)
VALUES (?, ?, ?, ?, ?, ?);`)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, performance := range performances {
		if _, err := stmt.Exec(
			performance.TimesheetID,
			performance.ContractID,
			formatDate(performance.Date),
			performance.Duration,
			performance.Description,
			nullableString(performance.RedmineID),
		); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("insert performance: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// UpdatePerformance replaces the editable fields of the performance with the
// given id.
func (s *SQLiteStore) UpdatePerformance(performance model.Performance) error {
	if performance.ID <= 0 {
		return fmt.Errorf("performance id must be > 0")
	}

	res, err := s.db.Exec(`
UPDATE performances
SET timesheet_id = ?,
	contract_id = ?,
	date = ?,
	duration = ?,
	description = ?,
	redmine_id = ?
WHERE id = ?;`,
		performance.TimesheetID,
		performance.ContractID,
		formatDate(performance.Date),
		performance.Duration,
		performance.Description,
		nullableString(performance.RedmineID),
		performance.ID,
	)
	if err != nil {
		return fmt.Errorf("update performance %d: %w", performance.ID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read updated row count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPerformanceNotFound
	}
	return nil
}

func (s *SQLiteStore) GetPerformance(id int64) (model.Performance, error) {
	var (
		performance model.Performance
		dateRaw     string
		redmineID   sql.NullString
	)
	err := s.db.QueryRow(`
SELECT id, timesheet_id, contract_id, date, duration, description, redmine_id
FROM performances
WHERE id = ?;`, id).Scan(
		&performance.ID,
		&performance.TimesheetID,
		&performance.ContractID,
		&dateRaw,
		&performance.Duration,
		&performance.Description,
		&redmineID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Performance{}, ErrPerformanceNotFound
		}
		return model.Performance{}, fmt.Errorf("query performance %d: %w", id, err)
	}
	performance.RedmineID = redmineID.String
	performance.Date, err = parseDate(dateRaw)
	if err != nil {
		return model.Performance{}, err
	}
	return performance, nil
}
