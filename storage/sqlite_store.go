package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = time.RFC3339
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrPerformanceNotFound = errors.New("performance not found")
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS user_infos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	redmine_id INTEGER
);

CREATE TABLE IF NOT EXISTS auth_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_groups (
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	group_id INTEGER NOT NULL REFERENCES auth_groups(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, group_id)
);

CREATE TABLE IF NOT EXISTS companies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	vat_identification_number TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	internal INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS locations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leave_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	overtime INTEGER NOT NULL DEFAULT 0,
	sickness INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS performance_types (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	multiplier REAL NOT NULL CHECK(multiplier >= 0)
);

CREATE TABLE IF NOT EXISTS work_schedules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	monday REAL NOT NULL DEFAULT 0,
	tuesday REAL NOT NULL DEFAULT 0,
	wednesday REAL NOT NULL DEFAULT 0,
	thursday REAL NOT NULL DEFAULT 0,
	friday REAL NOT NULL DEFAULT 0,
	saturday REAL NOT NULL DEFAULT 0,
	sunday REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS employment_contracts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	company_id INTEGER NOT NULL REFERENCES companies(id),
	work_schedule_id INTEGER REFERENCES work_schedules(id),
	started_at TEXT NOT NULL,
	ended_at TEXT
);

CREATE TABLE IF NOT EXISTS contract_roles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS contract_groups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contracts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL CHECK(kind IN ('projectcontract', 'consultancycontract', 'supportcontract')),
	customer_id INTEGER NOT NULL REFERENCES companies(id),
	company_id INTEGER NOT NULL REFERENCES companies(id),
	starts_at TEXT NOT NULL,
	ends_at TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	redmine_id TEXT
);

CREATE TABLE IF NOT EXISTS contract_contract_groups (
	contract_id INTEGER NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
	contract_group_id INTEGER NOT NULL REFERENCES contract_groups(id) ON DELETE CASCADE,
	PRIMARY KEY (contract_id, contract_group_id)
);

CREATE TABLE IF NOT EXISTS contract_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	contract_id INTEGER NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
	contract_role_id INTEGER NOT NULL REFERENCES contract_roles(id),
	UNIQUE(user_id, contract_id, contract_role_id)
);

CREATE TABLE IF NOT EXISTS timesheets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
	status TEXT NOT NULL DEFAULT 'active',
	UNIQUE(user_id, year, month)
);

CREATE TABLE IF NOT EXISTS performances (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timesheet_id INTEGER NOT NULL REFERENCES timesheets(id) ON DELETE CASCADE,
	contract_id INTEGER NOT NULL REFERENCES contracts(id),
	date TEXT NOT NULL,
	duration REAL NOT NULL DEFAULT 0 CHECK(duration >= 0),
	description TEXT NOT NULL DEFAULT '',
	redmine_id TEXT
);

CREATE INDEX IF NOT EXISTS performances_redmine_id ON performances(redmine_id);

CREATE TABLE IF NOT EXISTS leaves (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	leave_type_id INTEGER NOT NULL REFERENCES leave_types(id),
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leave_dates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	leave_id INTEGER NOT NULL REFERENCES leaves(id) ON DELETE CASCADE,
	starts_at TEXT NOT NULL,
	ends_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trainings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	starts_at TEXT NOT NULL,
	ends_at TEXT NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insert(query string, args ...any) (int64, error) {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted row id: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid inserted row id %d", id)
	}
	return id, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatDate(value time.Time) string {
	return value.Format(dateLayout)
}

func formatDatetime(value time.Time) string {
	return value.UTC().Format(datetimeLayout)
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatDate(*value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return parsed, nil
}

func parseDatetime(raw string) (time.Time, error) {
	parsed, err := time.Parse(datetimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", raw, err)
	}
	return parsed, nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
