package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"ninetofiver/model"
)

const userColumns = `
	u.id,
	u.username,
	u.first_name,
	u.last_name,
	u.email,
	u.is_active,
	ui.redmine_id
FROM users u
LEFT JOIN user_infos ui ON ui.user_id = u.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		user      model.User
		active    int
		redmineID sql.NullInt64
	)
	if err := row.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Email, &active, &redmineID); err != nil {
		return model.User{}, err
	}
	user.IsActive = active != 0
	if redmineID.Valid {
		id := redmineID.Int64
		user.RedmineID = &id
	}
	return user, nil
}

// GetUser returns the user with the given id or ErrUserNotFound.
func (s *SQLiteStore) GetUser(id int64) (model.User, error) {
	user, err := scanUser(s.db.QueryRow(`SELECT`+userColumns+` WHERE u.id = ?;`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
		}
		return model.User{}, fmt.Errorf("query user %d: %w", id, err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByUsername(username string) (model.User, error) {
	user, err := scanUser(s.db.QueryRow(`SELECT`+userColumns+` WHERE u.username = ?;`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %q: %w", username, ErrUserNotFound)
		}
		return model.User{}, fmt.Errorf("query user %q: %w", username, err)
	}
	return user, nil
}

func (s *SQLiteStore) ListActiveUsers() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT` + userColumns + ` WHERE u.is_active = 1 ORDER BY u.username;`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, 64)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// InsertUser stores user together with its Redmine id when set.
func (s *SQLiteStore) InsertUser(user model.User) (int64, error) {
	id, err := s.insert(
		`INSERT INTO users (username, first_name, last_name, email, is_active) VALUES (?, ?, ?, ?, ?);`,
		user.Username, user.FirstName, user.LastName, user.Email, boolInt(user.IsActive),
	)
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", user.Username, err)
	}
	if user.RedmineID != nil {
		if err := s.SetUserRedmineID(id, user.RedmineID); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// SetUserRedmineID links a user to a Redmine account. A nil id clears the link.
func (s *SQLiteStore) SetUserRedmineID(userID int64, redmineID *int64) error {
	var value any
	if redmineID != nil {
		value = *redmineID
	}
	_, err := s.db.Exec(`
INSERT INTO user_infos (user_id, redmine_id) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET redmine_id = excluded.redmine_id;`, userID, value)
	if err != nil {
		return fmt.Errorf("set redmine id of user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) InsertGroup(name string) (int64, error) {
	id, err := s.insert(`INSERT INTO auth_groups (name) VALUES (?);`, name)
	if err != nil {
		return 0, fmt.Errorf("insert group %q: %w", name, err)
	}
	return id, nil
}

func (s *SQLiteStore) AddUserToGroup(userID, groupID int64) error {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO user_groups (user_id, group_id) VALUES (?, ?);`, userID, groupID); err != nil {
		return fmt.Errorf("add user %d to group %d: %w", userID, groupID, err)
	}
	return nil
}

func (s *SQLiteStore) InsertEmploymentContract(contract model.EmploymentContract) (int64, error) {
	var workSchedule any
	if contract.WorkScheduleID != nil {
		workSchedule = *contract.WorkScheduleID
	}
	id, err := s.insert(
		`INSERT INTO employment_contracts (user_id, company_id, work_schedule_id, started_at, ended_at) VALUES (?, ?, ?, ?, ?);`,
		contract.UserID, contract.CompanyID, workSchedule, formatDate(contract.StartedAt), nullableDate(contract.EndedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert employment contract of user %d: %w", contract.UserID, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertTraining(training model.Training) (int64, error) {
	id, err := s.insert(
		`INSERT INTO trainings (user_id, name, starts_at, ends_at) VALUES (?, ?, ?, ?);`,
		training.UserID, training.Name, formatDate(training.StartsAt), formatDate(training.EndsAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert training %q: %w", training.Name, err)
	}
	return id, nil
}
