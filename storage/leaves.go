package storage

import (
	"fmt"
	"time"

	"ninetofiver/model"
)

func (s *SQLiteStore) InsertLeaveType(leaveType model.LeaveType) (int64, error) {
	id, err := s.insert(
		`INSERT INTO leave_types (name, description, overtime, sickness) VALUES (?, ?, ?, ?);`,
		leaveType.Name, leaveType.Description, boolInt(leaveType.Overtime), boolInt(leaveType.Sickness),
	)
	if err != nil {
		return 0, fmt.Errorf("insert leave type %q: %w", leaveType.Name, err)
	}
	return id, nil
}

// InsertLeave stores leave for leave.User and leave.LeaveType. Missing
// timestamps default to now.
func (s *SQLiteStore) InsertLeave(leave model.Leave) (int64, error) {
	now := time.Now()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	if leave.UpdatedAt.IsZero() {
		leave.UpdatedAt = leave.CreatedAt
	}
	if leave.Status == "" {
		leave.Status = model.StatusDraft
	}

	id, err := s.insert(`
INSERT INTO leaves (user_id, leave_type_id, description, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		leave.User.ID,
		leave.LeaveType.ID,
		leave.Description,
		leave.Status,
		formatDatetime(leave.CreatedAt),
		formatDatetime(leave.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert leave of user %d: %w", leave.User.ID, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertLeaveDate(leaveID int64, startsAt, endsAt time.Time) (int64, error) {
	if endsAt.Before(startsAt) {
		return 0, fmt.Errorf("leave date ends before it starts")
	}
	id, err := s.insert(
		`INSERT INTO leave_dates (leave_id, starts_at, ends_at) VALUES (?, ?, ?);`,
		leaveID, formatDatetime(startsAt), formatDatetime(endsAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert leave date of leave %d: %w", leaveID, err)
	}
	return id, nil
}

// ListLeaveDates returns every leave date with its leave, user and leave type,
// most recent start first.
func (s *SQLiteStore) ListLeaveDates() ([]model.LeaveDate, error) {
	const query = `
SELECT
	ld.id,
	ld.starts_at,
	ld.ends_at,
	l.id,
	l.description,
	l.status,
	l.created_at,
	l.updated_at,
	lt.id,
	lt.name,
	lt.description,
	lt.overtime,
	lt.sickness,
	u.id,
	u.username,
	u.first_name,
	u.last_name,
	u.email,
	u.is_active
FROM leave_dates ld
JOIN leaves l ON l.id = ld.leave_id
JOIN leave_types lt ON lt.id = l.leave_type_id
JOIN users u ON u.id = l.user_id
ORDER BY ld.starts_at DESC, ld.id DESC;
`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query leave dates: %w", err)
	}
	defer rows.Close()

	dates := make([]model.LeaveDate, 0, 64)
	for rows.Next() {
		var (
			item               model.LeaveDate
			startsRaw, endsRaw string
			createdRaw, updRaw string
			overtime, sickness int
			active             int
		)
		if err := rows.Scan(
			&item.ID,
			&startsRaw,
			&endsRaw,
			&item.Leave.ID,
			&item.Leave.Description,
			&item.Leave.Status,
			&createdRaw,
			&updRaw,
			&item.Leave.LeaveType.ID,
			&item.Leave.LeaveType.Name,
			&item.Leave.LeaveType.Description,
			&overtime,
			&sickness,
			&item.Leave.User.ID,
			&item.Leave.User.Username,
			&item.Leave.User.FirstName,
			&item.Leave.User.LastName,
			&item.Leave.User.Email,
			&active,
		); err != nil {
			return nil, fmt.Errorf("scan leave date: %w", err)
		}
		item.Leave.LeaveType.Overtime = overtime != 0
		item.Leave.LeaveType.Sickness = sickness != 0
		item.Leave.User.IsActive = active != 0

		if item.StartsAt, err = parseDatetime(startsRaw); err != nil {
			return nil, err
		}
		if item.EndsAt, err = parseDatetime(endsRaw); err != nil {
			return nil, err
		}
		if item.Leave.CreatedAt, err = parseDatetime(createdRaw); err != nil {
			return nil, err
		}
		if item.Leave.UpdatedAt, err = parseDatetime(updRaw); err != nil {
			return nil, err
		}
		dates = append(dates, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leave dates: %w", err)
	}
	return dates, nil
}
