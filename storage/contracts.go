package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"ninetofiver/model"
)

// UserContractStatuses maps the contracts user is assigned to onto their
// active flag.
func (s *SQLiteStore) UserContractStatuses(userID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(`
SELECT DISTINCT c.id, c.active
FROM contract_users cu
JOIN contracts c ON c.id = cu.contract_id
WHERE cu.user_id = ?;`, userID)
	if err != nil {
		return nil, fmt.Errorf("query contracts of user %d: %w", userID, err)
	}
	defer rows.Close()

	statuses := make(map[int64]bool)
	for rows.Next() {
		var (
			id     int64
			active int
		)
		if err := rows.Scan(&id, &active); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		statuses[id] = active != 0
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return statuses, nil
}

// ContractIDsByRedmineID maps the external Redmine id of every linked contract
// onto the contract id.
func (s *SQLiteStore) ContractIDsByRedmineID() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT redmine_id, id FROM contracts WHERE redmine_id IS NOT NULL AND redmine_id <> '' ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("query redmine contracts: %w", err)
	}
	defer rows.Close()

	mapping := make(map[string]int64)
	for rows.Next() {
		var (
			redmineID string
			id        int64
		)
		if err := rows.Scan(&redmineID, &id); err != nil {
			return nil, fmt.Errorf("scan redmine contract: %w", err)
		}
		if _, taken := mapping[redmineID]; !taken {
			mapping[redmineID] = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redmine contracts: %w", err)
	}
	return mapping, nil
}

func (s *SQLiteStore) GetContract(id int64) (model.Contract, bool, error) {
	var (
		contract  model.Contract
		startsRaw string
		endsRaw   sql.NullString
		active    int
		redmineID sql.NullString
	)
	err := s.db.QueryRow(`
SELECT id, name, description, kind, customer_id, company_id, starts_at, ends_at, active, redmine_id
FROM contracts
WHERE id = ?;`, id).Scan(
		&contract.ID,
		&contract.Name,
		&contract.Description,
		&contract.Kind,
		&contract.CustomerID,
		&contract.CompanyID,
		&startsRaw,
		&endsRaw,
		&active,
		&redmineID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Contract{}, false, nil
		}
		return model.Contract{}, false, fmt.Errorf("query contract %d: %w", id, err)
	}

	contract.Active = active != 0
	contract.RedmineID = redmineID.String
	if contract.StartsAt, err = parseDate(startsRaw); err != nil {
		return model.Contract{}, false, err
	}
	if endsRaw.Valid {
		ends, err := parseDate(endsRaw.String)
		if err != nil {
			return model.Contract{}, false, err
		}
		contract.EndsAt = &ends
	}
	return contract, true, nil
}

func (s *SQLiteStore) InsertContract(contract model.Contract) (int64, error) {
	id, err := s.insert(`
INSERT INTO contracts (name, description, kind, customer_id, company_id, starts_at, ends_at, active, redmine_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		contract.Name,
		contract.Description,
		contract.Kind,
		contract.CustomerID,
		contract.CompanyID,
		formatDate(contract.StartsAt),
		nullableDate(contract.EndsAt),
		boolInt(contract.Active),
		nullableString(contract.RedmineID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert contract %q: %w", contract.Name, err)
	}
	return id, nil
}

// InsertContracts stores contracts in one transaction and returns their ids
// in input order.
func (s *SQLiteStore) InsertContracts(contracts []model.Contract) ([]int64, error) {
	if len(contracts) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO contracts (name, description, kind, customer_id, company_id, starts_at, ends_at, active, redmine_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(contracts))
	for _, contract := range contracts {
		res, err := stmt.Exec(
			contract.Name,
			contract.Description,
			contract.Kind,
			contract.CustomerID,
			contract.CompanyID,
			formatDate(contract.StartsAt),
			nullableDate(contract.EndsAt),
			boolInt(contract.Active),
			nullableString(contract.RedmineID),
		)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert contract %q: %w", contract.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("read inserted row id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) InsertContractUser(contractUser model.ContractUser) (int64, error) {
	id, err := s.insert(
		`INSERT INTO contract_users (user_id, contract_id, contract_role_id) VALUES (?, ?, ?);`,
		contractUser.UserID, contractUser.ContractID, contractUser.ContractRoleID,
	)
	if err != nil {
		return 0, fmt.Errorf("assign user %d to contract %d: %w", contractUser.UserID, contractUser.ContractID, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertContractRole(role model.NamedRecord) (int64, error) {
	id, err := s.insert(`INSERT INTO contract_roles (name, description) VALUES (?, ?);`, role.Name, role.Description)
	if err != nil {
		return 0, fmt.Errorf("insert contract role %q: %w", role.Name, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertContractGroup(name string) (int64, error) {
	id, err := s.insert(`INSERT INTO contract_groups (name) VALUES (?);`, name)
	if err != nil {
		return 0, fmt.Errorf("insert contract group %q: %w", name, err)
	}
	return id, nil
}

func (s *SQLiteStore) AddContractToGroup(contractID, groupID int64) error {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO contract_contract_groups (contract_id, contract_group_id) VALUES (?, ?);`, contractID, groupID); err != nil {
		return fmt.Errorf("add contract %d to group %d: %w", contractID, groupID, err)
	}
	return nil
}

func (s *SQLiteStore) InsertCompany(company model.Company) (int64, error) {
	id, err := s.insert(`
INSERT INTO companies (name, vat_identification_number, address, country, internal)
VALUES (?, ?, ?, ?, ?);`,
		company.Name, company.VATIdentificationNumber, company.Address, company.Country, boolInt(company.Internal),
	)
	if err != nil {
		return 0, fmt.Errorf("insert company %q: %w", company.Name, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertLocation(location model.Location) (int64, error) {
	id, err := s.insert(`INSERT INTO locations (name) VALUES (?);`, location.Name)
	if err != nil {
		return 0, fmt.Errorf("insert location %q: %w", location.Name, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertPerformanceType(performanceType model.PerformanceType) (int64, error) {
	id, err := s.insert(
		`INSERT INTO performance_types (name, description, multiplier) VALUES (?, ?, ?);`,
		performanceType.Name, performanceType.Description, performanceType.Multiplier,
	)
	if err != nil {
		return 0, fmt.Errorf("insert performance type %q: %w", performanceType.Name, err)
	}
	return id, nil
}

func (s *SQLiteStore) InsertWorkSchedule(schedule model.WorkSchedule) (int64, error) {
	id, err := s.insert(`
INSERT INTO work_schedules (name, monday, tuesday, wednesday, thursday, friday, saturday, sunday)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		schedule.Name,
		schedule.Monday,
		schedule.Tuesday,
		schedule.Wednesday,
		schedule.Thursday,
		schedule.Friday,
		schedule.Saturday,
		schedule.Sunday,
	)
	if err != nil {
		return 0, fmt.Errorf("insert work schedule %q: %w", schedule.Name, err)
	}
	return id, nil
}

// CountRows returns the number of rows of table. Only tables of the schema
// are accepted.
func (s *SQLiteStore) CountRows(table string) (int64, error) {
	if _, ok := knownTables[table]; !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table + `;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

var knownTables = map[string]struct{}{
	"users": {}, "user_infos": {}, "auth_groups": {}, "user_groups": {}, "companies": {}, "locations": {},
	"leave_types": {}, "performance_types": {}, "work_schedules": {}, "employment_contracts": {},
	"contract_roles": {}, "contract_groups": {}, "contracts": {}, "contract_contract_groups": {},
	"contract_users": {}, "timesheets": {}, "performances": {}, "leaves": {}, "leave_dates": {}, "trainings": {},
}
