// Package seed fills a database with test data for local development.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"ninetofiver/internal/timeutil"
	"ninetofiver/model"
)

var ErrDebugDisabled = errors.New("test data population requires debug mode")

//go:embed fixtures/basic.yaml
var basicFixture []byte

type BasicStore interface {
	InsertLeaveType(model.LeaveType) (int64, error)
	InsertCompany(model.Company) (int64, error)
	InsertLocation(model.Location) (int64, error)
	InsertPerformanceType(model.PerformanceType) (int64, error)
	InsertWorkSchedule(model.WorkSchedule) (int64, error)
}

type PerformanceStore interface {
	InsertContractRole(model.NamedRecord) (int64, error)
	InsertUser(model.User) (int64, error)
	InsertCompany(model.Company) (int64, error)
	InsertContractGroup(name string) (int64, error)
	InsertContracts([]model.Contract) ([]int64, error)
	AddContractToGroup(contractID, groupID int64) error
	InsertContractUser(model.ContractUser) (int64, error)
	TimesheetFor(userID int64, year, month int) (model.Timesheet, error)
	ListTimesheets() ([]model.Timesheet, error)
	InsertPerformances([]model.Performance) (int, error)
}

// Sizes controls the volume of PopulatePerformance. Entities applies to
// users, companies, customers, contract roles and contract groups alike.
type Sizes struct {
	Entities     int
	Contracts    int
	Performances int
}

func DefaultSizes() Sizes {
	return Sizes{Entities: 100, Contracts: 1000, Performances: 9999}
}

type Summary struct {
	LeaveTypes       int
	Companies        int
	Locations        int
	PerformanceTypes int
	WorkSchedules    int
	Users            int
	Contracts        int
	Timesheets       int
	Performances     int
}

type Populator struct {
	debug bool
	log   zerolog.Logger
	now   func() time.Time
}

// NewPopulator returns a populator that refuses to run unless debug is set.
func NewPopulator(debug bool, log zerolog.Logger, now func() time.Time) *Populator {
	if now == nil {
		now = time.Now
	}
	return &Populator{debug: debug, log: log, now: now}
}

func (p *Populator) guard() error {
	if !p.debug {
		p.log.Error().Msg("debug is disabled, refusing to populate test data")
		return ErrDebugDisabled
	}
	return nil
}

type basicData struct {
	LeaveTypes []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Overtime    bool   `yaml:"overtime"`
		Sickness    bool   `yaml:"sickness"`
	} `yaml:"leave_types"`
	Companies []struct {
		Name     string `yaml:"name"`
		VAT      string `yaml:"vat_identification_number"`
		Address  string `yaml:"address"`
		Country  string `yaml:"country"`
		Internal bool   `yaml:"internal"`
	} `yaml:"companies"`
	Locations        []string `yaml:"locations"`
	PerformanceTypes []struct {
		Name        string  `yaml:"name"`
		Description string  `yaml:"description"`
		Multiplier  float64 `yaml:"multiplier"`
	} `yaml:"performance_types"`
	WorkSchedules []struct {
		Name string    `yaml:"name"`
		Days []float64 `yaml:"days"`
	} `yaml:"work_schedules"`
}

func loadBasicData() (basicData, error) {
	var data basicData
	if err := yaml.Unmarshal(basicFixture, &data); err != nil {
		return basicData{}, fmt.Errorf("parse basic fixture: %w", err)
	}
	for _, schedule := range data.WorkSchedules {
		if len(schedule.Days) != 7 {
			return basicData{}, fmt.Errorf("work schedule %q: expected 7 days, got %d", schedule.Name, len(schedule.Days))
		}
	}
	return data, nil
}

// PopulateBasic stores the reference data: leave types, companies, locations,
// performance types and work schedules.
func (p *Populator) PopulateBasic(store BasicStore) (Summary, error) {
	var summary Summary
	if err := p.guard(); err != nil {
		return summary, err
	}

	data, err := loadBasicData()
	if err != nil {
		return summary, err
	}

	for _, item := range data.LeaveTypes {
		if _, err := store.InsertLeaveType(model.LeaveType{Name: item.Name, Description: item.Description, Overtime: item.Overtime, Sickness: item.Sickness}); err != nil {
			return summary, err
		}
		summary.LeaveTypes++
	}
	for _, item := range data.Companies {
		company := model.Company{Name: item.Name, VATIdentificationNumber: item.VAT, Address: item.Address, Country: item.Country, Internal: item.Internal}
		if _, err := store.InsertCompany(company); err != nil {
			return summary, err
		}
		summary.Companies++
	}
	for _, name := range data.Locations {
		if _, err := store.InsertLocation(model.Location{Name: name}); err != nil {
			return summary, err
		}
		summary.Locations++
	}
	for _, item := range data.PerformanceTypes {
		if _, err := store.InsertPerformanceType(model.PerformanceType{Name: item.Name, Description: item.Description, Multiplier: item.Multiplier}); err != nil {
			return summary, err
		}
		summary.PerformanceTypes++
	}
	for _, item := range data.WorkSchedules {
		days := item.Days
		schedule := model.WorkSchedule{
			Name:      item.Name,
			Monday:    days[0],
			Tuesday:   days[1],
			Wednesday: days[2],
			Thursday:  days[3],
			Friday:    days[4],
			Saturday:  days[5],
			Sunday:    days[6],
		}
		if _, err := store.InsertWorkSchedule(schedule); err != nil {
			return summary, err
		}
		summary.WorkSchedules++
	}

	p.log.Info().
		Int("leave_types", summary.LeaveTypes).
		Int("companies", summary.Companies).
		Int("locations", summary.Locations).
		Int("performance_types", summary.PerformanceTypes).
		Int("work_schedules", summary.WorkSchedules).
		Msg("basic tables populated")
	return summary, nil
}

var (
	contractStartMin = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	contractStartMax = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	contractEndMin   = time.Date(2021, 9, 9, 0, 0, 0, 0, time.UTC)
	contractEndMax   = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	contractKinds = []string{model.KindProject, model.KindConsultancy, model.KindSupport}
)

// RandomDate returns a day in [start, end).
func RandomDate(rng *rand.Rand, start, end time.Time) time.Time {
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return start
	}
	return start.AddDate(0, 0, rng.IntN(days))
}

// PopulatePerformance stores a large volume of users, companies, contracts,
// timesheets and performances.
func (p *Populator) PopulatePerformance(store PerformanceStore, sizes Sizes, rng *rand.Rand) (Summary, error) {
	var summary Summary
	if err := p.guard(); err != nil {
		return summary, err
	}
	if sizes.Entities <= 0 {
		return summary, fmt.Errorf("entities must be > 0")
	}
	if rng == nil {
		seed := uint64(p.now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	var (
		roles     = make([]int64, 0, sizes.Entities)
		users     = make([]int64, 0, sizes.Entities)
		companies = make([]int64, 0, sizes.Entities)
		customers = make([]int64, 0, sizes.Entities)
		groups    = make([]int64, 0, sizes.Entities)
	)

	for x := 1; x <= sizes.Entities; x++ {
		roleID, err := store.InsertContractRole(model.NamedRecord{Name: fmt.Sprintf("test_contract_role_%d", x), Description: fmt.Sprintf("test_contract_role_%d", x)})
		if err != nil {
			return summary, err
		}
		roles = append(roles, roleID)

		userID, err := store.InsertUser(model.User{Username: fmt.Sprintf("test_user_%d", x), Email: "test@mail.com", IsActive: true})
		if err != nil {
			return summary, err
		}
		users = append(users, userID)

		companyID, err := store.InsertCompany(model.Company{
			Name:                    fmt.Sprintf("test_company_%d", x),
			VATIdentificationNumber: fmt.Sprintf("CZ%d", x),
			Address:                 fmt.Sprintf("test_company_%d", x),
			Country:                 "CZ",
			Internal:                true,
		})
		if err != nil {
			return summary, err
		}
		companies = append(companies, companyID)

		customerID, err := store.InsertCompany(model.Company{
			Name:                    fmt.Sprintf("test_company_customer_%d", x),
			VATIdentificationNumber: fmt.Sprintf("CZ_cus_%d", x),
			Address:                 fmt.Sprintf("test_company_customer_%d", x),
			Country:                 "CZ",
		})
		if err != nil {
			return summary, err
		}
		customers = append(customers, customerID)

		groupID, err := store.InsertContractGroup(fmt.Sprintf("test_contract_group_%d", x))
		if err != nil {
			return summary, err
		}
		groups = append(groups, groupID)
	}
	summary.Users = len(users)
	summary.Companies = len(companies) + len(customers)

	contracts := make([]model.Contract, 0, sizes.Contracts)
	for x := 1; x <= sizes.Contracts; x++ {
		minor := x % sizes.Entities
		ends := RandomDate(rng, contractEndMin, contractEndMax)
		contracts = append(contracts, model.Contract{
			Name:        fmt.Sprintf("test_contract_%d", x),
			Description: fmt.Sprintf("test_contract_%d", x),
			Kind:        contractKinds[x%len(contractKinds)],
			CustomerID:  customers[minor],
			CompanyID:   companies[minor],
			StartsAt:    RandomDate(rng, contractStartMin, contractStartMax),
			EndsAt:      &ends,
			Active:      true,
		})
	}
	contractIDs, err := store.InsertContracts(contracts)
	if err != nil {
		return summary, err
	}
	summary.Contracts = len(contractIDs)

	for i, contractID := range contractIDs {
		minor := (i + 1) % sizes.Entities
		if _, err := store.InsertContractUser(model.ContractUser{UserID: users[minor], ContractID: contractID, ContractRoleID: roles[minor]}); err != nil {
			return summary, err
		}
		if err := store.AddContractToGroup(contractID, groups[minor]); err != nil {
			return summary, err
		}
	}

	now := p.now()
	for _, userID := range users {
		for month := 1; month <= int(now.Month()); month++ {
			if _, err := store.TimesheetFor(userID, now.Year(), month); err != nil {
				return summary, err
			}
		}
	}
	timesheets, err := store.ListTimesheets()
	if err != nil {
		return summary, err
	}
	summary.Timesheets = len(timesheets)

	if len(timesheets) == 0 || len(contractIDs) == 0 {
		p.log.Warn().Msg("no timesheets or contracts, skipping performances")
		return summary, nil
	}

	contractPool := min(10, len(contractIDs))
	performances := make([]model.Performance, 0, sizes.Performances)
	for x := 1; x <= sizes.Performances; x++ {
		timesheet := timesheets[x%len(timesheets)]
		days := timeutil.DaysInMonth(timesheet.Year, time.Month(timesheet.Month))
		performances = append(performances, model.Performance{
			TimesheetID: timesheet.ID,
			ContractID:  contractIDs[x%contractPool],
			Date:        time.Date(timesheet.Year, time.Month(timesheet.Month), rng.IntN(days)+1, 0, 0, 0, 0, time.UTC),
			Duration:    float64(rng.IntN(16)+1) / 2,
		})
	}
	summary.Performances, err = store.InsertPerformances(performances)
	if err != nil {
		return summary, err
	}

	p.log.Info().
		Int("users", summary.Users).
		Int("contracts", summary.Contracts).
		Int("timesheets", summary.Timesheets).
		Int("performances", summary.Performances).
		Msg("performance tables populated")
	return summary, nil
}
