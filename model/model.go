package model

import (
	"fmt"
	"strings"
	"time"
)

// Leave statuses as stored on leaves and timesheets.
const (
	StatusDraft    = "draft"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusActive   = "active"
	StatusClosed   = "closed"
)

// Contract kinds.
const (
	KindProject     = "projectcontract"
	KindConsultancy = "consultancycontract"
	KindSupport     = "supportcontract"
)

// User is a local account, optionally linked to a Redmine user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Email     string
	IsActive  bool
	RedmineID *int64
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

type Company struct {
	ID                      int64
	Name                    string
	VATIdentificationNumber string
	Address                 string
	Country                 string
	Internal                bool
}

type Contract struct {
	ID          int64
	Name        string
	Description string
	Kind        string
	CustomerID  int64
	CompanyID   int64
	StartsAt    time.Time
	EndsAt      *time.Time
	Active      bool
	RedmineID   string
}

type ContractUser struct {
	ID             int64
	UserID         int64
	ContractID     int64
	ContractRoleID int64
}

type Timesheet struct {
	ID     int64
	UserID int64
	Year   int
	Month  int
	Status string
}

// Performance is a booked amount of hours against a contract. RedmineID is set
// for rows imported from a Redmine time entry.
type Performance struct {
	ID          int64
	TimesheetID int64
	ContractID  int64
	Date        time.Time
	Duration    float64
	Description string
	RedmineID   string
}

type LeaveType struct {
	ID          int64
	Name        string
	Description string
	Overtime    bool
	Sickness    bool
}

type Leave struct {
	ID          int64
	User        User
	LeaveType   LeaveType
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (l Leave) String() string {
	return fmt.Sprintf("%s - %s", l.User.DisplayName(), l.LeaveType.Name)
}

// LeaveDate is one contiguous period of a leave.
type LeaveDate struct {
	ID       int64
	Leave    Leave
	StartsAt time.Time
	EndsAt   time.Time
}

type Location struct {
	ID   int64
	Name string
}

type PerformanceType struct {
	ID          int64
	Name        string
	Description string
	Multiplier  float64
}

type WorkSchedule struct {
	ID        int64
	Name      string
	Monday    float64
	Tuesday   float64
	Wednesday float64
	Thursday  float64
	Friday    float64
	Saturday  float64
	Sunday    float64
}

type NamedRecord struct {
	ID          int64
	Name        string
	Description string
}

// ImportedPerformance is the subset of a performance used to detect upstream
// changes of an already imported Redmine time entry.
type ImportedPerformance struct {
	ID          int64
	RedmineID   int64
	Date        time.Time
	Duration    float64
	Description string
}

type EmploymentContract struct {
	ID             int64
	UserID         int64
	CompanyID      int64
	WorkScheduleID *int64
	StartedAt      time.Time
	EndedAt        *time.Time
}

type Training struct {
	ID       int64
	UserID   int64
	Name     string
	StartsAt time.Time
	EndsAt   time.Time
}
