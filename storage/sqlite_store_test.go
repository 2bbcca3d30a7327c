package storage

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"ninetofiver/model"
	"ninetofiver/report"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "ninetofiver_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse day %q: %v", value, err)
	}
	return parsed
}

type fixture struct {
	userID     int64
	otherID    int64
	internalID int64
	customerID int64
	roleID     int64
	activeID   int64
	inactiveID int64
	linkedID   int64
}

func seedFixture(t *testing.T, store *SQLiteStore) fixture {
	t.Helper()
	var (
		f   fixture
		err error
	)

	redmineID := int64(500)
	if f.userID, err = store.InsertUser(model.User{Username: "jdoe", FirstName: "John", LastName: "Doe", Email: "john@example.com", IsActive: true, RedmineID: &redmineID}); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if f.otherID, err = store.InsertUser(model.User{Username: "former", IsActive: false}); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if f.internalID, err = store.InsertCompany(model.Company{Name: "Inuits", Internal: true}); err != nil {
		t.Fatalf("insert company: %v", err)
	}
	if f.customerID, err = store.InsertCompany(model.Company{Name: "ABC"}); err != nil {
		t.Fatalf("insert company: %v", err)
	}
	if f.roleID, err = store.InsertContractRole(model.NamedRecord{Name: "Developer"}); err != nil {
		t.Fatalf("insert role: %v", err)
	}

	contracts := []model.Contract{
		{Name: "Support", Kind: model.KindSupport, CustomerID: f.customerID, CompanyID: f.internalID, StartsAt: day(t, "2025-01-01"), Active: true},
		{Name: "Legacy", Kind: model.KindProject, CustomerID: f.customerID, CompanyID: f.internalID, StartsAt: day(t, "2020-01-01"), Active: false},
		{Name: "Website", Kind: model.KindProject, CustomerID: f.customerID, CompanyID: f.internalID, StartsAt: day(t, "2025-06-01"), Active: true, RedmineID: "99"},
	}
	ids, err := store.InsertContracts(contracts)
	if err != nil {
		t.Fatalf("insert contracts: %v", err)
	}
	f.activeID, f.inactiveID, f.linkedID = ids[0], ids[1], ids[2]

	for _, contractID := range []int64{f.activeID, f.inactiveID} {
		if _, err := store.InsertContractUser(model.ContractUser{UserID: f.userID, ContractID: contractID, ContractRoleID: f.roleID}); err != nil {
			t.Fatalf("insert contract user: %v", err)
		}
	}
	return f
}

func TestSQLiteStore_GetUser(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	f := seedFixture(t, store)

	user, err := store.GetUser(f.userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Username != "jdoe" || user.RedmineID == nil || *user.RedmineID != 500 {
		t.Fatalf("unexpected user: %+v", user)
	}

	other, err := store.GetUser(f.otherID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if other.RedmineID != nil {
		t.Fatalf("expected no redmine id, got %d", *other.RedmineID)
	}

	if _, err := store.GetUser(999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	active, err := store.ListActiveUsers()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(active) != 1 || active[0].ID != f.userID {
		t.Fatalf("expected only the active user, got %+v", active)
	}
}

func TestSQLiteStore_SetUserRedmineIDUpserts(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	f := seedFixture(t, store)

	id := int64(77)
	if err := store.SetUserRedmineID(f.userID, &id); err != nil {
		t.Fatalf("set redmine id: %v", err)
	}
	user, err := store.GetUserByUsername("jdoe")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.RedmineID == nil || *user.RedmineID != 77 {
		t.Fatalf("expected redmine id 77, got %v", user.RedmineID)
	}

	if err := store.SetUserRedmineID(f.userID, nil); err != nil {
		t.Fatalf("clear redmine id: %v", err)
	}
	user, err = store.GetUser(f.userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.RedmineID != nil {
		t.Fatalf("expected cleared redmine id, got %d", *user.RedmineID)
	}
}

func TestSQLiteStore_ContractDirectory(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	f := seedFixture(t, store)

	statuses, err := store.UserContractStatuses(f.userID)
	if err != nil {
		t.Fatalf("user contract statuses: %v", err)
	}
	if len(statuses) != 2 || !statuses[f.activeID] || statuses[f.inactiveID] {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
	if _, ok := statuses[f.linkedID]; ok {
		t.Fatalf("contract %d is not assigned to the user", f.linkedID)
	}

	mapping, err := store.ContractIDsByRedmineID()
	if err != nil {
		t.Fatalf("contract ids by redmine id: %v", err)
	}
	if len(mapping) != 1 || mapping["99"] != f.linkedID {
		t.Fatalf("unexpected mapping: %v", mapping)
	}

	contract, found, err := store.GetContract(f.linkedID)
	if err != nil || !found {
		t.Fatalf("get contract: found=%v err=%v", found, err)
	}
	if contract.RedmineID != "99" || contract.EndsAt != nil || contract.Kind != model.KindProject {
		t.Fatalf("unexpected contract: %+v", contract)
	}
}

func TestSQLiteStore_PerformanceRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	f := seedFixture(t, store)

	timesheet, err := store.TimesheetFor(f.userID, 2026, 3)
	if err != nil {
		t.Fatalf("timesheet for: %v", err)
	}
	again, err := store.TimesheetFor(f.userID, 2026, 3)
	if err != nil {
		t.Fatalf("timesheet for: %v", err)
	}
	if timesheet.ID != again.ID || timesheet.Status != model.StatusActive {
		t.Fatalf("expected one active timesheet, got %+v and %+v", timesheet, again)
	}

	id, err := store.InsertPerformance(model.Performance{
		TimesheetID: timesheet.ID,
		ContractID:  f.activeID,
		Date:        day(t, "2026-03-16"),
		Duration:    2.5,
		Description: "work",
		RedmineID:   "1001",
	})
	if err != nil {
		t.Fatalf("insert performance: %v", err)
	}
	if _, err := store.InsertPerformance(model.Performance{TimesheetID: timesheet.ID, ContractID: f.activeID, Date: day(t, "2026-03-16"), Duration: 1}); err != nil {
		t.Fatalf("insert manual performance: %v", err)
	}

	imported, err := store.RedminePerformances(f.userID, []int64{1001, 1002})
	if err != nil {
		t.Fatalf("redmine performances: %v", err)
	}
	if len(imported) != 1 {
		t.Fatalf("expected 1 imported performance, got %d", len(imported))
	}
	got := imported[1001]
	if got.ID != id || got.Duration != 2.5 || got.Description != "work" || !got.Date.Equal(day(t, "2026-03-16")) {
		t.Fatalf("unexpected imported performance: %+v", got)
	}

	if other, err := store.RedminePerformances(f.otherID, []int64{1001}); err != nil || len(other) != 0 {
		t.Fatalf("performances of another user must not match: %v %v", other, err)
	}

	if err := store.UpdatePerformance(model.Performance{
		ID:          id,
		TimesheetID: timesheet.ID,
		ContractID:  f.activeID,
		Date:        day(t, "2026-03-17"),
		Duration:    3,
		Description: "more work",
		RedmineID:   "1001",
	}); err != nil {
		t.Fatalf("update performance: %v", err)
	}
	updated, err := store.GetPerformance(id)
	if err != nil {
		t.Fatalf("get performance: %v", err)
	}
	if updated.Duration != 3 || updated.Description != "more work" || updated.RedmineID != "1001" {
		t.Fatalf("unexpected updated performance: %+v", updated)
	}

	if err := store.UpdatePerformance(model.Performance{ID: 9999, TimesheetID: timesheet.ID, ContractID: f.activeID, Date: day(t, "2026-03-17")}); !errors.Is(err, ErrPerformanceNotFound) {
		t.Fatalf("expected ErrPerformanceNotFound, got %v", err)
	}
}

func TestSQLiteStore_RedminePerformancesEmptyInput(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	out, err := store.RedminePerformances(1, nil)
	if err != nil {
		t.Fatalf("redmine performances: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %v", out)
	}
}

func TestSQLiteStore_ListLeaveDatesNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	f := seedFixture(t, store)

	leaveTypeID, err := store.InsertLeaveType(model.LeaveType{Name: "Vacation"})
	if err != nil {
		t.Fatalf("insert leave type: %v", err)
	}
	leaveID, err := store.InsertLeave(model.Leave{
		User:        model.User{ID: f.userID},
		LeaveType:   model.LeaveType{ID: leaveTypeID},
		Description: "Holiday",
		Status:      model.StatusApproved,
	})
	if err != nil {
		t.Fatalf("insert leave: %v", err)
	}

	for _, start := range []string{"2026-07-01T08:00:00Z", "2026-08-03T08:00:00Z"} {
		startsAt, _ := time.Parse(time.RFC3339, start)
		if _, err := store.InsertLeaveDate(leaveID, startsAt, startsAt.Add(8*time.Hour)); err != nil {
			t.Fatalf("insert leave date: %v", err)
		}
	}
	if _, err := store.InsertLeaveDate(leaveID, day(t, "2026-09-02"), day(t, "2026-09-01")); err == nil {
		t.Fatalf("expected error for inverted leave date")
	}

	dates, err := store.ListLeaveDates()
	if err != nil {
		t.Fatalf("list leave dates: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 leave dates, got %d", len(dates))
	}
	if dates[0].StartsAt.Month() != time.August {
		t.Fatalf("expected newest leave date first, got %s", dates[0].StartsAt)
	}
	if dates[0].Leave.String() != "John Doe - Vacation" || dates[0].Leave.User.Email != "john@example.com" {
		t.Fatalf("unexpected leave: %+v", dates[0].Leave)
	}
}

func TestSQLiteStore_RunReport(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	f := seedFixture(t, store)
	ctx := context.Background()

	for _, month := range []int{1, 2} {
		timesheet, err := store.TimesheetFor(f.userID, 2026, month)
		if err != nil {
			t.Fatalf("timesheet for: %v", err)
		}
		if _, err := store.InsertPerformance(model.Performance{TimesheetID: timesheet.ID, ContractID: f.activeID, Date: day(t, "2026-01-05").AddDate(0, month-1, 0), Duration: 4}); err != nil {
			t.Fatalf("insert performance: %v", err)
		}
	}
	closed, err := store.TimesheetFor(f.userID, 2026, 2)
	if err != nil {
		t.Fatalf("timesheet for: %v", err)
	}
	if err := store.SetTimesheetStatus(closed.ID, model.StatusClosed); err != nil {
		t.Fatalf("close timesheet: %v", err)
	}

	set, err := report.Find("timesheet_contract_overview")
	if err != nil {
		t.Fatalf("find report: %v", err)
	}
	query, err := set.Bind(ctx, url.Values{
		"status":   {"closed"},
		"contract": {"1"},
		"year":     {"2026"},
	}, store)
	if err != nil {
		t.Fatalf("bind report: %v", err)
	}

	result, err := store.RunReport(ctx, query)
	if err != nil {
		t.Fatalf("run report: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(result.Rows), result.Rows)
	}
	record := result.Records()[0]
	if record["month"] != "2" || record["status"] != "closed" || record["user"] != "jdoe" || record["hours"] != "4" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestSQLiteStore_ReportChoices(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedFixture(t, store)
	ctx := context.Background()

	companies, err := store.ReportChoices(ctx, report.SourceInternalCompanies)
	if err != nil {
		t.Fatalf("report choices: %v", err)
	}
	if len(companies) != 1 || companies[0].Label != "Inuits" {
		t.Fatalf("unexpected internal companies: %v", companies)
	}

	projects, err := store.ReportChoices(ctx, report.SourceActiveProjectContracts)
	if err != nil {
		t.Fatalf("report choices: %v", err)
	}
	if len(projects) != 1 || projects[0].Label != "Website" {
		t.Fatalf("unexpected project contracts: %v", projects)
	}

	if _, err := store.ReportChoices(ctx, "nope"); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestSQLiteStore_CountRows(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedFixture(t, store)

	count, err := store.CountRows("contracts")
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 contracts, got %d", count)
	}
	if _, err := store.CountRows("contracts; DROP TABLE users"); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}
