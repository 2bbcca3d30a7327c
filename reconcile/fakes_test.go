package reconcile

import (
	"context"
	"sync"

	"ninetofiver/model"
	"ninetofiver/redmine"
)

type fakeClient struct {
	mu sync.Mutex

	baseURL     string
	issues      map[int64]redmine.Issue
	timeEntries []redmine.TimeEntry
	users       []redmine.User

	issueErr     error
	timeEntryErr error

	issueBatches     [][]int64
	issueFilters     []redmine.IssueFilter
	timeEntryFilters []redmine.TimeEntryFilter
	userLookups      []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		baseURL: "https://redmine.example.com",
		issues:  make(map[int64]redmine.Issue),
	}
}

func (c *fakeClient) addIssue(issue redmine.Issue) {
	c.issues[issue.ID] = issue
}

func (c *fakeClient) BaseURL() string {
	return c.baseURL
}

func (c *fakeClient) ListUsers(context.Context) ([]redmine.User, error) {
	return c.users, nil
}

func (c *fakeClient) FindUsersByName(_ context.Context, name string, limit int) ([]redmine.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userLookups = append(c.userLookups, name)

	matches := make([]redmine.User, 0)
	for _, user := range c.users {
		if user.Login == name {
			matches = append(matches, user)
		}
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func (c *fakeClient) ListProjects(context.Context) ([]redmine.Project, error) {
	return nil, nil
}

func (c *fakeClient) ListIssues(_ context.Context, filter redmine.IssueFilter) ([]redmine.Issue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issueFilters = append(c.issueFilters, filter)
	if len(filter.IDs) > 0 {
		c.issueBatches = append(c.issueBatches, append([]int64(nil), filter.IDs...))
	}
	if c.issueErr != nil {
		return nil, c.issueErr
	}

	out := make([]redmine.Issue, 0, len(filter.IDs))
	for _, id := range filter.IDs {
		if issue, ok := c.issues[id]; ok {
			out = append(out, issue)
		}
	}
	if len(filter.IDs) == 0 && filter.AssignedToID > 0 {
		for _, issue := range c.issues {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (c *fakeClient) ListTimeEntries(_ context.Context, filter redmine.TimeEntryFilter) ([]redmine.TimeEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeEntryFilters = append(c.timeEntryFilters, filter)
	if c.timeEntryErr != nil {
		return nil, c.timeEntryErr
	}
	return c.timeEntries, nil
}

type fakeDirectory struct {
	statuses    map[int64]bool
	byRedmineID map[string]int64
}

func (d *fakeDirectory) UserContractStatuses(int64) (map[int64]bool, error) {
	return d.statuses, nil
}

func (d *fakeDirectory) ContractIDsByRedmineID() (map[string]int64, error) {
	return d.byRedmineID, nil
}

type fakePerformances struct {
	imported map[int64]model.ImportedPerformance
}

func (p *fakePerformances) RedminePerformances(_ int64, ids []int64) (map[int64]model.ImportedPerformance, error) {
	out := make(map[int64]model.ImportedPerformance)
	for _, id := range ids {
		if performance, ok := p.imported[id]; ok {
			out[id] = performance
		}
	}
	return out, nil
}

type fakeWriter struct {
	timesheets map[[2]int]model.Timesheet
	inserted   []model.Performance
	updated    []model.Performance
	nextID     int64
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{timesheets: make(map[[2]int]model.Timesheet), nextID: 100}
}

func (w *fakeWriter) TimesheetFor(userID int64, year, month int) (model.Timesheet, error) {
	key := [2]int{year, month}
	if timesheet, ok := w.timesheets[key]; ok {
		return timesheet, nil
	}
	w.nextID++
	timesheet := model.Timesheet{ID: w.nextID, UserID: userID, Year: year, Month: month, Status: model.StatusActive}
	w.timesheets[key] = timesheet
	return timesheet, nil
}

func (w *fakeWriter) InsertPerformance(performance model.Performance) (int64, error) {
	w.nextID++
	performance.ID = w.nextID
	w.inserted = append(w.inserted, performance)
	return performance.ID, nil
}

func (w *fakeWriter) UpdatePerformance(performance model.Performance) error {
	w.updated = append(w.updated, performance)
	return nil
}
