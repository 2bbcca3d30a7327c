package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninetofiver/model"
	"ninetofiver/redmine"
)

var fixedNow = time.Date(2026, 3, 17, 15, 4, 5, 0, time.UTC)

func int64Ptr(v int64) *int64 {
	return &v
}

func linkedUser() model.User {
	return model.User{ID: 1, Username: "jdoe", FirstName: "John", LastName: "Doe", Email: "john@example.com", RedmineID: int64Ptr(500)}
}

func newTestService(client redmine.Client, directory *fakeDirectory, performances *fakePerformances) *Service {
	if directory == nil {
		directory = &fakeDirectory{}
	}
	if performances == nil {
		performances = &fakePerformances{}
	}
	return NewService(Options{
		Client:       client,
		Contracts:    directory,
		Performances: performances,
		Resolver:     ResolverOptions{ContractField: contractField},
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return fixedNow },
	})
}

func findResult(t *testing.T, results []Result, redmineID int64) Result {
	t.Helper()
	for _, result := range results {
		if result.RedmineID == redmineID {
			return result
		}
	}
	t.Fatalf("no result for time entry %d", redmineID)
	return Result{}
}

func TestUserPerformances_Classification(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.addIssue(redmine.Issue{
		ID:           10,
		Subject:      "Build login page",
		CustomFields: []redmine.CustomField{{ID: 1, Name: contractField, Value: redmine.Value("42|extra")}},
	})
	client.addIssue(contractIssue(20, 0, "50|Other customer"))
	client.timeEntries = []redmine.TimeEntry{
		{ID: 1, Project: redmine.Ref{ID: 5}, Issue: &redmine.Ref{ID: 10}, Hours: 2.5, Comments: "styling", SpentOn: "2026-03-16"},
		{ID: 2, Project: redmine.Ref{ID: 99}, Hours: 1, Comments: "standup", SpentOn: "2026-03-16"},
		{ID: 3, Project: redmine.Ref{ID: 100}, Hours: 3, SpentOn: "2026-03-17"},
		{ID: 4, Project: redmine.Ref{ID: 99}, Issue: &redmine.Ref{ID: 20}, Hours: 1, SpentOn: "2026-03-17"},
		{ID: 5, Project: redmine.Ref{ID: 98}, Hours: 0.5, SpentOn: "2026-03-17"},
	}
	directory := &fakeDirectory{
		statuses:    map[int64]bool{42: true, 7: true, 8: false},
		byRedmineID: map[string]int64{"99": 7, "98": 8},
	}

	results, err := newTestService(client, directory, nil).UserPerformances(context.Background(), linkedUser(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, result := range results {
		assert.Equal(t, client.timeEntries[i].ID, result.RedmineID, "results keep redmine ordering")
	}

	first := results[0]
	require.True(t, first.Status.IsValid())
	require.Equal(t, int64(42), *first.ContractID)
	require.True(t, first.IsNew())
	require.False(t, first.Updated)
	require.Equal(t, 2.5, first.Duration)
	require.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), first.Date)
	require.Equal(t, "Build login page\nstyling\n_See [#10](https://redmine.example.com/issues/10)._", first.Description)

	second := results[1]
	require.True(t, second.Status.IsValid())
	require.Equal(t, int64(7), *second.ContractID)
	require.Equal(t, "\nstandup\n_No issue linked._", second.Description)

	third := results[2]
	require.False(t, third.Status.IsValid())
	require.Equal(t, ReasonNoContractLink, third.Status.Reason())
	require.Nil(t, third.ContractID)

	fourth := results[3]
	require.False(t, fourth.Status.IsValid())
	require.Equal(t, "Contract with ID 50 not available for user", fourth.Status.Reason())
	require.Equal(t, int64(50), *fourth.ContractID, "issue contract wins over project mapping")

	fifth := results[4]
	require.False(t, fifth.Status.IsValid())
	require.Equal(t, "Contract with ID 8 isn't active", fifth.Status.Reason())

	require.Len(t, client.timeEntryFilters, 1)
	filter := client.timeEntryFilters[0]
	require.Equal(t, int64(500), filter.UserID)
	require.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), filter.From)
	require.Equal(t, filter.From, filter.To)
}

func TestUserPerformances_IssueOutsideFetchedSetFallsBackToProject(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.timeEntries = []redmine.TimeEntry{
		{ID: 1, Project: redmine.Ref{ID: 99}, Issue: &redmine.Ref{ID: 404}, Hours: 1, Comments: "hidden", SpentOn: "2026-03-16"},
	}
	directory := &fakeDirectory{statuses: map[int64]bool{7: true}, byRedmineID: map[string]int64{"99": 7}}

	results, err := newTestService(client, directory, nil).UserPerformances(context.Background(), linkedUser(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Status.IsValid())
	require.Equal(t, int64(7), *results[0].ContractID)
	require.Equal(t, "\nhidden\n_See [#404](https://redmine.example.com/issues/404)._", results[0].Description)
}

func TestUserPerformances_ChangeDetection(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.timeEntries = []redmine.TimeEntry{
		{ID: 1, Project: redmine.Ref{ID: 99}, Hours: 2, Comments: "same", SpentOn: "2026-03-16"},
		{ID: 2, Project: redmine.Ref{ID: 99}, Hours: 4, Comments: "longer", SpentOn: "2026-03-16"},
		{ID: 3, Project: redmine.Ref{ID: 99}, Hours: 1, Comments: "moved", SpentOn: "2026-03-17"},
		{ID: 4, Project: redmine.Ref{ID: 99}, Hours: 1, Comments: "reworded", SpentOn: "2026-03-17"},
	}
	directory := &fakeDirectory{statuses: map[int64]bool{7: true}, byRedmineID: map[string]int64{"99": 7}}
	day := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	performances := &fakePerformances{imported: map[int64]model.ImportedPerformance{
		1: {ID: 11, RedmineID: 1, Date: day, Duration: 2, Description: "\nsame\n_No issue linked._"},
		2: {ID: 12, RedmineID: 2, Date: day, Duration: 2, Description: "\nlonger\n_No issue linked._"},
		3: {ID: 13, RedmineID: 3, Date: day, Duration: 1, Description: "\nmoved\n_No issue linked._"},
		4: {ID: 14, RedmineID: 4, Date: day.AddDate(0, 0, 1), Duration: 1, Description: "old words"},
	}}

	service := newTestService(client, directory, performances)
	results, err := service.UserPerformances(context.Background(), linkedUser(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	unchanged := findResult(t, results, 1)
	require.Equal(t, int64(11), *unchanged.ID)
	require.False(t, unchanged.Updated)

	require.True(t, findResult(t, results, 2).Updated, "duration changed")
	require.True(t, findResult(t, results, 3).Updated, "date changed")
	require.True(t, findResult(t, results, 4).Updated, "description changed")

	again, err := service.UserPerformances(context.Background(), linkedUser(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, results, again)
}

func TestUserPerformances_NoClientReturnsEmpty(t *testing.T) {
	t.Parallel()

	results, err := newTestService(nil, nil, nil).UserPerformances(context.Background(), linkedUser(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestUserPerformances_NoRedmineUser(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	user := model.User{ID: 3, Username: "ghost"}

	_, err := newTestService(client, nil, nil).UserPerformances(context.Background(), user, time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrNoRedmineUser)
	require.Empty(t, client.userLookups, "users without e-mail are not looked up")
}

func TestUserPerformances_NoEntriesSkipsPrefetch(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	results, err := newTestService(client, nil, nil).UserPerformances(context.Background(), linkedUser(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Empty(t, results)
	require.Empty(t, client.issueFilters)
}

func TestUserPerformances_TransportErrorPropagates(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.timeEntryErr = errors.New("redmine unavailable")

	_, err := newTestService(client, nil, nil).UserPerformances(context.Background(), linkedUser(), time.Time{}, time.Time{})
	require.ErrorIs(t, err, client.timeEntryErr)
}

func TestRedmineUserID(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.users = []redmine.User{
		{ID: 7, Login: "alice"},
		{ID: 8, Login: "bob"},
		{ID: 9, Login: "bob"},
	}
	service := newTestService(client, nil, nil)
	ctx := context.Background()

	id, ok, err := service.RedmineUserID(ctx, linkedUser())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(500), id)

	id, ok, err = service.RedmineUserID(ctx, model.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(7), id)

	_, ok, err = service.RedmineUserID(ctx, model.User{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	require.False(t, ok, "ambiguous lookups do not resolve")

	_, ok, err = service.RedmineUserID(ctx, model.User{Username: "carol", Email: "carol@example.com"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUserIssues(t *testing.T) {
	t.Parallel()

	issues, err := newTestService(nil, nil, nil).UserIssues(context.Background(), linkedUser())
	require.NoError(t, err)
	require.Empty(t, issues)

	client := newFakeClient()
	client.addIssue(contractIssue(3, 0, ""))
	issues, err = newTestService(client, nil, nil).UserIssues(context.Background(), linkedUser())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, int64(500), client.issueFilters[0].AssignedToID)

	issues, err = newTestService(client, nil, nil).UserIssues(context.Background(), model.User{ID: 2, Username: "nobody"})
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestResultMarshalJSON(t *testing.T) {
	t.Parallel()

	result := Result{
		ID:          int64Ptr(3),
		Updated:     true,
		ContractID:  int64Ptr(42),
		RedmineID:   9,
		Duration:    1.5,
		Description: "a\nb\n_No issue linked._",
		Date:        time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		Status:      Invalid("Contract with ID 42 isn't active"),
	}
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"id": 3,
		"updated": true,
		"contract": 42,
		"redmine_id": 9,
		"duration": 1.5,
		"description": "a\nb\n_No issue linked._",
		"date": "2026-03-16",
		"valid": false,
		"invalid_reason": "Contract with ID 42 isn't active"
	}`, string(raw))

	raw, err = json.Marshal(Result{RedmineID: 1, Status: Valid(), Date: result.Date})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":null,"updated":false,"contract":null,"redmine_id":1,"duration":0,"description":"","date":"2026-03-16","valid":true,"invalid_reason":null}`, string(raw))
}
