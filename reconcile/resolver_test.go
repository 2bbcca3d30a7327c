package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ninetofiver/redmine"
)

const contractField = "Contract"

func contractIssue(id int64, parent int64, value string) redmine.Issue {
	issue := redmine.Issue{ID: id, Subject: "issue"}
	if parent > 0 {
		issue.Parent = &redmine.Ref{ID: parent}
	}
	if value != "" {
		issue.CustomFields = []redmine.CustomField{{ID: 1, Name: contractField, Value: redmine.Value(value)}}
	}
	return issue
}

func issueMap(issues ...redmine.Issue) map[int64]redmine.Issue {
	out := make(map[int64]redmine.Issue, len(issues))
	for _, issue := range issues {
		out[issue.ID] = issue
	}
	return out
}

func newTestResolver(scanAll bool) *Resolver {
	return NewResolver(ResolverOptions{ContractField: contractField, ScanAllFields: scanAll}, zerolog.Nop())
}

func TestParseContractValue(t *testing.T) {
	t.Parallel()

	id, err := ParseContractValue("42|extra|more")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	id, err = ParseContractValue(" 7 ")
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	_, err = ParseContractValue("abc|42")
	require.Error(t, err)
	_, err = ParseContractValue("0|zero")
	require.Error(t, err)
}

func TestContractFromIssue_OwnField(t *testing.T) {
	t.Parallel()

	issues := issueMap(contractIssue(10, 0, "42|extra"))
	id, ok := newTestResolver(false).ContractFromIssue(10, issues)
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

func TestContractFromIssue_WalksToRoot(t *testing.T) {
	t.Parallel()

	issues := issueMap(
		contractIssue(1, 0, "5|root"),
		contractIssue(2, 1, ""),
		contractIssue(3, 2, ""),
		contractIssue(4, 3, ""),
	)
	id, ok := newTestResolver(false).ContractFromIssue(4, issues)
	require.True(t, ok)
	require.Equal(t, int64(5), id)
}

func TestContractFromIssue_NearestAncestorWins(t *testing.T) {
	t.Parallel()

	issues := issueMap(
		contractIssue(1, 0, "5"),
		contractIssue(2, 1, "6"),
		contractIssue(3, 2, ""),
	)
	id, ok := newTestResolver(false).ContractFromIssue(3, issues)
	require.True(t, ok)
	require.Equal(t, int64(6), id)
}

func TestContractFromIssue_ParentOutsideFetchedSet(t *testing.T) {
	t.Parallel()

	issues := issueMap(contractIssue(3, 99, ""))
	_, ok := newTestResolver(false).ContractFromIssue(3, issues)
	require.False(t, ok)

	_, ok = newTestResolver(false).ContractFromIssue(404, issues)
	require.False(t, ok)
}

func TestContractFromIssue_CycleTerminates(t *testing.T) {
	t.Parallel()

	issues := issueMap(contractIssue(1, 2, ""), contractIssue(2, 1, ""))
	_, ok := newTestResolver(false).ContractFromIssue(1, issues)
	require.False(t, ok)
}

func TestContractFromIssue_MalformedValueContinuesToParent(t *testing.T) {
	t.Parallel()

	issues := issueMap(
		contractIssue(1, 0, "11"),
		contractIssue(2, 1, "n/a|broken"),
	)
	id, ok := newTestResolver(false).ContractFromIssue(2, issues)
	require.True(t, ok)
	require.Equal(t, int64(11), id)
}

func TestIssueContract_OnlyFirstFieldUnlessScanningAll(t *testing.T) {
	t.Parallel()

	issue := redmine.Issue{
		ID: 1,
		CustomFields: []redmine.CustomField{
			{ID: 9, Name: "Team", Value: redmine.Value("core")},
			{ID: 1, Name: contractField, Value: redmine.Value("42")},
		},
	}

	_, ok := newTestResolver(false).IssueContract(issue)
	require.False(t, ok, "contract field after the first custom field is not inspected")

	id, ok := newTestResolver(true).IssueContract(issue)
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

func TestIssueContract_EmptyValueIsAbsent(t *testing.T) {
	t.Parallel()

	issue := redmine.Issue{
		ID:           1,
		CustomFields: []redmine.CustomField{{ID: 1, Name: contractField, Value: redmine.Value("")}},
	}
	_, ok := newTestResolver(true).IssueContract(issue)
	require.False(t, ok)
}

func TestPrefetchIssues_DepthNChainNeedsNRounds(t *testing.T) {
	t.Parallel()

	const depth = 4
	client := newFakeClient()
	client.addIssue(contractIssue(1, 0, "77|root"))
	for id := int64(2); id <= depth; id++ {
		client.addIssue(contractIssue(id, id-1, ""))
	}

	entries := []redmine.TimeEntry{{ID: 1, Issue: &redmine.Ref{ID: depth}}}
	resolver := newTestResolver(false)
	issues, rounds, err := resolver.PrefetchIssues(context.Background(), client, entries)
	require.NoError(t, err)
	require.Equal(t, depth, rounds)
	require.Len(t, issues, depth)

	id, ok := resolver.ContractFromIssue(depth, issues)
	require.True(t, ok)
	require.Equal(t, int64(77), id)
}

func TestPrefetchIssues_BatchesAndSkipsResolvedIssues(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.addIssue(contractIssue(1, 0, "1"))
	client.addIssue(contractIssue(10, 1, "3"))
	client.addIssue(contractIssue(11, 1, ""))
	client.addIssue(contractIssue(12, 0, ""))

	entries := []redmine.TimeEntry{
		{ID: 1, Issue: &redmine.Ref{ID: 10}},
		{ID: 2, Issue: &redmine.Ref{ID: 11}},
		{ID: 3, Issue: &redmine.Ref{ID: 11}},
		{ID: 4, Issue: &redmine.Ref{ID: 12}},
		{ID: 5},
	}

	issues, rounds, err := newTestResolver(false).PrefetchIssues(context.Background(), client, entries)
	require.NoError(t, err)
	require.Equal(t, 2, rounds)
	require.Len(t, issues, 4)
	require.Equal(t, [][]int64{{10, 11, 12}, {1}}, client.issueBatches)
	for _, filter := range client.issueFilters {
		require.Equal(t, "*", filter.StatusID)
	}
}

func TestPrefetchIssues_NoIssuesNoRequests(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	issues, rounds, err := newTestResolver(false).PrefetchIssues(context.Background(), client, []redmine.TimeEntry{{ID: 1}})
	require.NoError(t, err)
	require.Zero(t, rounds)
	require.Empty(t, issues)
	require.Empty(t, client.issueBatches)
}

func TestPrefetchIssues_PropagatesTransportError(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.issueErr = errors.New("connection reset")
	_, _, err := newTestResolver(false).PrefetchIssues(context.Background(), client, []redmine.TimeEntry{{ID: 1, Issue: &redmine.Ref{ID: 3}}})
	require.Error(t, err)
	require.ErrorIs(t, err, client.issueErr)
}
