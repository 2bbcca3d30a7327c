package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"ninetofiver/redmine"
)

// ResolverOptions control how a contract id is read from issue custom fields.
type ResolverOptions struct {
	// ContractField is the custom field name carrying "<contract id>|<label>".
	ContractField string
	// ScanAllFields inspects every custom field of an issue. When false only
	// the first custom field is looked at, matching the historical importer.
	ScanAllFields bool
}

type Resolver struct {
	opts ResolverOptions
	log  zerolog.Logger
}

func NewResolver(opts ResolverOptions, log zerolog.Logger) *Resolver {
	return &Resolver{opts: opts, log: log}
}

// ParseContractValue returns the contract id held in the first "|" segment.
func ParseContractValue(value string) (int64, error) {
	segment := strings.TrimSpace(strings.SplitN(value, "|", 2)[0])
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse contract id %q: %w", segment, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("contract id must be > 0, got %d", id)
	}
	return id, nil
}

// IssueContract returns the contract id carried by the issue itself.
// Malformed values are logged and treated as absent.
func (r *Resolver) IssueContract(issue redmine.Issue) (int64, bool) {
	for _, field := range issue.CustomFields {
		if field.Name == r.opts.ContractField && field.Value.Present() {
			id, err := ParseContractValue(field.Value.Value)
			if err == nil {
				return id, true
			}
			r.log.Debug().
				Int64("issue_id", issue.ID).
				Str("value", field.Value.Value).
				Err(err).
				Msg("ignoring malformed contract field")
		}
		if !r.opts.ScanAllFields {
			break
		}
	}
	return 0, false
}

// ContractFromIssue walks from issueID up the parent chain and returns the
// first contract id found. A parent missing from issues ends the walk.
func (r *Resolver) ContractFromIssue(issueID int64, issues map[int64]redmine.Issue) (int64, bool) {
	visited := make(map[int64]struct{})
	current := issueID
	for {
		if _, seen := visited[current]; seen {
			return 0, false
		}
		visited[current] = struct{}{}

		issue, ok := issues[current]
		if !ok {
			return 0, false
		}
		if id, found := r.IssueContract(issue); found {
			return id, true
		}
		if issue.Parent == nil {
			return 0, false
		}
		current = issue.Parent.ID
	}
}

// PrefetchIssues fetches every issue referenced by entries and, round by round,
// the parents of fetched issues that carry no contract. It returns the union of
// all fetched issues and the number of batch requests made.
func (r *Resolver) PrefetchIssues(ctx context.Context, client redmine.Client, entries []redmine.TimeEntry) (map[int64]redmine.Issue, int, error) {
	issues := make(map[int64]redmine.Issue)
	requested := make(map[int64]struct{})

	frontier := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if entry.Issue == nil {
			continue
		}
		if _, ok := requested[entry.Issue.ID]; ok {
			continue
		}
		requested[entry.Issue.ID] = struct{}{}
		frontier = append(frontier, entry.Issue.ID)
	}

	rounds := 0
	for len(frontier) > 0 {
		rounds++
		fetched, err := client.ListIssues(ctx, redmine.IssueFilter{IDs: frontier, StatusID: "*"})
		if err != nil {
			return nil, rounds, fmt.Errorf("fetch issues %s: %w", redmine.JoinIDs(frontier), err)
		}

		next := make([]int64, 0)
		for _, issue := range fetched {
			issues[issue.ID] = issue
			if _, found := r.IssueContract(issue); found {
				continue
			}
			if issue.Parent == nil {
				continue
			}
			if _, ok := requested[issue.Parent.ID]; ok {
				continue
			}
			requested[issue.Parent.ID] = struct{}{}
			next = append(next, issue.Parent.ID)
		}
		frontier = next
	}

	return issues, rounds, nil
}
