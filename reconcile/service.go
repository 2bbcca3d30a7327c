package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ninetofiver/internal/timeutil"
	"ninetofiver/metrics"
	"ninetofiver/model"
	"ninetofiver/redmine"
)

// ErrNoRedmineUser is returned when a user cannot be mapped to a Redmine account.
var ErrNoRedmineUser = errors.New("no redmine user id found")

// ContractDirectory exposes the contracts known locally.
type ContractDirectory interface {
	// UserContractStatuses maps the ids of contracts the user is assigned to
	// onto their active flag.
	UserContractStatuses(userID int64) (map[int64]bool, error)
	// ContractIDsByRedmineID maps external Redmine ids of all contracts onto
	// contract ids.
	ContractIDsByRedmineID() (map[string]int64, error)
}

type PerformanceStore interface {
	RedminePerformances(userID int64, redmineIDs []int64) (map[int64]model.ImportedPerformance, error)
}

type Options struct {
	// Client may be nil when Redmine is not configured.
	Client       redmine.Client
	Contracts    ContractDirectory
	Performances PerformanceStore
	Resolver     ResolverOptions
	Logger       zerolog.Logger
	Now          func() time.Time
}

type Service struct {
	client       redmine.Client
	contracts    ContractDirectory
	performances PerformanceStore
	resolver     *Resolver
	log          zerolog.Logger
	now          func() time.Time
}

func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		client:       opts.Client,
		contracts:    opts.Contracts,
		performances: opts.Performances,
		resolver:     NewResolver(opts.Resolver, opts.Logger),
		log:          opts.Logger,
		now:          now,
	}
}

// Configured reports whether a Redmine client was injected.
func (s *Service) Configured() bool {
	return s.client != nil
}

// RedmineUserID returns the Redmine account of user. A stored id wins; users
// with an e-mail address are otherwise looked up by username and resolve only
// on exactly one match.
func (s *Service) RedmineUserID(ctx context.Context, user model.User) (int64, bool, error) {
	if user.RedmineID != nil && *user.RedmineID > 0 {
		return *user.RedmineID, true, nil
	}
	if strings.TrimSpace(user.Email) == "" || s.client == nil {
		return 0, false, nil
	}

	matches, err := s.client.FindUsersByName(ctx, user.Username, 2)
	if err != nil {
		return 0, false, fmt.Errorf("look up redmine user %q: %w", user.Username, err)
	}
	if len(matches) != 1 {
		return 0, false, nil
	}
	return matches[0].ID, true, nil
}

// UserIssues returns the Redmine issues assigned to user. It is empty when
// Redmine is not configured or the user has no Redmine account.
func (s *Service) UserIssues(ctx context.Context, user model.User) ([]redmine.Issue, error) {
	if s.client == nil {
		s.log.Debug().Msg("no redmine client configured")
		return []redmine.Issue{}, nil
	}

	redmineUserID, ok, err := s.RedmineUserID(ctx, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug().Int64("user_id", user.ID).Msg("no redmine user id found")
		return []redmine.Issue{}, nil
	}

	issues, err := s.client.ListIssues(ctx, redmine.IssueFilter{AssignedToID: redmineUserID})
	if err != nil {
		return nil, fmt.Errorf("list issues assigned to redmine user %d: %w", redmineUserID, err)
	}
	return issues, nil
}

// UserPerformances reconciles the user's Redmine time entries between from and
// to (inclusive, defaulting to today) against local contracts and previously
// imported performances. Results keep Redmine's ordering.
func (s *Service) UserPerformances(ctx context.Context, user model.User, from, to time.Time) ([]Result, error) {
	if s.client == nil {
		s.log.Debug().Msg("no redmine client configured")
		return []Result{}, nil
	}

	redmineUserID, ok, err := s.RedmineUserID(ctx, user)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug().Int64("user_id", user.ID).Msg("no redmine user id found")
		return nil, fmt.Errorf("user %d (%s): %w", user.ID, user.Username, ErrNoRedmineUser)
	}

	today := timeutil.StartOfDay(s.now())
	if from.IsZero() {
		from = today
	}
	if to.IsZero() {
		to = today
	}

	entries, err := s.client.ListTimeEntries(ctx, redmine.TimeEntryFilter{From: from, To: to, UserID: redmineUserID})
	if err != nil {
		return nil, fmt.Errorf("list time entries of redmine user %d: %w", redmineUserID, err)
	}
	if len(entries) == 0 {
		return []Result{}, nil
	}

	issues, rounds, err := s.resolver.PrefetchIssues(ctx, s.client, entries)
	if err != nil {
		return nil, err
	}
	metrics.ObservePrefetchRounds(rounds)

	statuses, err := s.contracts.UserContractStatuses(user.ID)
	if err != nil {
		return nil, fmt.Errorf("load contracts of user %d: %w", user.ID, err)
	}
	byRedmineID, err := s.contracts.ContractIDsByRedmineID()
	if err != nil {
		return nil, fmt.Errorf("load redmine contract mapping: %w", err)
	}

	entryIDs := make([]int64, 0, len(entries))
	for _, entry := range entries {
		entryIDs = append(entryIDs, entry.ID)
	}
	imported, err := s.performances.RedminePerformances(user.ID, entryIDs)
	if err != nil {
		return nil, fmt.Errorf("load imported performances of user %d: %w", user.ID, err)
	}

	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		result, err := s.reconcileEntry(entry, issues, statuses, byRedmineID, imported)
		if err != nil {
			return nil, err
		}
		metrics.ObserveTimeEntry(result.Status.IsValid(), result.Updated)
		results = append(results, result)
	}

	return results, nil
}

func (s *Service) reconcileEntry(
	entry redmine.TimeEntry,
	issues map[int64]redmine.Issue,
	statuses map[int64]bool,
	byRedmineID map[string]int64,
	imported map[int64]model.ImportedPerformance,
) (Result, error) {
	spentOn, err := entry.SpentOnDate()
	if err != nil {
		return Result{}, err
	}

	var contractID int64
	found := false
	if entry.Issue != nil {
		contractID, found = s.resolver.ContractFromIssue(entry.Issue.ID, issues)
	}
	if !found {
		contractID, found = byRedmineID[strconv.FormatInt(entry.Project.ID, 10)]
	}

	status := Valid()
	switch {
	case !found:
		s.log.Debug().Int64("time_entry_id", entry.ID).Msg("no contract found for redmine time entry")
		status = Invalid(ReasonNoContractLink)
	default:
		active, assigned := statuses[contractID]
		switch {
		case !assigned:
			s.log.Debug().
				Int64("time_entry_id", entry.ID).
				Int64("contract_id", contractID).
				Msg("contract found but not available to user")
			status = contractNotAvailable(contractID)
		case !active:
			s.log.Debug().
				Int64("time_entry_id", entry.ID).
				Int64("contract_id", contractID).
				Msg("contract found but not active")
			status = contractInactive(contractID)
		}
	}

	subject := ""
	var issueID *int64
	if entry.Issue != nil {
		id := entry.Issue.ID
		issueID = &id
		if issue, ok := issues[id]; ok {
			subject = issue.Subject
		}
	}
	description := composeDescription(subject, entry.Comments, issueID, s.client.BaseURL())

	result := Result{
		RedmineID:   entry.ID,
		Duration:    entry.Hours,
		Description: description,
		Date:        spentOn,
		Status:      status,
	}
	if found {
		id := contractID
		result.ContractID = &id
	}
	if previous, ok := imported[entry.ID]; ok {
		id := previous.ID
		result.ID = &id
		result.Updated = timeutil.FormatDay(previous.Date) != timeutil.FormatDay(spentOn) ||
			previous.Duration != entry.Hours ||
			previous.Description != description
	}

	return result, nil
}
