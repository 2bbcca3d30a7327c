package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ninetofiver/config"
	"ninetofiver/model"
	"ninetofiver/output"
	"ninetofiver/reconcile"
)

var (
	syncUsers       []string
	syncAll         bool
	syncFrom        string
	syncTo          string
	syncApply       bool
	syncOutput      string
	syncFormat      string
	syncMode        string
	syncConcurrency int
)

var redmineSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile Redmine time entries against local contracts.",
	Long: `Fetch the Redmine time entries of one or more local users and classify each
entry against the contracts the user is assigned to.

For every entry the contract is taken from the issue's contract custom field,
walking up the parent issues until one carries a value, or else from the
contract linked to the entry's project. An entry is valid when that contract is
assigned to the user and active.

Without --apply nothing is written. With --apply valid new entries are stored
as performances and changed ones are updated, unless their timesheet is closed.

Dates accept YYYY-MM-DD or relative days such as "yesterday" or "last monday";
both default to today. With --all, users are processed concurrently and a
failure of one user does not stop the others.`,
	Example: `
  # Preview today's entries of one user
  ninetofiver redmine sync --user jdoe

  # Reconcile a range for two users and export the rows
  ninetofiver redmine sync -u jdoe -u asmith --from 2026-03-01 --to 2026-03-31 --output ./march.xlsx

  # Import yesterday's entries of every active user
  ninetofiver redmine sync --all --from yesterday --to yesterday --apply

  # Export per-day totals instead of rows
  ninetofiver redmine sync --all --from "last monday" --mode daily --output ./week.csv
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncAll == (len(syncUsers) > 0) {
			return errors.New("pass either --user or --all")
		}
		mode := strings.ToLower(strings.TrimSpace(syncMode))
		if mode != "rows" && mode != "daily" {
			return fmt.Errorf("unsupported sync mode: %s (supported: rows, daily)", syncMode)
		}

		now := time.Now()
		from, err := parseDayFlag("from", syncFrom, now)
		if err != nil {
			return err
		}
		to, err := parseDayFlag("to", syncTo, now)
		if err != nil {
			return err
		}
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			return errors.New("invalid range: --from must be <= --to")
		}

		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		client, err := requireRedmineClient(cfg, log.Logger)
		if err != nil {
			return err
		}

		store, err := openStore(redmineDBPath, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := syncTargets(store, syncAll, syncUsers)
		if err != nil {
			return err
		}

		service := reconcile.NewService(reconcile.Options{
			Client:       client,
			Contracts:    store,
			Performances: store,
			Resolver:     resolverOptions(cfg),
			Logger:       log.Logger,
		})

		outcomes := runSync(cmd.Context(), service, users, from, to, syncConcurrency)

		if syncApply {
			applySync(store, outcomes)
		}

		for _, outcome := range outcomes {
			printSyncOutcome(os.Stdout, outcome)
		}
		summary := summarizeSync(outcomes)
		fmt.Println(summary.String(syncApply))

		if strings.TrimSpace(syncOutput) != "" {
			table := syncTable(outcomes, mode)
			if err := writeTable(syncOutput, syncFormat, table); err != nil {
				return err
			}
			fmt.Printf("Export completed. Rows: %d, Mode: %s, File: %s\n", len(table.Rows), mode, syncOutput)
		}

		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d users failed", summary.Failed, len(outcomes))
		}
		return nil
	},
}

type activeUserLister interface {
	userLookup
	ListActiveUsers() ([]model.User, error)
}

func syncTargets(store activeUserLister, all bool, names []string) ([]model.User, error) {
	if all {
		return store.ListActiveUsers()
	}
	users := make([]model.User, 0, len(names))
	for _, name := range names {
		user, err := findUser(store, name)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

type syncOutcome struct {
	User    model.User
	Results []reconcile.Result
	Applied *reconcile.ApplyResult
	Err     error
}

type userReconciler interface {
	UserPerformances(ctx context.Context, user model.User, from, to time.Time) ([]reconcile.Result, error)
}

// runSync reconciles every user with at most limit users in flight. Errors are
// kept per user; outcomes follow the order of users.
func runSync(ctx context.Context, service userReconciler, users []model.User, from, to time.Time, limit int) []syncOutcome {
	outcomes := make([]syncOutcome, len(users))
	if limit <= 0 {
		limit = 1
	}

	var group errgroup.Group
	group.SetLimit(limit)
	for i, user := range users {
		group.Go(func() error {
			results, err := service.UserPerformances(ctx, user, from, to)
			outcomes[i] = syncOutcome{User: user, Results: results, Err: err}
			if err != nil {
				log.Error().Err(err).Str("user", user.Username).Msg("redmine sync failed")
			}
			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}

// applySync stores results one user at a time; SQLite serializes writers anyway.
func applySync(store reconcile.PerformanceWriter, outcomes []syncOutcome) {
	for i := range outcomes {
		if outcomes[i].Err != nil {
			continue
		}
		applied, err := reconcile.Apply(store, outcomes[i].User, outcomes[i].Results)
		outcomes[i].Applied = applied
		if err != nil {
			outcomes[i].Err = fmt.Errorf("apply results: %w", err)
			log.Error().Err(err).Str("user", outcomes[i].User.Username).Msg("applying redmine results failed")
		}
	}
}

var (
	invalidRow = color.New(color.FgRed)
	updatedRow = color.New(color.FgYellow)
	newRow     = color.New(color.FgGreen)
	userHeader = color.New(color.Bold)
)

func printSyncOutcome(w io.Writer, outcome syncOutcome) {
	userHeader.Fprintf(w, "%s (%s)\n", outcome.User.DisplayName(), outcome.User.Username)
	if outcome.Err != nil {
		invalidRow.Fprintf(w, "  error: %v\n", outcome.Err)
		return
	}
	if len(outcome.Results) == 0 {
		fmt.Fprintln(w, "  no time entries")
		return
	}

	for _, result := range outcome.Results {
		contract := "-"
		if result.ContractID != nil {
			contract = fmt.Sprintf("%d", *result.ContractID)
		}
		description := strings.ReplaceAll(strings.TrimSpace(result.Description), "\n", " | ")
		line := fmt.Sprintf("  #%-8d %s %6.2fh  contract %-6s %s", result.RedmineID, result.Date.Format("2006-01-02"), result.Duration, contract, description)

		switch {
		case !result.Status.IsValid():
			invalidRow.Fprintf(w, "%s  [%s]\n", line, result.Status.Reason())
		case result.IsNew():
			newRow.Fprintf(w, "%s  [new]\n", line)
		case result.Updated:
			updatedRow.Fprintf(w, "%s  [updated]\n", line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

type syncSummary struct {
	Users     int
	Failed    int
	Entries   int
	Valid     int
	Invalid   int
	New       int
	Updated   int
	Inserted  int
	Changed   int
	Unchanged int
	Locked    int
}

func summarizeSync(outcomes []syncOutcome) syncSummary {
	var summary syncSummary
	for _, outcome := range outcomes {
		summary.Users++
		if outcome.Err != nil {
			summary.Failed++
		}
		for _, result := range outcome.Results {
			summary.Entries++
			if !result.Status.IsValid() {
				summary.Invalid++
				continue
			}
			summary.Valid++
			if result.IsNew() {
				summary.New++
			} else if result.Updated {
				summary.Updated++
			}
		}
		if outcome.Applied != nil {
			summary.Inserted += outcome.Applied.Inserted
			summary.Changed += outcome.Applied.Updated
			summary.Unchanged += outcome.Applied.Unchanged
			summary.Locked += outcome.Applied.Locked
		}
	}
	return summary
}

func (s syncSummary) String(applied bool) string {
	line := fmt.Sprintf(
		"Sync completed. Users: %d, Failed users: %d, Entries: %d, Valid: %d, Invalid: %d, New: %d, Updated: %d",
		s.Users, s.Failed, s.Entries, s.Valid, s.Invalid, s.New, s.Updated,
	)
	if applied {
		line += fmt.Sprintf("\nApply completed. Inserted: %d, Updated: %d, Unchanged: %d, Locked: %d", s.Inserted, s.Changed, s.Unchanged, s.Locked)
	}
	return line
}

// syncTable prefixes every row with the username.
func syncTable(outcomes []syncOutcome, mode string) output.Table {
	build := output.ResultsTable
	if mode == "daily" {
		build = func(results []reconcile.Result) output.Table {
			return output.DailyTotalsTable(output.BuildDailyTotals(results))
		}
	}

	out := output.Table{Headers: append([]string{"User"}, build(nil).Headers...)}
	for _, outcome := range outcomes {
		table := build(outcome.Results)
		for _, row := range table.Rows {
			out.Rows = append(out.Rows, append([]string{outcome.User.Username}, row...))
		}
	}
	return out
}

func init() {
	redmineCmd.AddCommand(redmineSyncCmd)

	redmineSyncCmd.Flags().StringSliceVarP(&syncUsers, "user", "u", nil, "Local username or user id (repeatable)")
	redmineSyncCmd.Flags().BoolVar(&syncAll, "all", false, "Reconcile every active user")
	redmineSyncCmd.Flags().StringVar(&syncFrom, "from", "", "First day (YYYY-MM-DD or relative, default today)")
	redmineSyncCmd.Flags().StringVar(&syncTo, "to", "", "Last day (YYYY-MM-DD or relative, default today)")
	redmineSyncCmd.Flags().BoolVar(&syncApply, "apply", false, "Store valid entries as performances")
	redmineSyncCmd.Flags().StringVarP(&syncOutput, "output", "o", "", "Optional export file path")
	redmineSyncCmd.Flags().StringVarP(&syncFormat, "format", "f", "", "Export format: csv|excel (optional, inferred from output extension)")
	redmineSyncCmd.Flags().StringVar(&syncMode, "mode", "rows", "Export mode: rows|daily")
	redmineSyncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 4, "Users reconciled in parallel")
}
