package reconcile

import (
	"fmt"
	"strconv"

	"ninetofiver/model"
)

// PerformanceWriter persists reconciled time entries as performances.
type PerformanceWriter interface {
	// TimesheetFor returns the user's timesheet of the month, creating it when missing.
	TimesheetFor(userID int64, year, month int) (model.Timesheet, error)
	InsertPerformance(performance model.Performance) (int64, error)
	UpdatePerformance(performance model.Performance) error
}

type ApplyResult struct {
	Inserted  int
	Updated   int
	Unchanged int
	Invalid   int
	Locked    int
}

// Apply imports valid results: new entries are inserted, changed entries are
// updated and everything else is counted. Entries whose timesheet is closed
// are left alone.
func Apply(store PerformanceWriter, user model.User, results []Result) (*ApplyResult, error) {
	out := &ApplyResult{}
	for _, result := range results {
		if !result.Status.IsValid() || result.ContractID == nil {
			out.Invalid++
			continue
		}
		if !result.IsNew() && !result.Updated {
			out.Unchanged++
			continue
		}

		timesheet, err := store.TimesheetFor(user.ID, result.Date.Year(), int(result.Date.Month()))
		if err != nil {
			return out, fmt.Errorf("timesheet for time entry %d: %w", result.RedmineID, err)
		}
		if timesheet.Status == model.StatusClosed {
			out.Locked++
			continue
		}

		performance := model.Performance{
			TimesheetID: timesheet.ID,
			ContractID:  *result.ContractID,
			Date:        result.Date,
			Duration:    result.Duration,
			Description: result.Description,
			RedmineID:   strconv.FormatInt(result.RedmineID, 10),
		}

		if result.IsNew() {
			if _, err := store.InsertPerformance(performance); err != nil {
				return out, fmt.Errorf("import time entry %d: %w", result.RedmineID, err)
			}
			out.Inserted++
			continue
		}

		performance.ID = *result.ID
		if err := store.UpdatePerformance(performance); err != nil {
			return out, fmt.Errorf("update time entry %d: %w", result.RedmineID, err)
		}
		out.Updated++
	}
	return out, nil
}
