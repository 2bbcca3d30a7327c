package reconcile

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	ReasonNoContractLink = "No contract link found"

	issueLinkFormat   = "_See [#%d](%s/issues/%d)._"
	noIssueLinkedText = "_No issue linked._"
)

// Status is the outcome of classifying one time entry: either valid, or
// invalid with a human readable reason.
type Status struct {
	reason string
}

func Valid() Status {
	return Status{}
}

func Invalid(reason string) Status {
	if reason == "" {
		reason = "invalid"
	}
	return Status{reason: reason}
}

func (s Status) IsValid() bool {
	return s.reason == ""
}

// Reason is empty for valid results.
func (s Status) Reason() string {
	return s.reason
}

func contractNotAvailable(contractID int64) Status {
	return Invalid(fmt.Sprintf("Contract with ID %d not available for user", contractID))
}

func contractInactive(contractID int64) Status {
	return Invalid(fmt.Sprintf("Contract with ID %d isn't active", contractID))
}

// Result is the reconciled view of one Redmine time entry. ID is the local
// performance id when the entry was imported before, nil otherwise.
type Result struct {
	ID          *int64
	Updated     bool
	ContractID  *int64
	RedmineID   int64
	Duration    float64
	Description string
	Date        time.Time
	Status      Status
}

type resultJSON struct {
	ID            *int64  `json:"id"`
	Updated       bool    `json:"updated"`
	Contract      *int64  `json:"contract"`
	RedmineID     int64   `json:"redmine_id"`
	Duration      float64 `json:"duration"`
	Description   string  `json:"description"`
	Date          string  `json:"date"`
	Valid         bool    `json:"valid"`
	InvalidReason *string `json:"invalid_reason"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		ID:          r.ID,
		Updated:     r.Updated,
		Contract:    r.ContractID,
		RedmineID:   r.RedmineID,
		Duration:    r.Duration,
		Description: r.Description,
		Date:        r.Date.Format("2006-01-02"),
		Valid:       r.Status.IsValid(),
	}
	if !r.Status.IsValid() {
		reason := r.Status.Reason()
		out.InvalidReason = &reason
	}
	return json.Marshal(out)
}

// IsNew reports whether the entry has never been imported.
func (r Result) IsNew() bool {
	return r.ID == nil
}

func composeDescription(subject, comment string, issueID *int64, baseURL string) string {
	link := noIssueLinkedText
	if issueID != nil {
		link = fmt.Sprintf(issueLinkFormat, *issueID, baseURL, *issueID)
	}
	return fmt.Sprintf("%s\n%s\n%s", subject, comment, link)
}
