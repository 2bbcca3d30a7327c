package redmine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Ref is the {id, name} pair Redmine embeds for related resources.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Mail      string `json:"mail"`
}

type Project struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
}

type CustomField struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Value FieldValue `json:"value"`
}

type Issue struct {
	ID           int64         `json:"id"`
	Subject      string        `json:"subject"`
	Project      Ref           `json:"project"`
	Parent       *Ref          `json:"parent,omitempty"`
	CustomFields []CustomField `json:"custom_fields"`
}

type TimeEntry struct {
	ID       int64   `json:"id"`
	Project  Ref     `json:"project"`
	Issue    *Ref    `json:"issue,omitempty"`
	User     Ref     `json:"user"`
	Hours    float64 `json:"hours"`
	Comments string  `json:"comments"`
	SpentOn  string  `json:"spent_on"`
}

// SpentOnDate parses SpentOn as a calendar day in UTC.
func (e TimeEntry) SpentOnDate() (time.Time, error) {
	parsed, err := time.Parse(dayLayout, strings.TrimSpace(e.SpentOn))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse spent_on %q of time entry %d: %w", e.SpentOn, e.ID, err)
	}
	return parsed, nil
}

// FieldValue supports custom field values that are strings, null, or arrays
// (multi-value fields). Array values are joined with "|".
type FieldValue struct {
	Valid bool
	Value string
}

func Value(value string) FieldValue {
	return FieldValue{Valid: true, Value: value}
}

// Present reports whether the value is set and non-blank.
func (v FieldValue) Present() bool {
	return v.Valid && strings.TrimSpace(v.Value) != ""
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Value)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "" || text == "null" {
		*v = FieldValue{}
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*v = FieldValue{Valid: true, Value: asString}
		return nil
	}

	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		if len(asList) == 0 {
			*v = FieldValue{}
			return nil
		}
		*v = FieldValue{Valid: true, Value: strings.Join(asList, "|")}
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*v = FieldValue{Valid: true, Value: asNumber.String()}
		return nil
	}

	return fmt.Errorf("unsupported custom field value %s", text)
}

type IssueFilter struct {
	IDs          []int64
	AssignedToID int64
	// StatusID is passed verbatim; "*" includes closed issues.
	StatusID string
}

type TimeEntryFilter struct {
	From   time.Time
	To     time.Time
	UserID int64
}

type page struct {
	TotalCount int `json:"total_count"`
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
}

type usersPage struct {
	page
	Users []User `json:"users"`
}

type projectsPage struct {
	page
	Projects []Project `json:"projects"`
}

type issuesPage struct {
	page
	Issues []Issue `json:"issues"`
}

type timeEntriesPage struct {
	page
	TimeEntries []TimeEntry `json:"time_entries"`
}
