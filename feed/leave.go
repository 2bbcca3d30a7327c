// Package feed renders calendar feeds.
package feed

import (
	"strconv"
	"strings"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"ninetofiver/model"
)

const (
	LeaveProductID   = "-//ninetofiver//LeaveFeed//EN"
	LeaveFileName    = "leave.ics"
	LeaveTitle       = "Leave"
	LeaveTimezone    = "UTC"
	CalendarMIMEType = "text/calendar; charset=utf-8"
)

// leaveNamespace scopes event UIDs so they stay stable across renders.
var leaveNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ninetofiver/feeds/leave"))

// LeaveFeed renders leave dates as an iCalendar feed. Link, when set, is
// attached to every event.
type LeaveFeed struct {
	Link string
}

// Render returns the feed for items in the given order.
func (f LeaveFeed) Render(items []model.LeaveDate) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(LeaveProductID)
	cal.SetXWRCalName(LeaveTitle)
	cal.SetXWRCalDesc(LeaveTitle)
	cal.SetXWRTimezone(LeaveTimezone)

	for _, item := range items {
		event := cal.AddEvent(EventUID(item.ID))
		event.SetSummary(item.Leave.String())
		event.SetDescription(item.Leave.Description)
		event.SetStartAt(item.StartsAt.UTC())
		event.SetEndAt(item.EndsAt.UTC())
		if !item.Leave.CreatedAt.IsZero() {
			event.SetCreatedTime(item.Leave.CreatedAt.UTC())
			event.SetDtStampTime(item.Leave.CreatedAt.UTC())
		}
		if !item.Leave.UpdatedAt.IsZero() {
			event.SetModifiedAt(item.Leave.UpdatedAt.UTC())
		}
		if f.Link != "" {
			event.SetURL(f.Link)
		}
		if email := strings.TrimSpace(item.Leave.User.Email); email != "" {
			event.SetOrganizer("mailto:"+email, ics.WithCN(item.Leave.User.DisplayName()))
		}
		if status := EventStatus(item.Leave.Status); status != "" {
			event.SetStatus(status)
		}
	}

	return cal.Serialize()
}

// EventUID derives the event UID of a leave date from its id.
func EventUID(leaveDateID int64) string {
	return uuid.NewSHA1(leaveNamespace, []byte(strconv.FormatInt(leaveDateID, 10))).String()
}

// EventStatus maps a leave status onto an iCalendar event status. Unknown
// statuses pass through upper-cased.
func EventStatus(status string) ics.ObjectStatus {
	switch status {
	case model.StatusPending:
		return ics.ObjectStatusTentative
	case model.StatusApproved:
		return ics.ObjectStatusConfirmed
	case model.StatusRejected:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatus(strings.ToUpper(strings.TrimSpace(status)))
	}
}
