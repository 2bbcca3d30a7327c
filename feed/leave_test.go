package feed

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/require"

	"ninetofiver/model"
)

func leaveDate(id int64, status string, start time.Time) model.LeaveDate {
	return model.LeaveDate{
		ID: id,
		Leave: model.Leave{
			ID:          id * 10,
			User:        model.User{ID: 1, Username: "jdoe", FirstName: "John", LastName: "Doe", Email: "john@example.com"},
			LeaveType:   model.LeaveType{ID: 1, Name: "Vacation"},
			Description: "Summer holiday",
			Status:      status,
			CreatedAt:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		},
		StartsAt: start,
		EndsAt:   start.Add(8 * time.Hour),
	}
}

func TestLeaveFeed_Render(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	items := []model.LeaveDate{
		leaveDate(2, model.StatusApproved, start.AddDate(0, 0, 7)),
		leaveDate(1, model.StatusPending, start),
	}

	rendered := LeaveFeed{Link: "https://hr.example.com/leaves"}.Render(items)
	require.Contains(t, rendered, "PRODID:"+LeaveProductID)
	require.Contains(t, rendered, "X-WR-CALNAME:Leave")
	require.Contains(t, rendered, "X-WR-TIMEZONE:UTC")

	cal, err := ics.ParseCalendar(strings.NewReader(rendered))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	require.Equal(t, EventUID(2), first.Id())
	require.Equal(t, "John Doe - Vacation", first.GetProperty(ics.ComponentPropertySummary).Value)
	require.Equal(t, "Summer holiday", first.GetProperty(ics.ComponentPropertyDescription).Value)
	require.Equal(t, "CONFIRMED", first.GetProperty(ics.ComponentPropertyStatus).Value)
	require.Equal(t, "https://hr.example.com/leaves", first.GetProperty(ics.ComponentPropertyUrl).Value)

	organizer := first.GetProperty(ics.ComponentPropertyOrganizer)
	require.Equal(t, "mailto:john@example.com", organizer.Value)
	require.Equal(t, []string{"John Doe"}, organizer.ICalParameters["CN"])

	startsAt, err := first.GetStartAt()
	require.NoError(t, err)
	require.True(t, startsAt.Equal(start.AddDate(0, 0, 7)))

	require.Equal(t, "TENTATIVE", events[1].GetProperty(ics.ComponentPropertyStatus).Value)
}

func TestLeaveFeed_EmptyCalendar(t *testing.T) {
	t.Parallel()

	rendered := LeaveFeed{}.Render(nil)
	require.Contains(t, rendered, "BEGIN:VCALENDAR")
	require.NotContains(t, rendered, "BEGIN:VEVENT")
}

func TestEventStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]ics.ObjectStatus{
		model.StatusPending:  ics.ObjectStatusTentative,
		model.StatusApproved: ics.ObjectStatusConfirmed,
		model.StatusRejected: ics.ObjectStatusCancelled,
		model.StatusDraft:    ics.ObjectStatus("DRAFT"),
		"":                   ics.ObjectStatus(""),
	}
	for status, want := range cases {
		require.Equal(t, want, EventStatus(status), status)
	}
}

func TestEventUID_Stable(t *testing.T) {
	t.Parallel()

	require.Equal(t, EventUID(42), EventUID(42))
	require.NotEqual(t, EventUID(42), EventUID(43))
}
