package timeutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const DayLayout = "2006-01-02"

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func FormatDay(value time.Time) string {
	return value.Format(DayLayout)
}

// ParseDay parses a strict YYYY-MM-DD value in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(DayLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return parsed, nil
}

// ParseDate accepts YYYY-MM-DD or an English expression such as "yesterday"
// or "last monday", resolved relative to now. The result is truncated to the day.
func ParseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if parsed, err := ParseDay(value, now.Location()); err == nil {
		return parsed, nil
	}

	result, err := parser.Parse(value, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or a relative day)", value)
	}
	return StartOfDay(result.Time), nil
}
