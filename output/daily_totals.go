package output

import (
	"math"
	"sort"
	"strconv"

	"ninetofiver/reconcile"
)

// DailyTotal sums the reconciled hours of one day.
type DailyTotal struct {
	Date         string
	Hours        float64
	ValidHours   float64
	InvalidHours float64
	Entries      int
	New          int
	Updated      int
}

func BuildDailyTotals(results []reconcile.Result) []DailyTotal {
	if len(results) == 0 {
		return []DailyTotal{}
	}

	byDay := make(map[string]*DailyTotal)
	for _, result := range results {
		day := result.Date.Format("2006-01-02")
		total, ok := byDay[day]
		if !ok {
			total = &DailyTotal{Date: day}
			byDay[day] = total
		}

		total.Hours += result.Duration
		if result.Status.IsValid() {
			total.ValidHours += result.Duration
		} else {
			total.InvalidHours += result.Duration
		}
		total.Entries++
		if result.IsNew() {
			total.New++
		} else if result.Updated {
			total.Updated++
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	totals := make([]DailyTotal, 0, len(days))
	for _, day := range days {
		total := *byDay[day]
		total.Hours = roundHours(total.Hours)
		total.ValidHours = roundHours(total.ValidHours)
		total.InvalidHours = roundHours(total.InvalidHours)
		totals = append(totals, total)
	}
	return totals
}

func DailyTotalsTable(totals []DailyTotal) Table {
	rows := make([][]string, 0, len(totals))
	for _, total := range totals {
		rows = append(rows, []string{
			total.Date,
			formatHours(total.Hours),
			formatHours(total.ValidHours),
			formatHours(total.InvalidHours),
			strconv.Itoa(total.Entries),
			strconv.Itoa(total.New),
			strconv.Itoa(total.Updated),
		})
	}
	return Table{
		Headers: []string{"Date", "Hours", "ValidHours", "InvalidHours", "Entries", "New", "Updated"},
		Rows:    rows,
	}
}

func roundHours(value float64) float64 {
	return math.Round(value*100) / 100
}
