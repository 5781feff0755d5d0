package ledger

import (
	"sort"
	"time"

	"github.com/tropicaldog17/networth/internal/models"
)

// MonthEnd returns the last calendar day of d's month.
func MonthEnd(d time.Time) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1)
}

// MonthKey formats d as YYYY-MM.
func MonthKey(d time.Time) string {
	return d.Format("2006-01")
}

// SnapshotDates returns every month-end from start's month up to asOf, plus
// asOf itself. Empty when asOf precedes start.
func SnapshotDates(start, asOf time.Time) []time.Time {
	start = models.DateOnly(start)
	asOf = models.DateOnly(asOf)
	if asOf.Before(start) {
		return nil
	}
	var dates []time.Time
	for m := MonthEnd(start); !m.After(asOf); m = MonthEnd(m.AddDate(0, 0, 1)) {
		dates = append(dates, m)
	}
	if len(dates) == 0 || !dates[len(dates)-1].Equal(asOf) {
		dates = append(dates, asOf)
	}
	return dates
}

// MonthAxis returns the months spanning first..last as YYYY-MM labels and,
// for each, the column date: the month-end, capped at last.
func MonthAxis(first, last time.Time) (months []string, dates []time.Time) {
	first = models.DateOnly(first)
	last = models.DateOnly(last)
	if last.Before(first) {
		return nil, nil
	}
	for m := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(last); m = m.AddDate(0, 1, 0) {
		end := MonthEnd(m)
		if end.After(last) {
			end = last
		}
		months = append(months, MonthKey(m))
		dates = append(dates, end)
	}
	return months, dates
}

// UniqueSortedDates de-duplicates and sorts dates ascending.
func UniqueSortedDates(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = models.DateOnly(d)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
