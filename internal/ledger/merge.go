package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/networth/internal/models"
)

// Series is one account's balance history, ascending by date.
type Series struct {
	AccountID  uint
	Liability  bool
	Investment bool
	Points     []Point
}

// SeriesFromSnapshots converts stored snapshots into a sorted series.
func SeriesFromSnapshots(account models.Account, snaps []models.BalanceSnapshot) Series {
	s := Series{
		AccountID:  account.ID,
		Liability:  account.IsLiability(),
		Investment: account.IsInvestment(),
		Points:     make([]Point, 0, len(snaps)),
	}
	for _, snap := range snaps {
		s.Points = append(s.Points, Point{Date: models.DateOnly(snap.Date), Balance: snap.Balance})
	}
	sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Date.Before(s.Points[j].Date) })
	return s
}

// UnionDates collects every distinct date across all series.
func UnionDates(series []Series) []time.Time {
	var all []time.Time
	for _, s := range series {
		for _, p := range s.Points {
			all = append(all, p.Date)
		}
	}
	return UniqueSortedDates(all)
}

// ForwardFill returns the balance of points at each date: the most recent
// value on or before it, or zero before the first entry. Both inputs must be
// ascending.
func ForwardFill(points []Point, dates []time.Time) []decimal.Decimal {
	out := make([]decimal.Decimal, len(dates))
	current := decimal.Zero
	j := 0
	for i, d := range dates {
		for j < len(points) && !points[j].Date.After(d) {
			current = points[j].Balance
			j++
		}
		out[i] = current
	}
	return out
}

// BuildNetWorth sums every series onto the union of their dates.
func BuildNetWorth(series []Series) []models.NetWorthPoint {
	dates := UnionDates(series)
	if len(dates) == 0 {
		return nil
	}
	points := make([]models.NetWorthPoint, len(dates))
	for i, d := range dates {
		points[i] = models.NetWorthPoint{
			Date:             d,
			TotalAssets:      decimal.Zero,
			TotalLiabilities: decimal.Zero,
			InvestmentsValue: decimal.Zero,
		}
	}
	for _, s := range series {
		filled := ForwardFill(s.Points, dates)
		for i, v := range filled {
			p := &points[i]
			if s.Liability {
				p.TotalLiabilities = p.TotalLiabilities.Add(v)
				continue
			}
			p.TotalAssets = p.TotalAssets.Add(v)
			if s.Investment {
				p.InvestmentsValue = p.InvestmentsValue.Add(v)
			}
		}
	}
	for i := range points {
		points[i].NetWorth = points[i].TotalAssets.Sub(points[i].TotalLiabilities)
	}
	return points
}

// ResampleNetWorth picks, for each axis date, the latest point on or before
// it. Axis dates before the first point get a zero point.
func ResampleNetWorth(points []models.NetWorthPoint, axis []time.Time) []models.NetWorthPoint {
	out := make([]models.NetWorthPoint, len(axis))
	j := -1
	for i, d := range axis {
		for j+1 < len(points) && !points[j+1].Date.After(d) {
			j++
		}
		if j < 0 {
			out[i] = models.NetWorthPoint{Date: d}
			continue
		}
		p := points[j]
		p.ID = 0
		p.Date = d
		out[i] = p
	}
	return out
}
