package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthEnd(t *testing.T) {
	assert.Equal(t, day(2024, 2, 29), MonthEnd(day(2024, 2, 3)))
	assert.Equal(t, day(2023, 2, 28), MonthEnd(day(2023, 2, 28)))
	assert.Equal(t, day(2024, 12, 31), MonthEnd(day(2024, 12, 1)))
}

func TestSnapshotDates(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		asOf  time.Time
		want  []time.Time
	}{
		{
			name:  "month-ends plus as-of",
			start: day(2024, 1, 15),
			asOf:  day(2024, 3, 10),
			want:  []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 10)},
		},
		{
			name:  "as-of on a month-end is not repeated",
			start: day(2024, 1, 15),
			asOf:  day(2024, 1, 31),
			want:  []time.Time{day(2024, 1, 31)},
		},
		{
			name:  "as-of inside the first month",
			start: day(2024, 1, 15),
			asOf:  day(2024, 1, 20),
			want:  []time.Time{day(2024, 1, 20)},
		},
		{
			name:  "as-of before start",
			start: day(2024, 1, 15),
			asOf:  day(2024, 1, 1),
			want:  nil,
		},
		{
			name:  "year boundary",
			start: day(2023, 12, 5),
			asOf:  day(2024, 1, 2),
			want:  []time.Time{day(2023, 12, 31), day(2024, 1, 2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapshotDates(tt.start, tt.asOf))
		})
	}
}

func TestMonthAxis(t *testing.T) {
	months, dates := MonthAxis(day(2024, 1, 1), day(2024, 3, 15))
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, months)
	assert.Equal(t, []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 15)}, dates)

	months, dates = MonthAxis(day(2024, 3, 1), day(2024, 1, 1))
	assert.Empty(t, months)
	assert.Empty(t, dates)
}

func TestUniqueSortedDates(t *testing.T) {
	got := UniqueSortedDates([]time.Time{
		day(2024, 3, 1),
		time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		day(2024, 1, 1),
	})
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 3, 1)}, got)
}
