package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayBounds(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	tests := []struct {
		name  string
		in    time.Time
		start time.Time
	}{
		{
			name:  "midday utc",
			in:    time.Date(2026, 3, 10, 13, 45, 0, 0, time.UTC),
			start: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "midnight is its own day",
			in:    time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			start: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "late evening in a western zone is the next utc day",
			in:    time.Date(2026, 3, 10, 21, 0, 0, 0, est),
			start: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := DayBounds(tt.in)
			assert.True(t, tt.start.Equal(start), "start = %s", start)
			assert.True(t, tt.start.AddDate(0, 0, 1).Equal(end), "end = %s", end)
		})
	}
}
