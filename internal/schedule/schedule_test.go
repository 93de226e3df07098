package schedule

import (
	"testing"
	"time"

	"autopress/internal/core"
)

func TestNextRun(t *testing.T) {
	// 2025-01-03 is a Friday.
	friday := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lastRun time.Time
		freq    core.Frequency
		want    time.Time
	}{
		{"twice daily", friday, core.FreqTwiceDaily, friday.Add(12 * time.Hour)},
		{"daily", friday, core.FreqDaily, friday.Add(24 * time.Hour)},
		{"three weekly", friday, core.FreqThreeWeekly, friday.Add(48 * time.Hour)},
		{"weekly", friday, core.FreqWeekly, friday.Add(7 * 24 * time.Hour)},
		{"monthly", friday, core.FreqMonthly, time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)},
		{
			// Friday + 1 day = Saturday, rolled past the weekend to Monday 2025-01-06.
			"weekdays skips weekend",
			friday,
			core.FreqWeekdays,
			time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		},
		{
			// Wednesday + 1 day = Thursday, no roll.
			"weekdays midweek",
			time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
			core.FreqWeekdays,
			time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
		},
		{"unknown falls back to weekly", friday, core.Frequency("fortnightly"), friday.Add(7 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.lastRun, tt.freq)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun(%v, %q) = %v, want %v", tt.lastRun, tt.freq, got, tt.want)
			}
			if !got.After(tt.lastRun) {
				t.Errorf("NextRun must be strictly after lastRun, got %v", got)
			}
		})
	}
}

func TestEligible(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		nextRun *time.Time
		want    bool
	}{
		{"never run", nil, true},
		{"due in the past", &past, true},
		{"due exactly now", &now, true},
		{"due in the future", &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := core.Project{NextRunAt: tt.nextRun}
			if got := Eligible(p, now); got != tt.want {
				t.Errorf("Eligible = %v, want %v", got, tt.want)
			}
		})
	}
}
