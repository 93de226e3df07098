// Package schedule computes when a project becomes eligible for its next
// autopilot run. All functions are pure; only the autopilot runner writes the
// resulting timestamps back to a project.
package schedule

import (
	"time"

	"autopress/internal/core"
)

// NextRun returns the timestamp of the next run after lastRun for the given
// frequency. Computing from lastRun rather than from "now" keeps the cadence
// from drifting when runs are delayed. Unrecognized frequencies fall back to
// the weekly rule.
func NextRun(lastRun time.Time, freq core.Frequency) time.Time {
	switch freq {
	case core.FreqTwiceDaily:
		return lastRun.Add(12 * time.Hour)
	case core.FreqDaily:
		return lastRun.Add(24 * time.Hour)
	case core.FreqThreeWeekly:
		return lastRun.Add(48 * time.Hour)
	case core.FreqWeekdays:
		return skipWeekend(lastRun.Add(24 * time.Hour))
	case core.FreqMonthly:
		return lastRun.AddDate(0, 1, 0)
	case core.FreqWeekly:
		return lastRun.Add(7 * 24 * time.Hour)
	default:
		return lastRun.Add(7 * 24 * time.Hour)
	}
}

// skipWeekend rolls a timestamp forward, a day at a time, until it lands on a
// weekday.
func skipWeekend(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.Add(24 * time.Hour)
	}
	return t
}

// Eligible reports whether a project is due for a run at the given instant.
// A project that has never run (NextRunAt nil) is always eligible.
func Eligible(p core.Project, now time.Time) bool {
	if p.NextRunAt == nil {
		return true
	}
	return !p.NextRunAt.After(now)
}
