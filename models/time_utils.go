package models

import "time"

// Stats periods accepted by the aggregator.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// ValidPeriod reports whether period names a known stats window.
func ValidPeriod(period string) bool {
	switch period {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return true
	}
	return false
}

// PeriodCutoff maps a stats period to its lower-bound timestamp.
// "today" means the start of the current calendar day in now's
// location; unknown periods fall back to the epoch origin, same as
// "all", so a bad input widens the window instead of erroring.
func PeriodCutoff(period string, now time.Time) time.Time {
	switch period {
	case PeriodToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Unix(0, 0)
	}
}
