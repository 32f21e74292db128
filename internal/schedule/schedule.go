// Package schedule implements the calendar arithmetic behind recurring transactions.
package schedule

import (
	"fmt"
	"time"

	"kasa/internal/models"
)

// ValidPeriod reports whether p is a supported subscription period.
func ValidPeriod(p models.SubscriptionPeriod) bool {
	switch p {
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly,
		models.PeriodQuarterly, models.PeriodBiannually, models.PeriodAnnually:
		return true
	}
	return false
}

// Next returns the date one period after from.
//
// Month-based periods keep the day of month and clamp to the last day of the
// target month, so 2024-01-31 + quarterly is 2024-04-30 and 2024-02-29 +
// annually is 2025-02-28. The time of day is preserved.
func Next(from time.Time, period models.SubscriptionPeriod) (time.Time, error) {
	switch period {
	case models.PeriodDaily:
		return from.AddDate(0, 0, 1), nil
	case models.PeriodWeekly:
		return from.AddDate(0, 0, 7), nil
	case models.PeriodMonthly:
		return addMonthsClamped(from, 1), nil
	case models.PeriodQuarterly:
		return addMonthsClamped(from, 3), nil
	case models.PeriodBiannually:
		return addMonthsClamped(from, 6), nil
	case models.PeriodAnnually:
		return addMonthsClamped(from, 12), nil
	}
	return time.Time{}, fmt.Errorf("unsupported subscription period %q", period)
}

// Advance applies Next n times starting at from. Clamping is re-evaluated from
// the original day of month on every step, so a monthly schedule anchored on
// the 31st returns to the 31st whenever the month allows it.
func Advance(from time.Time, period models.SubscriptionPeriod, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, fmt.Errorf("cannot advance a schedule by %d periods", n)
	}
	if !ValidPeriod(period) {
		return time.Time{}, fmt.Errorf("unsupported subscription period %q", period)
	}
	switch period {
	case models.PeriodDaily:
		return from.AddDate(0, 0, n), nil
	case models.PeriodWeekly:
		return from.AddDate(0, 0, 7*n), nil
	}
	months := map[models.SubscriptionPeriod]int{
		models.PeriodMonthly:    1,
		models.PeriodQuarterly:  3,
		models.PeriodBiannually: 6,
		models.PeriodAnnually:   12,
	}[period]
	return addMonthsClamped(from, months*n), nil
}

func addMonthsClamped(from time.Time, months int) time.Time {
	y, m, d := from.Date()
	// Day 1 of the target month never overflows.
	first := time.Date(y, m+time.Month(months), 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	if last := daysIn(first.Year(), first.Month(), from.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's calendar day that every store
// keeps, one microsecond before the next midnight.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Microsecond)
}

// AfterDay reports whether t falls on a calendar day after ref.
func AfterDay(t, ref time.Time) bool {
	return StartOfDay(t.In(ref.Location())).After(StartOfDay(ref))
}
