// Package recurrence holds the pure date arithmetic for payment reminders:
// merging user-entered date and time fields into one instant and rolling a
// due date forward by a calendar month.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks date or time fields that do not parse.
var ErrInvalidInput = errors.New("invalid date or time input")

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Combine merges a calendar date ("2006-01-02") and a wall-clock time
// ("15:04") into a single instant in the given timezone.
func Combine(date, clock string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, date)
	}
	c, err := time.ParseInLocation(ClockLayout, clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidInput, clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, loc), nil
}

// AddOneMonth advances the instant by exactly one calendar month in the
// given timezone, preserving the time of day. When the source day does not
// exist in the target month (e.g. Jan 31 rolling into February), the naive
// AddDate arithmetic overflows into the following month; that is detected by
// comparing the day-of-month and the result is clamped to the last day of
// the intended target month instead.
func AddOneMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	next := local.AddDate(0, 1, 0)
	if next.Day() != local.Day() {
		year, month, _ := local.AddDate(0, 0, -local.Day()+1).AddDate(0, 1, 0).Date()
		day := daysInMonth(month, year)
		next = time.Date(year, month, day, local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
	}
	return next
}

// Format renders the instant in the given timezone using a time layout.
func Format(t time.Time, loc *time.Location, layout string) string {
	return t.In(loc).Format(layout)
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfMonth.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
