// Package calendar works with library calendar days. A day is stored as
// midnight UTC of the local date so it compares and persists without zone drift.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Clock reports the current instant and the zone calendar days are counted in.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a clock on time.Now in loc (UTC when nil).
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today is the current local calendar day.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return Day(now().In(loc))
}

// Day truncates t to its calendar date, keeping the wall date of t's zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD date.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// Format renders a calendar day as YYYY-MM-DD.
func Format(day time.Time) string {
	return day.UTC().Format(DateLayout)
}

// AddDays moves a calendar day by n days.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// DaysBetween counts whole days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DaysLate is how many days after due the given day falls, never negative.
func DaysLate(due, day time.Time) int {
	if n := DaysBetween(due, day); n > 0 {
		return n
	}
	return 0
}
