// Package calendar is the single place that turns instants into calendar
// days. Streaks, daily usage counters and monthly resets all compare days
// produced here so they agree on where a day ends.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone anchors all day arithmetic unless configured otherwise.
const DefaultTimezone = "Asia/Kolkata"

const dayKeyLayout = "2006-01-02"

// Calendar maps instants onto days of a fixed location.
//
// Days are returned as midnight UTC values carrying the local year, month
// and day, which is also how pgx scans a Postgres DATE column. Two days can
// therefore be compared with Equal and subtracted without DST effects.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for loc. A nil loc means UTC.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Load returns a Calendar for the named IANA location.
func Load(name string) (*Calendar, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading location %q: %w", name, err)
	}
	return New(loc), nil
}

// Location returns the anchor location.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today returns the calendar day that contains now.
func (c *Calendar) Today(now time.Time) time.Time {
	local := now.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of the month that contains now.
func (c *Calendar) MonthStart(now time.Time) time.Time {
	return FirstOfMonth(c.Today(now))
}

// DayKey formats the day containing now as YYYY-MM-DD.
func (c *Calendar) DayKey(now time.Time) string {
	return c.Today(now).Format(dayKeyLayout)
}

// StartOf returns the instant at which day begins in the anchor location.
func (c *Calendar) StartOf(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
}

// Normalize strips time-of-day and location from a stored day value.
func Normalize(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns the first day of day's month.
func FirstOfMonth(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth returns the first day of the month after day's month.
func NextMonth(day time.Time) time.Time {
	return FirstOfMonth(day).AddDate(0, 1, 0)
}

// DaysBetween returns to minus from in whole days. It is negative when to
// precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Normalize(to).Sub(Normalize(from)).Hours() / 24)
}
