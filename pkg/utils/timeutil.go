// Package utils provides date and formatting helpers shared across regimefolio.
package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO date layout used in every flat file.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO date, also accepting RFC3339 and "YYYY-MM-DD HH:MM:SS"
// timestamps as written by spreadsheet tools. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last calendar day of t's month at midnight UTC.
func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// NextMonthEnd returns the month end following t's month.
func NextMonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+2, 0, 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthKey returns a comparable "YYYY-MM" key for t.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
