package database

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for digest_date.
const DateLayout = "2006-01-02"

// GetToday returns today's date as YYYY-MM-DD in local time.
func GetToday() string {
	return time.Now().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD digest date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", date, err)
	}
	return t, nil
}

// DaysBefore returns the date n days before date. It returns an error when
// date is not a valid YYYY-MM-DD string.
func DaysBefore(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -n).Format(DateLayout), nil
}

// FormatDateDisplay turns YYYY-MM-DD into "Monday, January 2, 2006".
// Unparseable input is returned unchanged.
func FormatDateDisplay(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}
