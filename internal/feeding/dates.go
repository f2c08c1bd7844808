package feeding

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Layout is the canonical stored and compared date format (yyyy-MM-dd).
	Layout = "2006-01-02"
	// UILayout is the day-first format some callers display (dd-MM-yyyy).
	// It is accepted at the boundary and converted; never compared directly.
	UILayout = "02-01-2006"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// ParseDate parses a canonical date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t's calendar date in the canonical layout.
func FormatDate(t time.Time) string {
	return t.Format(Layout)
}

// Normalize converts a date in either the canonical or the day-first
// layout to the canonical layout.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return FormatDate(t), nil
	}
	t, err := time.Parse(UILayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want %s or %s", s, "yyyy-MM-dd", "dd-MM-yyyy")
	}
	return FormatDate(t), nil
}

// ToUI converts a canonical date to the day-first layout. Malformed input
// is returned unchanged so display code never loses the raw value.
func ToUI(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format(UILayout)
}

// Today returns the canonical date of the package clock.
func Today() string {
	return FormatDate(timeNow())
}

// dateOf strips the clock from t, keeping t's own calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
