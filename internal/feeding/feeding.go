// Package feeding derives a spider's feeding status and next feeding date
// from its last-fed date and a coarse feeding-frequency category.
//
// Every function here is pure: the status is always recomputed from
// (lastFed, frequency, today) and never read back from storage.
package feeding

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is a coarse feeding-frequency category. The string values are
// stable: they are both user-facing values and lookup keys.
type Frequency string

const (
	FewTimesWeek Frequency = "few_times_week"
	OnceWeek     Frequency = "once_week"
	OnceTwoWeeks Frequency = "once_two_weeks"
	OnceMonth    Frequency = "once_month"
	Rarely       Frequency = "rarely"
)

// frequencyOrder is the display order of the closed enumeration.
var frequencyOrder = []Frequency{FewTimesWeek, OnceWeek, OnceTwoWeeks, OnceMonth, Rarely}

// intervals maps a category to its expected interval in days.
// "few times a week" is a single fixed 3-day interval, not an average.
var intervals = map[Frequency]int{
	FewTimesWeek: 3,
	OnceWeek:     7,
	OnceTwoWeeks: 14,
	OnceMonth:    30,
	Rarely:       60,
}

var labels = map[Frequency]string{
	FewTimesWeek: "few times a week",
	OnceWeek:     "once a week",
	OnceTwoWeeks: "once every two weeks",
	OnceMonth:    "once a month",
	Rarely:       "rarely",
}

// Frequencies returns every known category in display order.
func Frequencies() []Frequency {
	out := make([]Frequency, len(frequencyOrder))
	copy(out, frequencyOrder)
	return out
}

// ParseFrequency validates s against the closed enumeration.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.TrimSpace(strings.ToLower(s)))
	if _, ok := intervals[f]; !ok {
		return "", fmt.Errorf("unknown feeding frequency %q", s)
	}
	return f, nil
}

// Interval returns the expected days between feedings for f.
func Interval(f Frequency) (int, bool) {
	d, ok := intervals[f]
	return d, ok
}

// Label returns a human-readable name for f, or the raw value if unknown.
func (f Frequency) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is part of the enumeration.
func (f Frequency) Valid() bool {
	_, ok := intervals[f]
	return ok
}

// Status is the derived tri-state feeding status.
type Status string

const (
	Hungry    Status = "HUNGRY"
	FeedToday Status = "FEED_TODAY"
	NotHungry Status = "NOT_HUNGRY"
)

// Rank orders statuses by urgency (lower is more urgent). Unknown
// statuses, including the empty "no data" value, sort last.
func (s Status) Rank() int {
	switch s {
	case Hungry:
		return 0
	case FeedToday:
		return 1
	case NotHungry:
		return 2
	default:
		return 3
	}
}

// ElapsedDays returns the whole days between lastFed and the calendar
// date of now. Negative when lastFed lies in the future.
func ElapsedDays(lastFed string, now time.Time) (int, bool) {
	fed, err := ParseDate(lastFed)
	if err != nil {
		return 0, false
	}
	return daysBetween(fed, dateOf(now)), true
}

// StatusAt computes the feeding status as of now. The boolean is false
// when there is no status to report: lastFed is missing or malformed, or
// the frequency is not mapped. That is "no data", not an error.
func StatusAt(lastFed string, f Frequency, now time.Time) (Status, bool) {
	interval, ok := Interval(f)
	if !ok {
		return "", false
	}
	elapsed, ok := ElapsedDays(lastFed, now)
	if !ok {
		return "", false
	}
	switch {
	case elapsed == interval:
		return FeedToday, true
	case elapsed > interval:
		return Hungry, true
	default:
		return NotHungry, true
	}
}

// CurrentStatus is StatusAt using the package clock.
func CurrentStatus(lastFed string, f Frequency) (Status, bool) {
	return StatusAt(lastFed, f, timeNow())
}

// NextFeedingDate adds the frequency interval to lastFed. It returns ""
// when either input is missing or unusable.
func NextFeedingDate(lastFed string, f Frequency) string {
	interval, ok := Interval(f)
	if !ok {
		return ""
	}
	fed, err := ParseDate(lastFed)
	if err != nil {
		return ""
	}
	return FormatDate(fed.AddDate(0, 0, interval))
}

// daysBetween floors the difference of two UTC midnights to whole days.
func daysBetween(from, to time.Time) int {
	d := to.Sub(from)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
