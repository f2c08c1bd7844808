// Package history merges newly confirmed feeding or molting dates into a
// spider's event history and picks the date to keep as the denormalized
// "latest" value on the spider row.
package history

import (
	"slices"
	"time"

	"github.com/HendryAvila/spiderlog/internal/feeding"
)

// Result is the outcome of reconciling one submitted date.
type Result struct {
	// History is the merged list sorted ascending by calendar date.
	History []string
	// Current is the date to store as the spider's last fed / last molt.
	Current string
	// Added is false when the submitted date was already recorded or
	// could not be parsed.
	Added bool
}

// Sort returns a copy of dates ordered ascending by calendar date.
// Unparseable entries keep their relative order after the valid ones.
func Sort(dates []string) []string {
	out := slices.Clone(dates)
	slices.SortStableFunc(out, func(a, b string) int {
		ta, errA := feeding.ParseDate(a)
		tb, errB := feeding.ParseDate(b)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return ta.Compare(tb)
	})
	return out
}

// Latest returns the chronologically greatest parseable date.
func Latest(dates []string) (string, bool) {
	var (
		best   string
		bestAt time.Time
		found  bool
	)
	for _, d := range dates {
		t, err := feeding.ParseDate(d)
		if err != nil {
			continue
		}
		if !found || t.After(bestAt) {
			best, bestAt, found = feeding.FormatDate(t), t, true
		}
	}
	return best, found
}

// Merge appends date when it is not already present and returns the sorted
// result. Dates are compared after normalization to the canonical layout.
func Merge(existing []string, date string) ([]string, bool) {
	norm, err := feeding.Normalize(date)
	if err != nil {
		return Sort(existing), false
	}
	for _, d := range existing {
		if n, err := feeding.Normalize(d); err == nil && n == norm {
			return Sort(existing), false
		}
	}
	return Sort(append(slices.Clone(existing), norm)), true
}

// Reconcile merges submitted into existing and decides the current value.
// A backfilled date older than the recorded maximum never replaces it.
func Reconcile(existing []string, submitted string) Result {
	merged, added := Merge(existing, submitted)
	res := Result{History: merged, Added: added}

	latest, hasLatest := Latest(existing)
	sub, err := feeding.Normalize(submitted)
	switch {
	case err != nil:
		res.Current = latest
	case !hasLatest:
		res.Current = sub
	case sub > latest:
		// canonical dates order lexically
		res.Current = sub
	default:
		res.Current = latest
	}
	return res
}
