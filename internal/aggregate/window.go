package aggregate

import (
	"time"

	"spendlens/internal/core"
)

// WindowExpiry returns the first instant after now at which one of records
// enters or leaves the trailing window of g, so a series computed at now is
// exact until then. ok is false when no record ever will.
func WindowExpiry(records []core.Expense, g Granularity, now time.Time, loc *time.Location) (at time.Time, ok bool, err error) {
	b, err := BucketerFor(g)
	if err != nil {
		return time.Time{}, false, err
	}
	now = in(now, loc)
	from := b.WindowStart(now)

	var (
		oldest    time.Time
		hasOldest bool
	)
	for _, r := range records {
		switch {
		case r.Date.After(now):
			if !ok || r.Date.Before(at) {
				at, ok = r.Date, true
			}
		case !r.Date.Before(from):
			if !hasOldest || r.Date.Before(oldest) {
				oldest, hasOldest = r.Date, true
			}
		}
	}
	// the oldest record in the window is the first to leave it
	if hasOldest {
		if leave := leavesWindow(b, oldest, now); !ok || leave.Before(at) {
			at, ok = leave, true
		}
	}
	return at, ok, nil
}

// leavesWindow finds the first instant after now whose window starts after
// d, by a doubling search and then bisection to the nanosecond. WindowStart
// only steps backwards across normalized dates such as a missing Feb 29.
func leavesWindow(b Bucketer, d, now time.Time) time.Time {
	lo, step := now, time.Hour
	hi := now.Add(step)
	for !b.WindowStart(hi).After(d) {
		lo, step = hi, step*2
		hi = hi.Add(step)
	}
	for hi.Sub(lo) > time.Nanosecond {
		mid := lo.Add(hi.Sub(lo) / 2)
		if b.WindowStart(mid).After(d) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}
