package reminder

import (
	"errors"
	"time"
)

var (
	// ErrUnknownPattern means the stored pattern tag is not one the engine
	// can advance. Callers deactivate the reminder instead of retrying.
	ErrUnknownPattern = errors.New("unknown recurrence pattern")

	// ErrRecurrenceStalled means the catch-up loop hit its iteration bound
	// without producing a future trigger. Treated like an unknown pattern:
	// deactivate, never spin.
	ErrRecurrenceStalled = errors.New("recurrence catch-up exceeded bound")
)

// NextOccurrence advances a recurring trigger one cadence past `current`,
// then keeps stepping until the result is strictly after `now` (catch-up
// after downtime). The loop is bounded relative to the elapsed time so a
// corrupted record cannot loop forever.
func NextOccurrence(p Pattern, current, now time.Time) (time.Time, error) {
	next, err := stepOnce(p, current)
	if err != nil {
		return time.Time{}, err
	}
	if next.After(now) {
		return next, nil
	}

	maxSteps := int(now.Sub(current)/cadenceFloor(p)) + 2
	for i := 0; !next.After(now); i++ {
		if i >= maxSteps {
			return time.Time{}, ErrRecurrenceStalled
		}
		next, err = stepOnce(p, next)
		if err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}

// stepOnce applies a single cadence advance.
func stepOnce(p Pattern, t time.Time) (time.Time, error) {
	switch p.Kind {
	case PatternDaily:
		return t.AddDate(0, 0, 1), nil
	case PatternWeekly:
		return t.AddDate(0, 0, 7), nil
	case PatternMonthly:
		target := p.Day
		if target <= 0 {
			target = t.Day()
		}
		// First of next month, then clamp the target day to what that
		// month actually has (31st -> 30th/29th/28th, never skipping).
		first := time.Date(t.Year(), t.Month()+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		day := target
		if last := daysInMonth(first.Year(), first.Month()); day > last {
			day = last
		}
		return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
	default:
		return time.Time{}, ErrUnknownPattern
	}
}

// cadenceFloor is the shortest possible gap between two occurrences,
// used to bound the catch-up loop.
func cadenceFloor(p Pattern) time.Duration {
	switch p.Kind {
	case PatternDaily:
		return 24 * time.Hour
	case PatternWeekly:
		return 7 * 24 * time.Hour
	default:
		return 28 * 24 * time.Hour
	}
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
