package reminder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PatternKind is the recurrence cadence tag.
type PatternKind uint8

const (
	PatternNone PatternKind = iota
	PatternDaily
	PatternWeekly
	PatternMonthly
)

func (k PatternKind) String() string {
	switch k {
	case PatternNone:
		return "none"
	case PatternDaily:
		return "daily"
	case PatternWeekly:
		return "weekly"
	case PatternMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Pattern is the closed recurrence variant:
//
//	none
//	daily
//	weekly  + target weekday
//	monthly [+ target day-of-month; 0 anchors to the trigger's day]
type Pattern struct {
	Kind    PatternKind
	Weekday time.Weekday // weekly only
	Day     int          // monthly only; 0 = anchor to trigger day
}

var ErrBadPattern = errors.New("malformed recurrence pattern")

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// MarshalText renders the persisted pattern tag:
// "", "daily", "weekly:monday", "monthly", "monthly:15".
func (p Pattern) MarshalText() ([]byte, error) {
	switch p.Kind {
	case PatternNone:
		return []byte(""), nil
	case PatternDaily:
		return []byte("daily"), nil
	case PatternWeekly:
		return []byte("weekly:" + strings.ToLower(p.Weekday.String())), nil
	case PatternMonthly:
		if p.Day <= 0 {
			return []byte("monthly"), nil
		}
		return []byte("monthly:" + strconv.Itoa(p.Day)), nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrBadPattern, p.Kind)
	}
}

func (p *Pattern) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	if s == "" || s == "none" {
		*p = Pattern{}
		return nil
	}
	tag, arg, _ := strings.Cut(s, ":")
	switch tag {
	case "daily":
		*p = Pattern{Kind: PatternDaily}
		return nil
	case "weekly":
		wd, ok := weekdayNames[arg]
		if !ok {
			return fmt.Errorf("%w: weekday %q", ErrBadPattern, arg)
		}
		*p = Pattern{Kind: PatternWeekly, Weekday: wd}
		return nil
	case "monthly":
		if arg == "" {
			*p = Pattern{Kind: PatternMonthly}
			return nil
		}
		d, err := strconv.Atoi(arg)
		if err != nil || d < 1 || d > 31 {
			return fmt.Errorf("%w: day-of-month %q", ErrBadPattern, arg)
		}
		*p = Pattern{Kind: PatternMonthly, Day: d}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrBadPattern, s)
	}
}

func (p Pattern) String() string {
	b, err := p.MarshalText()
	if err != nil {
		return "unknown"
	}
	if len(b) == 0 {
		return "none"
	}
	return string(b)
}
