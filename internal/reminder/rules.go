package reminder

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A rule matches one time expression and folds it into the resolution.
// apply returns false when the match has no effect (e.g. out-of-range
// clock values); in that case the matched text is NOT stripped from the
// task description.
type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(st *resolution, m []string) bool
}

// Rules run in three fixed groups: recurrence, then date keywords, then
// time expressions. A match in one group does not stop later groups, so
// phrases compose ("every monday at 10am").
var ruleGroups = [][]rule{recurrenceRules, dateRules, timeRules}

// ---- Group 1: recurrence ----

var recurrenceRules = []rule{
	{
		name: "daily",
		re:   regexp.MustCompile(`\bevery\s*day\b|\bdaily\b`),
		apply: func(st *resolution, m []string) bool {
			st.recurring = true
			st.pattern = Pattern{Kind: PatternDaily}
			if !st.clock.any() {
				st.setClock(DefaultMorningHour, 0)
			}
			return true
		},
	},
	{
		name: "weekly",
		re:   regexp.MustCompile(`\bevery\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`),
		apply: func(st *resolution, m []string) bool {
			wd := weekdayNames[m[1]]
			st.recurring = true
			st.pattern = Pattern{Kind: PatternWeekly, Weekday: wd}
			if !st.clock.any() {
				st.setClock(DefaultMorningHour, 0)
			}
			// Same-week target; if that instant is not in the future,
			// the first firing is next week.
			days := (int(wd) - int(st.when.Weekday()) + 7) % 7
			cand := st.when.AddDate(0, 0, days)
			if !cand.After(st.now) {
				cand = cand.AddDate(0, 0, 7)
			}
			st.when = cand
			st.date.weekday = true
			return true
		},
	},
	{
		name: "monthly",
		re:   regexp.MustCompile(`\bevery\s+month(?:\s+(?:on\s+)?(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?)?\b`),
		apply: func(st *resolution, m []string) bool {
			day := 0
			if m[1] != "" {
				day, _ = strconv.Atoi(m[1])
				if day < 1 || day > 31 {
					return false
				}
			}
			st.recurring = true
			st.pattern = Pattern{Kind: PatternMonthly, Day: day}
			if !st.clock.any() {
				st.setClock(DefaultMorningHour, 0)
			}
			if day > 0 {
				target := day
				if last := daysInMonth(st.when.Year(), st.when.Month()); target > last {
					target = last
				}
				st.when = time.Date(st.when.Year(), st.when.Month(), target,
					st.when.Hour(), st.when.Minute(), 0, 0, st.when.Location())
			}
			if !st.when.After(st.now) {
				next, err := stepOnce(st.pattern, st.when)
				if err == nil {
					st.when = next
				}
			}
			st.date.day = true
			return true
		},
	},
}

// ---- Group 2: date keywords ----

var dateRules = []rule{
	{
		name: "tomorrow",
		re:   regexp.MustCompile(`\btomorrow\b`),
		apply: func(st *resolution, m []string) bool {
			t := st.now.AddDate(0, 0, 1)
			st.setDate(t.Year(), t.Month(), t.Day())
			st.date.year, st.date.month, st.date.day = true, true, true
			return true
		},
	},
	{
		name: "tonight",
		re:   regexp.MustCompile(`\btonight\b`),
		apply: func(st *resolution, m []string) bool {
			st.setDate(st.now.Year(), st.now.Month(), st.now.Day())
			st.setClock(DefaultEveningHour, 0)
			if !st.when.After(st.now) {
				st.when = st.when.AddDate(0, 0, 1)
			}
			st.date.day = true
			st.clock.hour, st.clock.minute = true, true
			return true
		},
	},
	{
		name: "today",
		re:   regexp.MustCompile(`\btoday\b`),
		apply: func(st *resolution, m []string) bool {
			st.setDate(st.now.Year(), st.now.Month(), st.now.Day())
			st.date.year, st.date.month, st.date.day = true, true, true
			if !st.clock.any() {
				// One hour from now, but never before the default morning.
				cand := st.now.Add(time.Hour)
				floor := time.Date(st.now.Year(), st.now.Month(), st.now.Day(),
					DefaultMorningHour, 0, 0, 0, st.now.Location())
				if cand.Before(floor) {
					cand = floor
				}
				st.when = cand
			}
			return true
		},
	},
	{
		name: "absolute-date",
		re: regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)` +
			`\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`),
		apply: func(st *resolution, m []string) bool {
			month := monthNames[m[1]]
			day, _ := strconv.Atoi(m[2])
			year := st.now.Year()
			explicitYear := m[3] != ""
			if explicitYear {
				year, _ = strconv.Atoi(m[3])
			}
			if day < 1 || day > daysInMonth(year, month) {
				return false
			}
			st.setDate(year, month, day)
			// Without an explicit year, a date already behind us means
			// next year.
			if !explicitYear && dayStart(st.when).Before(dayStart(st.now)) {
				st.setDate(year+1, month, day)
			}
			st.date.month, st.date.day = true, true
			if explicitYear {
				st.date.year = true
			}
			return true
		},
	},
}

// ---- Group 3: time expressions ----

var timeRules = []rule{
	{
		name: "relative-offset",
		re:   regexp.MustCompile(`\bin\s+(\d+)\s+(minutes?|mins?|hours?|hrs?|days?|weeks?)\b`),
		apply: func(st *resolution, m []string) bool {
			n, _ := strconv.Atoi(m[1])
			var d time.Duration
			switch {
			case strings.HasPrefix(m[2], "min"):
				d = time.Duration(n) * time.Minute
			case strings.HasPrefix(m[2], "h"):
				d = time.Duration(n) * time.Hour
			case strings.HasPrefix(m[2], "d"):
				d = time.Duration(n) * 24 * time.Hour
			default: // weeks
				d = time.Duration(n) * 7 * 24 * time.Hour
			}
			st.when = st.when.Add(d)
			st.date.year, st.date.month, st.date.day = true, true, true
			st.clock.hour, st.clock.minute = true, true
			return true
		},
	},
	{
		name: "clock-time",
		re:   regexp.MustCompile(`\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`),
		apply: func(st *resolution, m []string) bool {
			hour, _ := strconv.Atoi(m[1])
			minute := 0
			if m[2] != "" {
				minute, _ = strconv.Atoi(m[2])
			}
			meridiem := m[3]
			if minute > 59 {
				return false
			}
			if meridiem != "" {
				if hour < 1 || hour > 12 {
					return false
				}
				if meridiem == "pm" && hour != 12 {
					hour += 12
				}
				if meridiem == "am" && hour == 12 {
					hour = 0
				}
			} else if hour > 23 {
				return false
			}
			st.setClock(hour, minute)
			st.clock.hour, st.clock.minute = true, true
			return true
		},
	},
}

var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
