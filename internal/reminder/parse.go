package reminder

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Parser defaults. The design runs on a single reference clock; hours are
// plain clock values on `now`'s location.
const (
	DefaultMorningHour = 9
	DefaultEveningHour = 20

	// fallbackTask labels reminders whose text was nothing but the time
	// expression ("remind me tomorrow").
	fallbackTask = "Reminder"

	// pastTolerance is the slack the final future-guard allows before a
	// non-recurring draft is rejected as already past.
	pastTolerance = 60 * time.Second
)

// Parse failures are normal outcomes, not faults; callers present guidance.
var (
	ErrEmptyInput = errors.New("no task text after the command prefix")
	ErrNoTimeExpr = errors.New("no date, time or recurrence expression found")
	ErrPastTime   = errors.New("trigger time is already in the past")
)

// Leading command phrases stripped before rule matching, longest first.
var commandPrefixes = []string{
	"remind me to",
	"remember to",
	"remind me",
	"reminder:",
	"/remind",
	"remind",
}

// dateParts / timeParts track which calendar fields a rule has pinned.
type dateParts struct{ year, month, day, weekday bool }

func (d dateParts) any() bool { return d.year || d.month || d.day || d.weekday }

type timeParts struct{ hour, minute bool }

func (c timeParts) any() bool { return c.hour || c.minute }

// resolution is the working state threaded through the rule groups.
// `when` starts at `now` and is refined by each matching rule.
type resolution struct {
	now  time.Time
	when time.Time

	recurring bool
	pattern   Pattern

	date  dateParts
	clock timeParts

	matched []string
}

// setClock replaces the time-of-day of the working trigger, keeping the date.
func (st *resolution) setClock(hour, minute int) {
	st.when = time.Date(st.when.Year(), st.when.Month(), st.when.Day(),
		hour, minute, 0, 0, st.when.Location())
}

// setDate replaces the calendar date of the working trigger, keeping the clock.
func (st *resolution) setDate(year int, month time.Month, day int) {
	st.when = time.Date(year, month, day,
		st.when.Hour(), st.when.Minute(), st.when.Second(), 0, st.when.Location())
}

// Parse turns a free-form task description into a reminder draft.
// It is pure and deterministic given `now`. The returned draft has no
// Owner; the caller assigns it before handing the draft to the store.
func Parse(text string, now time.Time) (*Reminder, error) {
	raw := strings.TrimSpace(text)
	body := stripCommandPrefix(raw)
	if body == "" {
		return nil, ErrEmptyInput
	}

	st := &resolution{now: now, when: now}
	lower := strings.ToLower(body)
	for _, group := range ruleGroups {
		for _, r := range group {
			m := r.re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			if r.apply(st, m) {
				st.matched = append(st.matched, m[0])
			}
		}
	}

	if !st.recurring && !st.date.any() && !st.clock.any() {
		return nil, ErrNoTimeExpr
	}

	// A bare time of day ("at 6pm") that already passed means the same
	// time tomorrow. This is the single permitted roll-forward.
	if !st.recurring && st.clock.any() && !st.date.any() && !st.when.After(now) {
		st.when = st.when.AddDate(0, 0, 1)
	}

	if st.recurring {
		if st.pattern.Kind == PatternMonthly && st.pattern.Day == 0 {
			st.pattern.Day = st.when.Day()
		}
		// First occurrence must be in the future ("every day at 9am"
		// said after 9 means tomorrow morning).
		if !st.when.After(now) {
			next, err := NextOccurrence(st.pattern, st.when, now)
			if err != nil {
				return nil, err
			}
			st.when = next
		}
	} else if now.Sub(st.when) > pastTolerance {
		return nil, ErrPastTime
	}

	return &Reminder{
		ID:        NewID(),
		Task:      residualTask(body, st.matched),
		RawText:   raw,
		TriggerAt: st.when,
		Recurring: st.recurring,
		Pattern:   st.pattern,
		Active:    true,
		CreatedAt: now,
	}, nil
}

func stripCommandPrefix(s string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, p := range commandPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(trimmed[len(p):])
		}
	}
	return trimmed
}

// residualTask removes every matched time phrase (longest first, so
// "every monday" goes before "monday") and normalizes whitespace.
func residualTask(body string, matched []string) string {
	phrases := append([]string(nil), matched...)
	sort.Slice(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })

	rest := body
	for _, p := range phrases {
		rest = removePhrase(rest, p)
	}
	rest = strings.Join(strings.Fields(rest), " ")
	rest = strings.Trim(rest, " ,.;:-")
	if rest == "" {
		return fallbackTask
	}
	return rest
}

// removePhrase deletes every case-insensitive literal occurrence of phrase.
func removePhrase(s, phrase string) string {
	if phrase == "" {
		return s
	}
	lowerPhrase := strings.ToLower(phrase)
	for {
		idx := strings.Index(strings.ToLower(s), lowerPhrase)
		if idx < 0 {
			return s
		}
		s = s[:idx] + " " + s[idx+len(phrase):]
	}
}
