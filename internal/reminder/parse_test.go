package reminder

import (
	"errors"
	"testing"
	"time"
)

// 2025-03-10 is a Monday.
var testNow = time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)

func TestParseNoTimeSignal(t *testing.T) {
	t.Parallel()
	for _, text := range []string{
		"remind me to buy milk",
		"call the dentist",
		"remember to water the plants sometime",
	} {
		if _, err := Parse(text, testNow); !errors.Is(err, ErrNoTimeExpr) {
			t.Fatalf("Parse(%q) error = %v, want ErrNoTimeExpr", text, err)
		}
	}
}

func TestParseEmptyAfterPrefix(t *testing.T) {
	t.Parallel()
	for _, text := range []string{"remind me", "/remind", "   "} {
		if _, err := Parse(text, testNow); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("Parse(%q) error = %v, want ErrEmptyInput", text, err)
		}
	}
}

func TestParseRelativeOffset(t *testing.T) {
	t.Parallel()
	r, err := Parse("in 30 minutes do X", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Recurring {
		t.Fatal("expected non-recurring")
	}
	if want := testNow.Add(30 * time.Minute); !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}
	if r.Task != "do X" {
		t.Fatalf("Task = %q, want %q", r.Task, "do X")
	}
}

func TestParseDailyAfterMorning(t *testing.T) {
	t.Parallel()
	r, err := Parse("every day at 9am take meds", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !r.Recurring || r.Pattern.Kind != PatternDaily {
		t.Fatalf("pattern = %v, want daily recurring", r.Pattern)
	}
	want := time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want next morning %v", r.TriggerAt, want)
	}
	if r.Task != "take meds" {
		t.Fatalf("Task = %q", r.Task)
	}
}

func TestParseWeeklySameDayRollsForward(t *testing.T) {
	t.Parallel()
	// Now is Monday 14:00; default time 09:00 has passed, so the first
	// firing is next Monday, not today.
	r, err := Parse("every monday standup notes", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Pattern.Kind != PatternWeekly || r.Pattern.Weekday != time.Monday {
		t.Fatalf("pattern = %v, want weekly monday", r.Pattern)
	}
	want := time.Date(2025, time.March, 17, 9, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}
}

func TestParseWeeklyUpcomingWeekdayStaysThisWeek(t *testing.T) {
	t.Parallel()
	r, err := Parse("every friday send report", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want this Friday %v", r.TriggerAt, want)
	}
}

func TestParseComposedWeekdayAndClock(t *testing.T) {
	t.Parallel()
	r, err := Parse("every friday at 10am send report", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}
	if r.Task != "send report" {
		t.Fatalf("Task = %q", r.Task)
	}
}

func TestParseMonthlyDayOfMonth(t *testing.T) {
	t.Parallel()
	r, err := Parse("pay rent every month on the 1st", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Pattern.Kind != PatternMonthly || r.Pattern.Day != 1 {
		t.Fatalf("pattern = %v, want monthly day 1", r.Pattern)
	}
	// March 1st has passed, so the first firing is April 1st.
	want := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}
	if r.Task != "pay rent" {
		t.Fatalf("Task = %q", r.Task)
	}
}

func TestParseTomorrowWithClock(t *testing.T) {
	t.Parallel()
	r, err := Parse("remind me to call mom tomorrow at 5pm", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, time.March, 11, 17, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}
	if r.Task != "call mom" {
		t.Fatalf("Task = %q", r.Task)
	}
}

func TestParseTonight(t *testing.T) {
	t.Parallel()
	r, err := Parse("take out the trash tonight", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, time.March, 10, DefaultEveningHour, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}

	// Past the evening hour it rolls to the next day.
	lateNow := time.Date(2025, time.March, 10, 21, 30, 0, 0, time.UTC)
	r2, err := Parse("take out the trash tonight", lateNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want2 := time.Date(2025, time.March, 11, DefaultEveningHour, 0, 0, 0, time.UTC)
	if !r2.TriggerAt.Equal(want2) {
		t.Fatalf("TriggerAt = %v, want %v", r2.TriggerAt, want2)
	}
}

func TestParseTodayDefaultsAnHourOut(t *testing.T) {
	t.Parallel()
	r, err := Parse("finish the review today", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := testNow.Add(time.Hour); !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}

	// Early morning floors at the default morning hour.
	early := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	r2, err := Parse("finish the review today", early)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want2 := time.Date(2025, time.March, 10, DefaultMorningHour, 0, 0, 0, time.UTC)
	if !r2.TriggerAt.Equal(want2) {
		t.Fatalf("TriggerAt = %v, want %v", r2.TriggerAt, want2)
	}
}

func TestParseAbsoluteDateYearRollover(t *testing.T) {
	t.Parallel()
	r, err := Parse("wish alice happy birthday on january 5", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.TriggerAt.Year() != 2026 || r.TriggerAt.Month() != time.January || r.TriggerAt.Day() != 5 {
		t.Fatalf("TriggerAt = %v, want January 5 next year", r.TriggerAt)
	}

	r2, err := Parse("renew passport december 1 at 10am", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, time.December, 1, 10, 0, 0, 0, time.UTC)
	if !r2.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r2.TriggerAt, want)
	}
}

func TestParseBareClockRollsToTomorrow(t *testing.T) {
	t.Parallel()
	r, err := Parse("stretch at 8am", testNow) // 08:00 already passed
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("TriggerAt = %v, want %v", r.TriggerAt, want)
	}
}

func TestParseInvalidClockHasNoMatchEffect(t *testing.T) {
	t.Parallel()
	// Out-of-range clock values must not count as a time signal.
	if _, err := Parse("meet at 25:70", testNow); !errors.Is(err, ErrNoTimeExpr) {
		t.Fatalf("error = %v, want ErrNoTimeExpr", err)
	}
	// And they must not be stripped when another rule makes the parse valid.
	r, err := Parse("meet at 99 tomorrow", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Task != "meet at 99" {
		t.Fatalf("Task = %q, want invalid clock text preserved", r.Task)
	}
}

func TestParseFallbackTaskLabel(t *testing.T) {
	t.Parallel()
	r, err := Parse("remind me tomorrow", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Task != fallbackTask {
		t.Fatalf("Task = %q, want %q", r.Task, fallbackTask)
	}
}

func TestParseDraftFlags(t *testing.T) {
	t.Parallel()
	r, err := Parse("in 2 hours ping the deploy", testNow)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !r.Active || r.Completed || r.Snoozed {
		t.Fatalf("flags = active:%v completed:%v snoozed:%v", r.Active, r.Completed, r.Snoozed)
	}
	if r.ID == "" {
		t.Fatal("expected generated id")
	}
	if !r.CreatedAt.Equal(testNow) {
		t.Fatalf("CreatedAt = %v, want %v", r.CreatedAt, testNow)
	}
	if r.RawText != "in 2 hours ping the deploy" {
		t.Fatalf("RawText = %q", r.RawText)
	}
}
