package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestNextOccurrence_MonthlyClampsLeapYear(t *testing.T) {
	next, err := NextOccurrence(date(2024, time.January, 31, 9, 0), monthly, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := date(2024, time.February, 29, 9, 0)
	if !next.Equal(want) {
		t.Errorf("got %v, want %v", next, want)
	}
}

func TestNextOccurrence_MonthlyClampsNonLeapYear(t *testing.T) {
	next, err := NextOccurrence(date(2023, time.January, 31, 9, 0), monthly, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := date(2023, time.February, 28, 9, 0)
	if !next.Equal(want) {
		t.Errorf("got %v, want %v", next, want)
	}
}

func TestNextOccurrence_WeekdaysFridaySkipsWeekend(t *testing.T) {
	friday := date(2024, time.January, 5, 9, 0) // a Friday
	if friday.Weekday() != time.Friday {
		t.Fatalf("test fixture isn't a Friday: %v", friday.Weekday())
	}
	next, err := NextOccurrence(friday, weekdays, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Weekday() != time.Monday {
		t.Errorf("expected following Monday, got %v (%v)", next, next.Weekday())
	}
}

func TestNextOccurrence_WeekdaysSaturdayGoesToMonday(t *testing.T) {
	saturday := date(2024, time.January, 6, 9, 0)
	if saturday.Weekday() != time.Saturday {
		t.Fatalf("test fixture isn't a Saturday: %v", saturday.Weekday())
	}
	next, err := NextOccurrence(saturday, weekdays, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Weekday() != time.Monday {
		t.Errorf("expected Monday, got %v (%v)", next, next.Weekday())
	}
}

func TestNextOccurrence_SeriesTerminatesPastEnd(t *testing.T) {
	current := date(2024, time.January, 1, 9, 0)
	end := date(2024, time.January, 1, 23, 59)
	next, err := NextOccurrence(current, daily, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != nil {
		t.Errorf("expected nil (series terminated), got %v", next)
	}
}

func TestNextOccurrence_CronWeeklyMonday0900(t *testing.T) {
	current := date(2024, time.January, 1, 0, 0) // a Monday
	next, err := NextOccurrence(current, "cron:0 9 * * 1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Weekday() != time.Monday || next.Hour() != 9 || next.Minute() != 0 {
		t.Errorf("expected next Monday 09:00, got %v", next)
	}
	if next.Sub(current) > 7*24*time.Hour {
		t.Errorf("expected match within a week, got %v", next.Sub(current))
	}
}

func TestValidate_RejectsGarbage(t *testing.T) {
	if err := Validate("fortnightly"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule, got %v", err)
	}
	if err := Validate("cron:0 9 * *"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule for short cron spec, got %v", err)
	}
}

func TestValidate_AcceptsAllGrammarForms(t *testing.T) {
	for _, rule := range []string{daily, weekly, monthly, weekdays, "cron:*/15 * * * *", "cron:0 9 1-5 * 1,3,5"} {
		if err := Validate(rule); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", rule, err)
		}
	}
}

func TestBaseDate_PrefersReminderThenDueThenNow(t *testing.T) {
	now := date(2024, time.March, 1, 0, 0)
	reminder := date(2024, time.January, 1, 9, 0)
	due := date(2024, time.February, 1, 9, 0)

	if got := BaseDate(&reminder, &due, now); !got.Equal(reminder) {
		t.Errorf("expected reminder_at to win, got %v", got)
	}
	if got := BaseDate(nil, &due, now); !got.Equal(due) {
		t.Errorf("expected due_at to win when no reminder, got %v", got)
	}
	if got := BaseDate(nil, nil, now); !got.Equal(now) {
		t.Errorf("expected now to win when neither is set, got %v", got)
	}
}
