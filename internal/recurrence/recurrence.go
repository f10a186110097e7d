// Package recurrence computes the next occurrence of a recurring task
// from its rule string. All arithmetic is on naive UTC instants.
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRule is returned by Validate and NextOccurrence when rule is not
// one of the recognized grammar forms, or a cron rule can't be matched
// within the bounded search window.
var ErrInvalidRule = errors.New("invalid recurrence rule")

const (
	daily    = "daily"
	weekly   = "weekly"
	monthly  = "monthly"
	weekdays = "weekdays"
	cronPrefix = "cron:"

	cronSearchBound = 525_600 // one year of minutes
)

// Validate reports whether rule is a parseable recurrence rule.
func Validate(rule string) error {
	switch rule {
	case daily, weekly, monthly, weekdays:
		return nil
	}
	if strings.HasPrefix(rule, cronPrefix) {
		_, err := parseCron(strings.TrimPrefix(rule, cronPrefix))
		return err
	}
	return fmt.Errorf("%w: %q", ErrInvalidRule, rule)
}

// NextOccurrence computes the next instant after current per rule. If end
// is non-nil and the computed next strictly exceeds it, the series has
// terminated and (nil, nil) is returned. An unparseable rule returns
// ErrInvalidRule.
func NextOccurrence(current time.Time, rule string, end *time.Time) (*time.Time, error) {
	current = current.UTC()

	var next time.Time
	switch rule {
	case daily:
		next = current.AddDate(0, 0, 1)
	case weekly:
		next = current.AddDate(0, 0, 7)
	case monthly:
		next = addMonths(current, 1)
	case weekdays:
		next = nextWeekday(current)
	default:
		if !strings.HasPrefix(rule, cronPrefix) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRule, rule)
		}
		fields, err := parseCron(strings.TrimPrefix(rule, cronPrefix))
		if err != nil {
			return nil, err
		}
		found, err := nextCronOccurrence(current, fields)
		if err != nil {
			return nil, err
		}
		next = found
	}

	if end != nil && next.After(end.UTC()) {
		return nil, nil
	}
	return &next, nil
}

// BaseDate picks the instant a recurrence computation anchors to when a
// task is completed: reminder_at if set, else due_at, else now.
func BaseDate(reminderAt, dueAt *time.Time, now time.Time) time.Time {
	if reminderAt != nil {
		return reminderAt.UTC()
	}
	if dueAt != nil {
		return dueAt.UTC()
	}
	return now.UTC()
}

// addMonths adds n months to t, clamping the day-of-month to the last day
// of the resulting month when the original day doesn't exist there (e.g.
// Jan 31 + 1 month -> Feb 28/29).
func addMonths(t time.Time, n int) time.Time {
	day := t.Day()
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	lastDay := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}

// nextWeekday advances one day, then keeps advancing while the result
// lands on Saturday or Sunday.
func nextWeekday(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// cronFields holds the parsed 5 restricted-cron fields: minute, hour,
// day-of-month, month, day-of-week (0 = Sunday).
type cronFields struct {
	minute, hour, dom, month, dow string
}

func parseCron(spec string) (cronFields, error) {
	parts := strings.Fields(spec)
	if len(parts) != 5 {
		return cronFields{}, fmt.Errorf("%w: cron spec must have 5 fields, got %d", ErrInvalidRule, len(parts))
	}
	f := cronFields{minute: parts[0], hour: parts[1], dom: parts[2], month: parts[3], dow: parts[4]}
	for _, field := range []string{f.minute, f.hour, f.dom, f.month, f.dow} {
		if err := validateField(field); err != nil {
			return cronFields{}, err
		}
	}
	return f, nil
}

func validateField(field string) error {
	if field == "*" {
		return nil
	}
	if strings.HasPrefix(field, "*/") {
		_, err := strconv.Atoi(strings.TrimPrefix(field, "*/"))
		if err != nil {
			return fmt.Errorf("%w: bad step field %q", ErrInvalidRule, field)
		}
		return nil
	}
	for _, part := range strings.Split(field, ",") {
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			if len(bounds) != 2 {
				return fmt.Errorf("%w: bad range field %q", ErrInvalidRule, field)
			}
			if _, err := strconv.Atoi(bounds[0]); err != nil {
				return fmt.Errorf("%w: bad range field %q", ErrInvalidRule, field)
			}
			if _, err := strconv.Atoi(bounds[1]); err != nil {
				return fmt.Errorf("%w: bad range field %q", ErrInvalidRule, field)
			}
			continue
		}
		if _, err := strconv.Atoi(part); err != nil {
			return fmt.Errorf("%w: bad field %q", ErrInvalidRule, field)
		}
	}
	return nil
}

func nextCronOccurrence(current time.Time, f cronFields) (time.Time, error) {
	t := current.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < cronSearchBound; i++ {
		if matchesCron(t, f) {
			return t, nil
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("%w: no match within one year", ErrInvalidRule)
}

func matchesCron(t time.Time, f cronFields) bool {
	dow := int(t.Weekday()) // time.Sunday == 0, matches the rule's 0=Sunday convention
	return matchesField(f.minute, t.Minute()) &&
		matchesField(f.hour, t.Hour()) &&
		matchesField(f.dom, t.Day()) &&
		matchesField(f.month, int(t.Month())) &&
		matchesField(f.dow, dow)
}

func matchesField(field string, value int) bool {
	if field == "*" {
		return true
	}
	if strings.HasPrefix(field, "*/") {
		step, err := strconv.Atoi(strings.TrimPrefix(field, "*/"))
		if err != nil || step <= 0 {
			return false
		}
		return value%step == 0
	}
	for _, part := range strings.Split(field, ",") {
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			lo, errLo := strconv.Atoi(bounds[0])
			hi, errHi := strconv.Atoi(bounds[1])
			if errLo != nil || errHi != nil {
				continue
			}
			if value >= lo && value <= hi {
				return true
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		if n == value {
			return true
		}
	}
	return false
}
