package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Recurrence is a plan's repeat rule in canonical form: "one-time" or "every N <unit>s"
type Recurrence string

// RecurrenceOneTime is the non-repeating rule
const RecurrenceOneTime Recurrence = "one-time"

// RecurrenceUnit is the calendar unit of a repeat interval
type RecurrenceUnit string

const (
	UnitDay   RecurrenceUnit = "day"
	UnitWeek  RecurrenceUnit = "week"
	UnitMonth RecurrenceUnit = "month"
	UnitYear  RecurrenceUnit = "year"
)

var everyRegex = regexp.MustCompile(`^every\s+(?:(\d+)\s+)?(day|week|month|year)s?$`)

var recurrenceAliases = map[string]Recurrence{
	"":          RecurrenceOneTime,
	"one-time":  RecurrenceOneTime,
	"one time":  RecurrenceOneTime,
	"onetime":   RecurrenceOneTime,
	"once":      RecurrenceOneTime,
	"daily":     "every 1 day",
	"weekly":    "every 1 week",
	"biweekly":  "every 2 weeks",
	"monthly":   "every 1 month",
	"quarterly": "every 3 months",
	"yearly":    "every 1 year",
	"annually":  "every 1 year",
	"annual":    "every 1 year",
}

// ParseRecurrence normalizes a free-form rule such as "Quarterly", "Every 3 months" or "One-time"
func ParseRecurrence(s string) (Recurrence, error) {
	key := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if r, ok := recurrenceAliases[key]; ok {
		return r, nil
	}
	m := everyRegex.FindStringSubmatch(key)
	if m == nil {
		return "", Validation("unrecognized recurrence %q", s)
	}
	n := 1
	if m[1] != "" {
		var err error
		n, err = strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return "", Validation("recurrence interval must be positive: %q", s)
		}
	}
	return NewRecurrence(n, RecurrenceUnit(m[2])), nil
}

// NewRecurrence builds the canonical rule for every n units
func NewRecurrence(n int, unit RecurrenceUnit) Recurrence {
	if n == 1 {
		return Recurrence(fmt.Sprintf("every 1 %s", unit))
	}
	return Recurrence(fmt.Sprintf("every %d %ss", n, unit))
}

// IsOneTime reports whether the rule does not repeat
func (r Recurrence) IsOneTime() bool {
	return r == RecurrenceOneTime || r == ""
}

// Interval returns the repeat interval; ok is false for one-time rules
func (r Recurrence) Interval() (n int, unit RecurrenceUnit, ok bool) {
	if r.IsOneTime() {
		return 0, "", false
	}
	m := everyRegex.FindStringSubmatch(string(r))
	if m == nil {
		return 0, "", false
	}
	n = 1
	if m[1] != "" {
		n, _ = strconv.Atoi(m[1])
	}
	return n, RecurrenceUnit(m[2]), n > 0
}

// Next returns the due date one interval after from. Month arithmetic clamps to
// the last day of the target month, so Jan 31 + 1 month is Feb 28/29.
func (r Recurrence) Next(from time.Time) (time.Time, bool) {
	n, unit, ok := r.Interval()
	if !ok {
		return time.Time{}, false
	}
	switch unit {
	case UnitDay:
		return from.AddDate(0, 0, n), true
	case UnitWeek:
		return from.AddDate(0, 0, 7*n), true
	case UnitMonth:
		return addMonthsClamped(from, n), true
	case UnitYear:
		return addMonthsClamped(from, 12*n), true
	}
	return time.Time{}, false
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
