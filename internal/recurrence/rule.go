package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for start, end and due dates.
// Dates in this layout compare correctly as plain strings.
const DateLayout = "2006-01-02"

type Type string

const (
	Once   Type = "once"
	Daily  Type = "daily"
	Weekly Type = "weekly"
	Custom Type = "custom"
)

var typeFromName = map[string]Type{
	"once":   Once,
	"daily":  Daily,
	"weekly": Weekly,
	"custom": Custom,
}

var dayAbbrev = map[time.Weekday]string{
	time.Sunday:    "Sun",
	time.Monday:    "Mon",
	time.Tuesday:   "Tue",
	time.Wednesday: "Wed",
	time.Thursday:  "Thu",
	time.Friday:    "Fri",
	time.Saturday:  "Sat",
}

// Rule is the recurrence descriptor of a scheduled chore.
type Rule struct {
	Type      Type           `json:"type"`
	Days      []time.Weekday `json:"days,omitempty"` // custom only; 0=Sunday..6=Saturday
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date,omitempty"` // empty = no end
}

// ParseType maps a stored or submitted type name to a Type.
func ParseType(s string) (Type, error) {
	t, ok := typeFromName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown recurrence type: %q", s)
	}
	return t, nil
}

// ParseDays decodes a comma-separated list of weekday ordinals ("1,3,5").
// Tokens that are not ordinals in 0..6 are dropped; the result is sorted
// and free of duplicates. An empty or entirely invalid list yields nil.
func ParseDays(s string) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var days []time.Weekday
	for _, tok := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		d := time.Weekday(n)
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// FormatDays is the inverse of ParseDays.
func FormatDays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

// Validate checks a rule before it is stored. The evaluator never calls it:
// ShouldCreateInstance treats malformed rules as "never fires".
func Validate(r Rule) error {
	if _, ok := typeFromName[string(r.Type)]; !ok {
		return fmt.Errorf("unknown recurrence type: %q", r.Type)
	}
	if !validDate(r.StartDate) {
		return fmt.Errorf("invalid start date: %q", r.StartDate)
	}
	if r.EndDate != "" {
		if !validDate(r.EndDate) {
			return fmt.Errorf("invalid end date: %q", r.EndDate)
		}
		if r.EndDate < r.StartDate {
			return errors.New("end date is before start date")
		}
	}
	if r.Type == Custom {
		if len(r.Days) == 0 {
			return errors.New("custom recurrence needs at least one weekday")
		}
		for _, d := range r.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("invalid weekday: %d", d)
			}
		}
	}
	return nil
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	var desc string
	switch r.Type {
	case Once:
		return "Once on " + r.StartDate
	case Daily:
		desc = "Every day"
	case Weekly:
		wd, ok := weekdayOf(r.StartDate)
		if !ok {
			return "Weekly"
		}
		desc = "Every " + dayAbbrev[wd]
	case Custom:
		if len(r.Days) == 0 {
			return "No days selected"
		}
		names := make([]string, 0, len(r.Days))
		for _, d := range r.Days {
			names = append(names, dayAbbrev[d])
		}
		desc = "Every " + strings.Join(names, ", ")
	default:
		return ""
	}
	if r.EndDate != "" {
		desc += " until " + r.EndDate
	}
	return desc
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func weekdayOf(s string) (time.Weekday, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, false
	}
	return t.Weekday(), true
}
