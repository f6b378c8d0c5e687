package recurrence

import "time"

// ShouldCreateInstance reports whether a schedule with the given rule has an
// instance due on date. Both bounds are inclusive. Malformed dates and
// incomplete rules never fire; they are not errors.
func ShouldCreateInstance(rule Rule, date string) bool {
	if !validDate(date) || !validDate(rule.StartDate) {
		return false
	}
	if rule.EndDate != "" && !validDate(rule.EndDate) {
		return false
	}
	if rule.StartDate > date {
		return false
	}
	if rule.EndDate != "" && rule.EndDate < date {
		return false
	}

	switch rule.Type {
	case Daily:
		return true
	case Weekly:
		// Recurs on the start date's weekday; there is no separate weekday field.
		start, ok := weekdayOf(rule.StartDate)
		if !ok {
			return false
		}
		wd, _ := weekdayOf(date)
		return wd == start
	case Custom:
		wd, _ := weekdayOf(date)
		for _, d := range rule.Days {
			if d == wd {
				return true
			}
		}
		return false
	case Once:
		return date == rule.StartDate
	}
	return false
}

// DeactivatesAfterFiring reports whether a schedule must be switched off once
// an instance has been created for it.
func DeactivatesAfterFiring(rule Rule) bool {
	return rule.Type == Once
}

// Today converts a wall-clock instant into a calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateLayout)
}

// AddDays shifts a calendar date by n days. Malformed input is returned unchanged.
func AddDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}
