// Package termdate parses the human-readable date range that labels a
// bookable term, e.g. "15.06.2025 - 22.06.2025".
//
// Both ends must carry an explicit year. No rollover into the next year is
// inferred for partial dates.
package termdate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RangeSeparator joins the start and end dates of a term label.
const RangeSeparator = " - "

// ParseError reports a term label that could not be turned into a date range.
type ParseError struct {
	Label  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid term label %q: %s", e.Label, e.Reason)
}

// ParseRange returns the start and end dates of label at midnight in loc.
func ParseRange(label string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Split(label, RangeSeparator)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, &ParseError{Label: label, Reason: fmt.Sprintf("expected 2 dates separated by %q, got %d part(s)", RangeSeparator, len(parts))}
	}

	start, err := parseDate(label, parts[0], loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(label, parts[1], loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &ParseError{Label: label, Reason: "end date is before start date"}
	}

	return start, end, nil
}

// StartDate is ParseRange without the end date.
func StartDate(label string, loc *time.Location) (time.Time, error) {
	start, _, err := ParseRange(label, loc)
	return start, err
}

// IsPast reports whether the term starts strictly before now. The start date
// is interpreted in now's location.
func IsPast(label string, now time.Time) (bool, error) {
	start, err := StartDate(label, now.Location())
	if err != nil {
		return false, err
	}
	return start.Before(now), nil
}

// parseDate reads a single "d.m.yyyy" component.
func parseDate(label, raw string, loc *time.Location) (time.Time, error) {
	fields := strings.Split(strings.TrimSpace(raw), ".")
	if len(fields) != 3 {
		return time.Time{}, &ParseError{Label: label, Reason: fmt.Sprintf("date %q must be day.month.year", strings.TrimSpace(raw))}
	}

	var nums [3]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, &ParseError{Label: label, Reason: fmt.Sprintf("non-numeric date component %q", f)}
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if year < 1000 || year > 9999 {
		return time.Time{}, &ParseError{Label: label, Reason: fmt.Sprintf("year %d must have four digits", year)}
	}
	if month < 1 || month > 12 {
		return time.Time{}, &ParseError{Label: label, Reason: fmt.Sprintf("month %d out of range", month)}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 31.02 into March; reject instead.
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, &ParseError{Label: label, Reason: fmt.Sprintf("day %d out of range for month %d", day, month)}
	}
	return date, nil
}
