package domain

import (
	"strconv"
	"strings"
	"time"
)

const dateSeparator = "-"

// NormalizeDate turns a date-like string into a concrete calendar date.
//
// Accepted shapes are YYYY-MM-DD, MM-YYYY and YYYY-MM. The partial shapes
// resolve to the last day of the named month. Anything else fails with
// ErrInvalidDateFormat.
func NormalizeDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)

	switch strings.Count(s, dateSeparator) {
	case 2:
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return time.Time{}, ErrInvalidDateFormat
		}
		return t, nil
	case 1:
		p1, p2, _ := strings.Cut(s, dateSeparator)

		var yearPart, monthPart string
		switch {
		case len(p1) == 2 && len(p2) == 4:
			monthPart, yearPart = p1, p2
		case len(p1) == 4 && len(p2) == 2:
			yearPart, monthPart = p1, p2
		default:
			return time.Time{}, ErrInvalidDateFormat
		}

		year, ok := parseDigits(yearPart)
		if !ok || year < 1 {
			return time.Time{}, ErrInvalidDateFormat
		}
		month, ok := parseDigits(monthPart)
		if !ok || month < 1 || month > 12 {
			return time.Time{}, ErrInvalidDateFormat
		}
		return LastDayOfMonth(year, time.Month(month)), nil
	default:
		return time.Time{}, ErrInvalidDateFormat
	}
}

// LastDayOfMonth returns the final calendar day of the given month.
// Day 0 of the following month normalizes to it, leap years included.
func LastDayOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// ParseCount parses a non-negative integer literal made of ASCII digits
// only. Signs, spaces and empty input are rejected.
func ParseCount(s string) (int, bool) {
	return parseDigits(s)
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
