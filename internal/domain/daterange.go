package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is an inclusive time window with Start <= End.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return DateRange{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Months counts the calendar months touched by the range, at least 1.
func (r DateRange) Months() int {
	n := (r.End.Year()-r.Start.Year())*12 + int(r.End.Month()) - int(r.Start.Month()) + 1
	if n < 1 {
		return 1
	}
	return n
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + " to " + r.End.Format(time.DateOnly)
}

// LastMonths is the rolling window from the same instant n months back to now,
// so its first month is usually partial.
func LastMonths(n int, now time.Time) DateRange {
	return DateRange{Start: now.AddDate(0, -n, 0), End: now}
}

// LastDays covers the n days ending at now.
func LastDays(n int, now time.Time) DateRange {
	return DateRange{Start: now.AddDate(0, 0, -n), End: now}
}

// ThisMonth runs from the first of now's month to now.
func ThisMonth(now time.Time) DateRange {
	return DateRange{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), End: now}
}

// ThisYear runs from January 1st of now's year to now.
func ThisYear(now time.Time) DateRange {
	return DateRange{Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), End: now}
}

var (
	lastPeriod  = regexp.MustCompile(`^last\s+(\d+\s+)?(day|week|month|year)s?$`)
	explicitSep = regexp.MustCompile(`\s*(?:\.\.|\bto\b)\s*`)
)

// ParseRange understands "last N days|weeks|months|years", "last month",
// "this month", "this year" and "YYYY-MM-DD to YYYY-MM-DD". Empty text means
// the last 3 months.
func ParseRange(text string, now time.Time) (DateRange, error) {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	switch s {
	case "":
		return LastMonths(3, now), nil
	case "this month":
		return ThisMonth(now), nil
	case "this year", "ytd":
		return ThisYear(now), nil
	}

	if m := lastPeriod.FindStringSubmatch(s); m != nil {
		n := 1
		if v := strings.TrimSpace(m[1]); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, text)
			}
			n = parsed
		}
		switch m[2] {
		case "day":
			return LastDays(n, now), nil
		case "week":
			return LastDays(7*n, now), nil
		case "month":
			return LastMonths(n, now), nil
		default:
			return DateRange{Start: now.AddDate(-n, 0, 0), End: now}, nil
		}
	}

	if parts := explicitSep.Split(s, 2); len(parts) == 2 {
		start, err := time.ParseInLocation(time.DateOnly, parts[0], now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, text)
		}
		end, err := time.ParseInLocation(time.DateOnly, parts[1], now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, text)
		}
		return NewDateRange(start, end.Add(24*time.Hour-time.Nanosecond))
	}
	return DateRange{}, fmt.Errorf("%w: unrecognised period %q", ErrInvalidDateRange, text)
}
