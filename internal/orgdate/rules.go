package orgdate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/orgstamp/internal/apperr"
)

// errNoMatch makes a rule step aside although its pattern matched,
// e.g. "foo 12 9" is shaped like a worded date but "foo" is no month.
var errNoMatch = errors.New("no match")

var (
	monthAbbrev = map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
	weekdayAbbrev = map[string]int{
		"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
	}
)

// rule is one entry of the modifier grammar. extract turns the submatches
// of pattern into integer fields, resolve turns fields into a Moment.
type rule struct {
	name    string
	pattern *regexp.Regexp
	extract func(match []string) ([]int, error)
	resolve func(anchor Moment, f []int) (Moment, error)
}

// rules is ordered by priority. The first rule whose pattern is found in
// the modifier decides the result.
var rules = []rule{
	{
		name:    "iso-date",
		pattern: regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
		extract: numbers,
		resolve: func(_ Moment, f []int) (Moment, error) {
			return NewDate(f[0], f[1], f[2])
		},
	},
	{
		name:    "short-date",
		pattern: regexp.MustCompile(`(\d{1,2})-(\d+)-(\d+)`),
		extract: numbers,
		resolve: func(_ Moment, f []int) (Moment, error) {
			return NewDate(2000+f[0], f[1], f[2])
		},
	},
	{
		name:    "us-date",
		pattern: regexp.MustCompile(`(\d{1,2})/(\d+)/(\d+)`),
		extract: numbers,
		resolve: func(_ Moment, f []int) (Moment, error) {
			return NewDate(2000+f[2], f[0], f[1])
		},
	},
	{
		name:    "us-month-day",
		pattern: regexp.MustCompile(`(\d{1,2})/(\d{1,2})`),
		extract: numbers,
		resolve: func(a Moment, f []int) (Moment, error) {
			return upcoming(a, f[0], f[1])
		},
	},
	{
		name:    "worded-date",
		pattern: regexp.MustCompile(`(\w{3}) (\d{1,2}) (\d{1,2})`),
		extract: monthThenNumbers,
		resolve: func(_ Moment, f []int) (Moment, error) {
			return NewDate(2000+f[2], f[0], f[1])
		},
	},
	{
		name:    "day-of-month",
		pattern: regexp.MustCompile(`^(\d{1,2})$`),
		extract: numbers,
		resolve: dayOfMonth,
	},
	{
		name:    "weekday",
		pattern: regexp.MustCompile(`(?i)mon|tue|wed|thu|fri|sat|sun`),
		extract: func(m []string) ([]int, error) {
			return []int{weekdayAbbrev[strings.ToLower(m[0])]}, nil
		},
		resolve: nextWeekday,
	},
	{
		name:    "month-day",
		pattern: regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec) (\d{1,2})`),
		extract: monthThenNumbers,
		resolve: func(a Moment, f []int) (Moment, error) {
			return upcoming(a, f[0], f[1])
		},
	},
	{
		name:    "clock",
		pattern: regexp.MustCompile(`(\d{1,2}):(\d{2})`),
		extract: numbers,
		resolve: func(a Moment, f []int) (Moment, error) {
			return NewDateTime(a.Year(), a.Month(), a.Day(), f[0], f[1])
		},
	},
	{
		name:    "days",
		pattern: regexp.MustCompile(`\+(\d+)d`),
		extract: numbers,
		resolve: func(a Moment, f []int) (Moment, error) {
			return a.AddDays(f[0])
		},
	},
	{
		name:    "weeks",
		pattern: regexp.MustCompile(`\+(\d+)w`),
		extract: numbers,
		resolve: func(a Moment, f []int) (Moment, error) {
			if f[0] > maxDaySpan/7 {
				return Moment{}, fmt.Errorf("%w: offset of %d weeks", apperr.ErrInvalidDate, f[0])
			}
			return a.AddDays(f[0] * 7)
		},
	},
	{
		name:    "months",
		pattern: regexp.MustCompile(`\+(\d+)m`),
		extract: numbers,
		resolve: addMonths,
	},
	{
		name:    "years",
		pattern: regexp.MustCompile(`\+(\d+)y`),
		extract: numbers,
		resolve: func(a Moment, f []int) (Moment, error) {
			if f[0] > maxYear {
				return Moment{}, fmt.Errorf("%w: offset of %d years", apperr.ErrInvalidDate, f[0])
			}
			return NewDate(a.Year()+f[0], a.Month(), a.Day())
		},
	},
}

// numbers converts every capture group to an int.
func numbers(m []string) ([]int, error) {
	out := make([]int, 0, len(m)-1)
	for _, g := range m[1:] {
		n, err := strconv.Atoi(g)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is out of range", apperr.ErrInvalidDate, g)
		}
		out = append(out, n)
	}
	return out, nil
}

// monthThenNumbers maps the first group through the month table and
// converts the rest to ints.
func monthThenNumbers(m []string) ([]int, error) {
	month, ok := monthAbbrev[strings.ToLower(m[1])]
	if !ok {
		return nil, errNoMatch
	}
	rest, err := numbers(m[1:])
	if err != nil {
		return nil, err
	}
	return append([]int{month}, rest...), nil
}

// upcoming returns month/day in the anchor's year, or in the following
// year when that day has already passed.
func upcoming(anchor Moment, month, day int) (Moment, error) {
	d, err := NewDate(anchor.Year(), month, day)
	if err != nil {
		return Moment{}, err
	}
	if d.Before(anchor) {
		return NewDate(anchor.Year()+1, month, day)
	}
	return d, nil
}

// dayOfMonth resolves a bare day number. A day that has not come yet stays
// in the anchor's month. Otherwise the anchor is pushed 28 days ahead and
// its day replaced, which only approximates "same day next month": from
// 2024-01-03, "2" yields 2024-01-02.
func dayOfMonth(anchor Moment, f []int) (Moment, error) {
	day := f[0]
	if day > anchor.Day() {
		return NewDate(anchor.Year(), anchor.Month(), day)
	}
	ahead, err := anchor.AddDays(28)
	if err != nil {
		return Moment{}, err
	}
	return NewDate(ahead.Year(), ahead.Month(), day)
}

// nextWeekday returns the next occurrence of the weekday, never the anchor
// itself.
func nextWeekday(anchor Moment, f []int) (Moment, error) {
	// time.Weekday starts on Sunday, the table on Monday.
	current := (int(anchor.Weekday()) + 6) % 7
	diff := ((f[0]-current)%7 + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return anchor.AddDays(diff)
}

// addMonths carries month overflow into the year but keeps the day as is,
// so 2024-01-31 +1m fails instead of clamping to February's last day.
func addMonths(anchor Moment, f []int) (Moment, error) {
	if f[0] > maxYear*12 {
		return Moment{}, fmt.Errorf("%w: offset of %d months", apperr.ErrInvalidDate, f[0])
	}
	total := anchor.Month() - 1 + f[0]
	return NewDate(anchor.Year()+total/12, total%12+1, anchor.Day())
}
