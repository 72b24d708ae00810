// Package orgdate resolves free-form date modifiers ("+3d", "fri", "12/25",
// "9:30") against an anchor date and formats the result as org-mode
// timestamps.
package orgdate

import (
	"fmt"
	"time"

	"github.com/starford/orgstamp/internal/apperr"
)

// Kind tells a date apart from a date-time.
type Kind int

const (
	KindDate Kind = iota
	KindDateTime
)

const (
	minYear = 1
	maxYear = 9999

	// maxDaySpan bounds day arithmetic to the representable year range.
	maxDaySpan = (maxYear - minYear + 1) * 366

	dateLayout     = "2006-01-02 Mon"
	dateTimeLayout = "2006-01-02 Mon 15:04"
)

// Moment is a calendar date or a calendar date with a time of day.
// The zero value is not a valid Moment; use NewDate, NewDateTime or DateOf.
type Moment struct {
	kind Kind
	t    time.Time
}

// NewDate returns the date year-month-day or an error wrapping
// apperr.ErrInvalidDate if the fields do not name a calendar day.
func NewDate(year, month, day int) (Moment, error) {
	if err := checkDate(year, month, day); err != nil {
		return Moment{}, err
	}
	return Moment{
		kind: KindDate,
		t:    time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
	}, nil
}

// NewDateTime returns the date-time year-month-day hour:minute.
func NewDateTime(year, month, day, hour, minute int) (Moment, error) {
	if err := checkDate(year, month, day); err != nil {
		return Moment{}, err
	}
	if hour < 0 || hour > 23 {
		return Moment{}, fmt.Errorf("%w: hour %d", apperr.ErrInvalidDate, hour)
	}
	if minute < 0 || minute > 59 {
		return Moment{}, fmt.Errorf("%w: minute %d", apperr.ErrInvalidDate, minute)
	}
	return Moment{
		kind: KindDateTime,
		t:    time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC),
	}, nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Moment {
	y, m, d := t.Date()
	return Moment{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Moment, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Moment{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", apperr.ErrInvalidDate, s)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func checkDate(year, month, day int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: year %d", apperr.ErrInvalidDate, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", apperr.ErrInvalidDate, month)
	}
	if day < 1 || day > daysIn(year, month) {
		return fmt.Errorf("%w: day %d of %04d-%02d", apperr.ErrInvalidDate, day, year, month)
	}
	return nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Moment) Kind() Kind            { return m.kind }
func (m Moment) HasTime() bool         { return m.kind == KindDateTime }
func (m Moment) Year() int             { return m.t.Year() }
func (m Moment) Month() int            { return int(m.t.Month()) }
func (m Moment) Day() int              { return m.t.Day() }
func (m Moment) Hour() int             { return m.t.Hour() }
func (m Moment) Minute() int           { return m.t.Minute() }
func (m Moment) Weekday() time.Weekday { return m.t.Weekday() }

// Time returns the moment as a UTC time.Time.
func (m Moment) Time() time.Time { return m.t }

// Date drops the time of day.
func (m Moment) Date() Moment {
	return DateOf(m.t)
}

// Before reports whether m is strictly earlier than o.
func (m Moment) Before(o Moment) bool { return m.t.Before(o.t) }

// Equal reports whether m and o are the same kind and instant.
func (m Moment) Equal(o Moment) bool { return m.kind == o.kind && m.t.Equal(o.t) }

// AddDays returns the date n days after m.
func (m Moment) AddDays(n int) (Moment, error) {
	if n > maxDaySpan || n < -maxDaySpan {
		return Moment{}, fmt.Errorf("%w: offset of %d days", apperr.ErrInvalidDate, n)
	}
	t := m.t.AddDate(0, 0, n)
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// String renders "YYYY-MM-DD Www" or "YYYY-MM-DD Www HH:MM" without brackets.
func (m Moment) String() string {
	if m.kind == KindDateTime {
		return m.t.Format(dateTimeLayout)
	}
	return m.t.Format(dateLayout)
}
