/*
converter.go - Secondary (Jalali) calendar conversion

PURPOSE:
  Human-facing months are Jalali months; storage is Gregorian. A Converter
  maps days between the two and MonthBounds turns a Jalali month into the
  inclusive Gregorian range that backs a monthly period.

IMPLEMENTATIONS:
  Arithmetic: 33-year cycle arithmetic, the default
  Breaks:     Astronomical leap-year break table, higher precision

  Both are pure and exact inverses over the supported range. The choice is
  made once at composition time with New(name); callers only ever see the
  Converter interface.

ROUND-TRIP LAW:
  For every d in [SupportedStart, SupportedEnd]:
      s, _ := conv.ToSecondary(d)
      conv.ToPrimary(s.Year, s.Month, s.Day) == d

SEE ALSO:
  - arithmetic.go, breaks.go: Algorithms
  - date.go: Date and Range
*/
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDate is returned for malformed or impossible dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrOutOfRange is returned for dates outside the supported span.
	ErrOutOfRange = errors.New("date outside supported calendar range")

	// ErrUnknownAlgorithm is returned by New for an unrecognised name.
	ErrUnknownAlgorithm = errors.New("unknown calendar algorithm")
)

// Supported Gregorian span, inclusive.
var (
	SupportedStart = NewDate(1700, time.January, 1)
	SupportedEnd   = NewDate(2599, time.December, 31)
)

// Month lengths of the secondary calendar. Esfand gains a day in leap years.
var monthDays = [12]int{31, 31, 31, 31, 31, 31, 30, 30, 30, 30, 30, 29}

var monthNames = [12]string{
	"Farvardin", "Ordibehesht", "Khordad", "Tir", "Mordad", "Shahrivar",
	"Mehr", "Aban", "Azar", "Dey", "Bahman", "Esfand",
}

var gregorianMonthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// =============================================================================
// CONVERTER
// =============================================================================

// SecondaryDate is a day in the secondary calendar. Display only, never persisted.
type SecondaryDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (s SecondaryDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", s.Year, s.Month, s.Day)
}

// Converter maps days between the primary and secondary calendars.
type Converter interface {
	// Name identifies the algorithm ("arithmetic", "breaks").
	Name() string

	// ToSecondary converts a Gregorian day.
	ToSecondary(d Date) (SecondaryDate, error)

	// ToPrimary converts a secondary-calendar day. Impossible days
	// (month 13, Esfand 30 of a common year) return ErrInvalidDate.
	ToPrimary(year, month, day int) (Date, error)
}

// Algorithm names accepted by New.
const (
	AlgorithmArithmetic = "arithmetic"
	AlgorithmBreaks     = "breaks"
)

// New selects a converter by name. An empty name selects the default.
func New(name string) (Converter, error) {
	switch name {
	case "", AlgorithmArithmetic:
		return Arithmetic{}, nil
	case AlgorithmBreaks:
		return Breaks{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Default returns the default converter.
func Default() Converter {
	return Arithmetic{}
}

// MonthName returns the secondary-calendar month name (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", month)
	}
	return monthNames[month-1]
}

func checkSupported(d Date) error {
	if d.Before(SupportedStart) || d.After(SupportedEnd) {
		return fmt.Errorf("%w: %s", ErrOutOfRange, d)
	}
	return nil
}

func checkSecondaryShape(year, month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	max := monthDays[month-1]
	if month == 12 {
		max++
	}
	if day < 1 || day > max {
		return fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return nil
}

// toPrimaryChecked wraps a raw inverse with shape, round-trip and range checks.
// The round-trip check rejects Esfand 30 in common years for any algorithm.
func toPrimaryChecked(conv Converter, raw func(y, m, d int) Date, year, month, day int) (Date, error) {
	if err := checkSecondaryShape(year, month, day); err != nil {
		return Date{}, err
	}
	g := raw(year, month, day)
	if err := checkSupported(g); err != nil {
		return Date{}, err
	}
	back, err := conv.ToSecondary(g)
	if err != nil {
		return Date{}, err
	}
	if back != (SecondaryDate{Year: year, Month: month, Day: day}) {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d does not exist", ErrInvalidDate, year, month, day)
	}
	return g, nil
}

// =============================================================================
// MONTH BOUNDS
// =============================================================================

// Month is a secondary-calendar month and the Gregorian days it spans.
type Month struct {
	Year  int
	Month int
	Start Date
	End   Date
	Days  int
}

// MonthBounds computes start = ToPrimary(y, m, 1), end = next month's start - 1.
func MonthBounds(conv Converter, year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	start, err := conv.ToPrimary(year, month, 1)
	if err != nil {
		return Month{}, err
	}
	ny, nm := NextMonth(year, month)
	nextStart, err := conv.ToPrimary(ny, nm, 1)
	if err != nil {
		return Month{}, err
	}
	end := nextStart.AddDays(-1)
	return Month{
		Year:  year,
		Month: month,
		Start: start,
		End:   end,
		Days:  DaysBetween(start, end) + 1,
	}, nil
}

// MonthOf returns the secondary month containing d.
func MonthOf(conv Converter, d Date) (Month, error) {
	s, err := conv.ToSecondary(d)
	if err != nil {
		return Month{}, err
	}
	return MonthBounds(conv, s.Year, s.Month)
}

// Range returns the inclusive Gregorian span of the month.
func (m Month) Range() Range {
	return Range{Start: m.Start, End: m.End}
}

// Title is the generated title for a monthly period, e.g. "1403-01 (Farvardin)".
func (m Month) Title() string {
	return fmt.Sprintf("%d-%02d (%s)", m.Year, m.Month, MonthName(m.Month))
}

// NextMonth wraps Esfand into Farvardin of the following year.
func NextMonth(year, month int) (int, int) {
	if month >= 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// PrevMonth wraps Farvardin into Esfand of the previous year.
func PrevMonth(year, month int) (int, int) {
	if month <= 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// IsLeapYear reports whether the secondary year has 366 days.
func IsLeapYear(conv Converter, year int) (bool, error) {
	start, err := conv.ToPrimary(year, 1, 1)
	if err != nil {
		return false, err
	}
	next, err := conv.ToPrimary(year+1, 1, 1)
	if err != nil {
		return false, err
	}
	return DaysBetween(start, next) == 366, nil
}
