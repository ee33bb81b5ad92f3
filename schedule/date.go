package schedule

import "time"

// =============================================================================
// DATE - Calendar date (day granularity, UTC)
// =============================================================================

// Date is a calendar date with no time-of-day component. All schedule
// validity windows and occurrence dates are plain dates; clock times live
// separately in TimeOfDay.
type Date struct {
	t time.Time
}

// NewDate builds a date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// PERIOD - Half-open date range [Start, End)
// =============================================================================

// Period is the reporting window occurrences are expanded over. End is
// exclusive: a calendar month is [first day, first day of next month).
type Period struct {
	Start Date
	End   Date
}

// MonthPeriod returns the period covering one calendar month.
func MonthPeriod(year int, month time.Month) Period {
	start := NewDate(year, month, 1)
	return Period{Start: start, End: start.AddMonths(1)}
}

// Contains reports whether the date falls inside [Start, End).
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.Before(p.End)
}

// IsEmpty reports whether the period covers no dates at all.
func (p Period) IsEmpty() bool { return !p.Start.Before(p.End) }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}
