package ctdf

import "time"

// TimePeriod is a half open [Begin, End) range. A zero End means open ended.
type TimePeriod struct {
	Begin time.Time `groups:"basic"`
	End   time.Time `groups:"basic"`
}

func (p TimePeriod) OpenEnded() bool {
	return p.End.IsZero()
}

func (p TimePeriod) Contains(t time.Time) bool {
	if t.Before(p.Begin) {
		return false
	}

	return p.OpenEnded() || t.Before(p.End)
}

// Intersects reports whether [begin, end] overlaps the period.
func (p TimePeriod) Intersects(begin, end time.Time) bool {
	if !p.OpenEnded() && !begin.Before(p.End) {
		return false
	}

	return !p.Begin.After(end)
}

// DatePeriod is the closed range of calendar days a schedule is valid for.
type DatePeriod struct {
	Begin time.Time `groups:"basic"`
	Days  int       `groups:"basic"`
}

func NewDatePeriod(begin time.Time, days int) DatePeriod {
	begin = begin.UTC()

	return DatePeriod{
		Begin: time.Date(begin.Year(), begin.Month(), begin.Day(), 0, 0, 0, 0, time.UTC),
		Days:  days,
	}
}

// Last returns the first instant after the period.
func (p DatePeriod) Last() time.Time {
	return p.Begin.AddDate(0, 0, p.Days)
}

func (p DatePeriod) ContainsDate(date time.Time) bool {
	date = date.UTC()

	return !date.Before(p.Begin) && date.Before(p.Last())
}
