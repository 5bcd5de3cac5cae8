package core

import (
	"fmt"
	"time"
)

// Period is one calendar month, the unit balances are computed and closed in.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(year int, month time.Month) Period { return Period{Year: year, Month: month} }

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: t.Month()} }

// ParsePeriod reads "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PeriodOf(t), nil
}

func (p Period) Validate() error {
	if p.Year < 1970 || p.Year > 9999 || p.Month < time.January || p.Month > time.December {
		return ErrInvalidPeriod
	}
	return nil
}

// Start is the first day of the month.
func (p Period) Start() Date { return NewDate(p.Year, int(p.Month), 1) }

// End is the last day of the month.
func (p Period) End() Date { return Date{Time: time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)} }

func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && time.Month(d.Month()) == p.Month
}

func (p Period) Next() Period { return PeriodOf(time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC)) }
func (p Period) Prev() Period { return PeriodOf(time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC)) }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

func (p Period) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
