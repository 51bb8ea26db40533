package usecase

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Period is the Monday to Friday reporting week.
type Period struct {
	Start time.Time // Monday 00:00
	End   time.Time // Friday 00:00
}

// NewPeriod returns the week containing now, evaluated in loc.
func NewPeriod(now time.Time, loc *time.Location) Period {
	d := now.In(loc)
	offset := (int(d.Weekday()) + 6) % 7 // days since Monday
	start := time.Date(d.Year(), d.Month(), d.Day()-offset, 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 0, 4)}
}

// ParsePeriod returns the week containing the given YYYY-MM-DD date.
func ParsePeriod(date string, loc *time.Location) (Period, error) {
	t, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return Period{}, fmt.Errorf("failed to parse date %q: %w", date, err)
	}
	return NewPeriod(t, loc), nil
}

// FetchFrom is the inclusive start of the fetch window.
func (p Period) FetchFrom() time.Time { return p.Start }

// FetchTo is the exclusive end of the fetch window (Saturday 00:00).
func (p Period) FetchTo() time.Time { return p.Start.AddDate(0, 0, 5) }

// Contains reports whether t falls inside the fetch window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.FetchFrom()) && t.Before(p.FetchTo())
}

// Day returns the date of weekday n of the period, Monday being 1.
func (p Period) Day(n int) time.Time {
	return p.Start.AddDate(0, 0, n-1)
}

// HalfYear returns "H1" or "H2" for the start date.
func (p Period) HalfYear() string {
	return halfYear(p.Start.Month())
}

func halfYear(m time.Month) string {
	if m > time.June {
		return "H2"
	}
	return "H1"
}

// MonthTag is the bug counter tag of the start month, e.g. "2026-10".
func (p Period) MonthTag() string {
	return p.Start.Format("2006-01")
}

// HalfYearTag is the bug counter tag of the start half-year, e.g. "2026-H2".
func (p Period) HalfYearTag() string {
	return fmt.Sprintf("%d-%s", p.Start.Year(), p.HalfYear())
}

// DateRange renders the period as "October 19-23, 2026", or
// "September 28 - October 2, 2026" when it spans two months.
func (p Period) DateRange() string {
	s, e := p.Start, p.End
	if s.Month() == e.Month() {
		return fmt.Sprintf("%s %d-%d, %d", s.Month(), s.Day(), e.Day(), e.Year())
	}
	return fmt.Sprintf("%s %d - %s %d, %d", s.Month(), s.Day(), e.Month(), e.Day(), e.Year())
}

// SyncLabel is the subject line of the request email that links the shared document:
// "[Fill Weekly Report] <Sunday before, dd Month yyyy> - <Saturday, dd Month yyyy>".
func (p Period) SyncLabel() string {
	const layout = "02 January 2006"
	sunday := p.Start.AddDate(0, 0, -1)
	saturday := p.End.AddDate(0, 0, 1)
	return fmt.Sprintf("[Fill Weekly Report] %s - %s", sunday.Format(layout), saturday.Format(layout))
}

// ArtifactName is the file name of the rendered report.
func (p Period) ArtifactName() string {
	return fmt.Sprintf("Weekly_Report_%s_to_%s.md", p.Start.Format(dateLayout), p.End.Format(dateLayout))
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// longDate renders "Monday, October 19th, 2026".
func longDate(t time.Time) string {
	return fmt.Sprintf("%s, %s %s, %d", t.Weekday(), t.Month(), ordinal(t.Day()), t.Year())
}

// clock renders "9:00 AM".
func clock(t time.Time) string {
	return t.Format("3:04 PM")
}
