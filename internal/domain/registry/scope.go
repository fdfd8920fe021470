package registry

import (
	"strconv"
	"time"
)

// Calendar selects how a default scope key is derived from a date.
type Calendar string

const (
	// CalendarFiscalBE is the Thai government fiscal year (1 Oct - 30 Sep) in
	// the Buddhist era, named after the year it ends in.
	CalendarFiscalBE Calendar = "fiscal_be"
	// CalendarAcademicBE is the Thai academic year starting 16 May, in the
	// Buddhist era.
	CalendarAcademicBE Calendar = "academic_be"
	// CalendarCalendarBE is the calendar year in the Buddhist era.
	CalendarCalendarBE Calendar = "calendar_be"
	// CalendarCalendarCE is the calendar year in the common era.
	CalendarCalendarCE Calendar = "calendar_ce"
)

const buddhistEraOffset = 543

// Valid reports whether c is a known calendar.
func (c Calendar) Valid() bool {
	switch c {
	case CalendarFiscalBE, CalendarAcademicBE, CalendarCalendarBE, CalendarCalendarCE:
		return true
	}
	return false
}

// ScopeFor returns the scope key containing t.
func ScopeFor(t time.Time, cal Calendar) string {
	year := t.Year()
	switch cal {
	case CalendarFiscalBE:
		if t.Month() >= time.October {
			year++
		}
		year += buddhistEraOffset
	case CalendarAcademicBE:
		if t.Month() < time.May || (t.Month() == time.May && t.Day() < 16) {
			year--
		}
		year += buddhistEraOffset
	case CalendarCalendarBE:
		year += buddhistEraOffset
	}
	return strconv.Itoa(year)
}
