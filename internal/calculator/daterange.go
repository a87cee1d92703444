package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the format of period boundaries in requests and reports.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate      = errors.New("dates must use the YYYY-MM-DD format")
	ErrInvalidDateRange = errors.New("start date must not be after end date")
)

// DateRange is an inclusive range of calendar days in a fixed location.
// Vendor timestamps (Unix seconds or ISO strings) are compared by the
// calendar day they fall on in that location, never by instant.
type DateRange struct {
	Start time.Time
	End   time.Time
	loc   *time.Location
}

// ParseDateRange parses two YYYY-MM-DD dates into a range.
// A nil location means UTC.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := time.ParseInLocation(DateLayout, strings.TrimSpace(start), loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: start date %q", ErrInvalidDate, start)
	}
	e, err := time.ParseInLocation(DateLayout, strings.TrimSpace(end), loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: end date %q", ErrInvalidDate, end)
	}
	if s.After(e) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{Start: s, End: e, loc: loc}, nil
}

// Location returns the location calendar days are evaluated in.
func (r DateRange) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// Contains reports whether t falls on a day inside the range.
// The zero time is never contained.
func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := dayOf(t, r.Location())
	return !d.Before(r.Start) && !d.After(r.End)
}

// StartString returns the start day formatted as YYYY-MM-DD.
func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }

// EndString returns the end day formatted as YYYY-MM-DD.
func (r DateRange) EndString() string { return r.End.Format(DateLayout) }

// FormatDay renders t as its calendar day in the range's location.
// The zero time renders as an empty string.
func (r DateRange) FormatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.Location()).Format(DateLayout)
}

// NightsBetween counts calendar nights from check-in to check-out in loc.
// Missing dates or a check-out before check-in yield zero.
func NightsBetween(checkIn, checkOut time.Time, loc *time.Location) int {
	if checkIn.IsZero() || checkOut.IsZero() {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}
	in := dayOf(checkIn, loc)
	out := dayOf(checkOut, loc)
	// Days around DST changes are 23 or 25 hours long.
	nights := int(math.Round(out.Sub(in).Hours() / 24))
	if nights < 0 {
		return 0
	}
	return nights
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
