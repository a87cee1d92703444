package calculator

import (
	"errors"
	"strings"
	"time"

	"github.com/mmynk/ownerportal/internal/models"
)

var ErrInvalidFilterType = errors.New("filter type must be checkin or checkout")

// TouristTaxRules are the municipal rules applied to guest nights.
type TouristTaxRules struct {
	// AdultAge is the age on check-in day from which a guest is an adult.
	AdultAge int

	// MaxNights caps taxable nights per stay. Zero disables the cap.
	MaxNights int
}

// DefaultTouristTaxRules returns the Lisbon rules: guests under 13 are
// exempt and at most 7 nights per stay are taxed.
func DefaultTouristTaxRules() TouristTaxRules {
	return TouristTaxRules{AdultAge: 13, MaxNights: 7}
}

// ParseDateFilter parses a filter type query value. Empty means check-in.
func ParseDateFilter(s string) (models.DateFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "checkin", "check_in", "check-in":
		return models.FilterCheckIn, nil
	case "checkout", "check_out", "check-out":
		return models.FilterCheckOut, nil
	}
	return "", ErrInvalidFilterType
}

// TouristTaxInput holds everything needed to build a tourist-tax report.
type TouristTaxInput struct {
	PropertyID   string
	Period       DateRange
	Filter       models.DateFilter
	Source       models.TaxSource
	Reservations []models.Reservation
	Rules        TouristTaxRules
	Formatter    *Formatter

	// Now stamps GeneratedAt; zero means time.Now.
	Now time.Time
}

// CalculateTouristTax builds the per-booking and aggregate city-tax breakdown.
func CalculateTouristTax(in TouristTaxInput) *models.TouristTaxReport {
	filter := in.Filter
	if filter == "" {
		filter = models.FilterCheckIn
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	reservations := FilterReservations(in.Reservations, in.Period, filter)
	loc := in.Period.Location()

	report := &models.TouristTaxReport{
		PropertyID:  in.PropertyID,
		StartDate:   in.Period.StartString(),
		EndDate:     in.Period.EndString(),
		FilterType:  filter,
		Source:      in.Source,
		Bookings:    make([]models.TouristTaxBooking, 0, len(reservations)),
		GeneratedAt: now,
	}

	totals := &report.Totals
	for _, r := range reservations {
		nights := NightsBetween(r.CheckIn, r.CheckOut, loc)
		adults, children := CountGuests(r, in.Rules.AdultAge, loc)

		taxedNights := nights
		if in.Rules.MaxNights > 0 && taxedNights > in.Rules.MaxNights {
			taxedNights = in.Rules.MaxNights
		}

		b := models.TouristTaxBooking{
			RCode:            r.RCode,
			GuestName:        r.GuestName,
			CheckIn:          in.Period.FormatDay(r.CheckIn),
			CheckOut:         in.Period.FormatDay(r.CheckOut),
			Nights:           nights,
			Adults:           adults,
			Children:         children,
			AdultNights:      adults * nights,
			ChildNights:      children * nights,
			TaxableNights:    adults * taxedNights,
			CityTax:          r.CityTax,
			CityTaxFormatted: in.Formatter.Format(r.CityTax),
		}
		report.Bookings = append(report.Bookings, b)

		totals.Bookings++
		totals.Nights += b.Nights
		totals.Adults += b.Adults
		totals.Children += b.Children
		totals.Guests += b.Adults + b.Children
		totals.AdultNights += b.AdultNights
		totals.ChildNights += b.ChildNights
		totals.TaxableNights += b.TaxableNights
		totals.CityTax = totals.CityTax.Add(b.CityTax)
	}
	totals.CityTaxFormatted = in.Formatter.Format(totals.CityTax)

	return report
}

// CountGuests splits a reservation's guests into adults and children.
//
// The guest register wins when present: a guest younger than adultAge on
// check-in day is a child, and a guest without a birthday is an adult.
// Otherwise the declared headcounts are used, and a booking with no
// headcount at all counts as one adult.
func CountGuests(r models.Reservation, adultAge int, loc *time.Location) (adults, children int) {
	if len(r.Guests) == 0 {
		if r.Adults == 0 && r.Children == 0 {
			return 1, 0
		}
		return r.Adults, r.Children
	}

	if loc == nil {
		loc = time.UTC
	}
	checkIn := r.CheckIn.In(loc)
	for _, g := range r.Guests {
		if g.Birthday == nil || r.CheckIn.IsZero() {
			adults++
			continue
		}
		if AgeOn(*g.Birthday, checkIn) < adultAge {
			children++
		} else {
			adults++
		}
	}
	return adults, children
}

// AgeOn returns the age in whole years of someone born on birthday, on day on.
func AgeOn(birthday, on time.Time) int {
	age := on.Year() - birthday.Year()
	if on.Month() < birthday.Month() || (on.Month() == birthday.Month() && on.Day() < birthday.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
