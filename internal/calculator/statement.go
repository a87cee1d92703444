package calculator

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ownerportal/internal/models"
)

var ErrInvalidCommission = errors.New("commission percentage must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// StatementInput holds everything needed to compute an owner statement.
// Reservations and Invoices may contain records outside Period; they are
// filtered here.
type StatementInput struct {
	PropertyID   string
	PropertyName string

	// IsAdminOwned waives the management commission.
	IsAdminOwned bool

	CommissionPercentage decimal.Decimal
	Period               DateRange

	Reservations []models.Reservation
	Invoices     []models.Invoice

	// Now stamps GeneratedAt; zero means time.Now.
	Now time.Time
}

// CalculateOwnerStatement computes revenue, commission and owner payout.
//
// Algorithm:
//   - Keep reservations whose check-in day is in the period, and invoices
//     whose invoice day is in the period
//   - Sum reservation fees (host commission, cleaning, extras, city tax)
//   - total_revenue = sum of invoices, or sum of received amounts when there
//     are no invoices
//   - commission = (total_revenue - cleaning fees) x pct / 100, rounded to
//     cents, or zero for admin-owned properties
//   - net_amount_owner = total_revenue - commission
func CalculateOwnerStatement(in StatementInput) (*models.OwnerStatement, error) {
	pct := in.CommissionPercentage
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return nil, ErrInvalidCommission
	}

	reservations := FilterReservations(in.Reservations, in.Period, models.FilterCheckIn)
	invoices := FilterInvoices(in.Invoices, in.Period)

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	st := &models.OwnerStatement{
		PropertyID:           in.PropertyID,
		PropertyName:         in.PropertyName,
		IsAdminOwned:         in.IsAdminOwned,
		RequiresCommission:   !in.IsAdminOwned,
		StartDate:            in.Period.StartString(),
		EndDate:              in.Period.EndString(),
		CommissionPercentage: pct,
		ReservationCount:     len(reservations),
		InvoiceCount:         len(invoices),
		Reservations:         make([]models.StatementReservation, 0, len(reservations)),
		Invoices:             invoices,
		GeneratedAt:          now,
	}

	// Index invoices by reservation code for per-line reconciliation
	byRCode := make(map[string][]models.Invoice)
	for _, inv := range invoices {
		st.InvoiceRevenue = st.InvoiceRevenue.Add(inv.Value)
		if inv.RCode != "" {
			byRCode[inv.RCode] = append(byRCode[inv.RCode], inv)
		}
	}

	loc := in.Period.Location()
	for _, r := range reservations {
		line := models.StatementReservation{
			RCode:          r.RCode,
			GuestName:      r.GuestName,
			CheckIn:        in.Period.FormatDay(r.CheckIn),
			CheckOut:       in.Period.FormatDay(r.CheckOut),
			Nights:         NightsBetween(r.CheckIn, r.CheckOut, loc),
			ReceivedAmount: r.ReceivedAmount,
			HostCommission: r.HostCommission,
			CleaningFee:    r.CleaningFee,
			ExtraFees:      r.ExtraFees,
			CityTax:        r.CityTax,
		}
		for _, inv := range byRCode[r.RCode] {
			line.InvoiceTotal = line.InvoiceTotal.Add(inv.Value)
			if inv.URL != "" {
				line.InvoiceURLs = append(line.InvoiceURLs, inv.URL)
			}
		}
		st.Reservations = append(st.Reservations, line)

		st.ReservationRevenue = st.ReservationRevenue.Add(r.ReceivedAmount)
		st.TotalHostCommission = st.TotalHostCommission.Add(r.HostCommission)
		st.TotalCleaningFees = st.TotalCleaningFees.Add(r.CleaningFee)
		st.TotalExtraFees = st.TotalExtraFees.Add(r.ExtraFees)
		st.TotalCityTax = st.TotalCityTax.Add(r.CityTax)
	}

	if len(invoices) > 0 {
		st.TotalRevenue = st.InvoiceRevenue
		st.RevenueSource = models.RevenueFromInvoices
	} else {
		st.TotalRevenue = st.ReservationRevenue
		st.RevenueSource = models.RevenueFromReservations
	}

	if st.RequiresCommission {
		base := st.TotalRevenue.Sub(st.TotalCleaningFees)
		st.ManagementCommission = base.Mul(pct).Div(hundred).Round(2)
	}
	st.NetAmountOwner = st.TotalRevenue.Sub(st.ManagementCommission)

	return st, nil
}

// FilterReservations returns the reservations whose check-in (or check-out)
// day is inside the period, ordered by that day.
func FilterReservations(rs []models.Reservation, period DateRange, filter models.DateFilter) []models.Reservation {
	pick := func(r models.Reservation) time.Time { return r.CheckIn }
	if filter == models.FilterCheckOut {
		pick = func(r models.Reservation) time.Time { return r.CheckOut }
	}

	out := make([]models.Reservation, 0, len(rs))
	for _, r := range rs {
		if period.Contains(pick(r)) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return pick(out[i]).Before(pick(out[j]))
	})
	return out
}

// FilterInvoices returns the invoices dated inside the period, oldest first.
func FilterInvoices(invs []models.Invoice, period DateRange) []models.Invoice {
	out := make([]models.Invoice, 0, len(invs))
	for _, inv := range invs {
		if period.Contains(inv.Date) {
			out = append(out, inv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
