package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueSource tells which records total revenue was derived from.
type RevenueSource string

const (
	RevenueFromInvoices     RevenueSource = "invoices"
	RevenueFromReservations RevenueSource = "reservations"
)

// OwnerStatement is the financial summary for one property and period.
// It is computed on request and never stored.
type OwnerStatement struct {
	PropertyID   string `json:"property_id"`
	PropertyName string `json:"property_name,omitempty"`

	IsAdminOwned       bool `json:"is_admin_owned"`
	RequiresCommission bool `json:"requires_commission"`

	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	CommissionPercentage decimal.Decimal `json:"commission_percentage"`

	ReservationCount int `json:"reservation_count"`
	InvoiceCount     int `json:"invoice_count"`

	TotalHostCommission decimal.Decimal `json:"total_host_commission"`
	TotalCleaningFees   decimal.Decimal `json:"total_cleaning_fees"`
	TotalExtraFees      decimal.Decimal `json:"total_extra_fees"`
	TotalCityTax        decimal.Decimal `json:"total_city_tax"`

	// ReservationRevenue is the sum of received amounts on in-range reservations.
	ReservationRevenue decimal.Decimal `json:"reservation_revenue"`

	// InvoiceRevenue is the sum of in-range invoice values.
	InvoiceRevenue decimal.Decimal `json:"invoice_revenue"`

	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	RevenueSource RevenueSource   `json:"revenue_source"`

	ManagementCommission decimal.Decimal `json:"management_commission"`
	NetAmountOwner       decimal.Decimal `json:"net_amount_owner"`

	Reservations []StatementReservation `json:"reservations"`
	Invoices     []Invoice              `json:"invoices"`

	GeneratedAt time.Time `json:"generated_at"`
}

// StatementReservation is one reservation line of an owner statement.
type StatementReservation struct {
	RCode     string `json:"rcode"`
	GuestName string `json:"guest_name"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Nights    int    `json:"nights"`

	ReceivedAmount decimal.Decimal `json:"received_amount"`
	HostCommission decimal.Decimal `json:"host_commission"`
	CleaningFee    decimal.Decimal `json:"cleaning_fee"`
	ExtraFees      decimal.Decimal `json:"extra_fees"`
	CityTax        decimal.Decimal `json:"city_tax"`

	// InvoiceTotal sums in-range invoices carrying this reservation's rcode.
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	InvoiceURLs  []string        `json:"invoice_urls,omitempty"`
}

// DateFilter selects which stay date places a reservation in a period.
type DateFilter string

const (
	FilterCheckIn  DateFilter = "checkin"
	FilterCheckOut DateFilter = "checkout"
)

// TaxSource tells which Hostkit endpoint a tourist-tax report was built from.
type TaxSource string

const (
	TaxSourceReservations TaxSource = "reservations"
	TaxSourceBookings     TaxSource = "bookings"
	TaxSourceNone         TaxSource = "none"
)

// TouristTaxReport is the city-tax breakdown for one property and period.
type TouristTaxReport struct {
	PropertyID string    `json:"property_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	FilterType DateFilter `json:"filter_type"`
	Source     TaxSource `json:"source"`

	Bookings []TouristTaxBooking `json:"bookings"`
	Totals   TouristTaxTotals    `json:"totals"`

	GeneratedAt time.Time `json:"generated_at"`
}

// TouristTaxBooking is the per-booking line of a tourist-tax report.
type TouristTaxBooking struct {
	RCode     string `json:"rcode"`
	GuestName string `json:"guest_name"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Nights    int    `json:"nights"`

	Adults        int `json:"adults"`
	Children      int `json:"children"`
	AdultNights   int `json:"adult_nights"`
	ChildNights   int `json:"child_nights"`
	TaxableNights int `json:"taxable_nights"`

	CityTax          decimal.Decimal `json:"city_tax"`
	CityTaxFormatted string          `json:"city_tax_formatted"`
}

// TouristTaxTotals aggregates every booking in a report.
type TouristTaxTotals struct {
	Bookings      int `json:"bookings"`
	Nights        int `json:"nights"`
	Guests        int `json:"guests"`
	Adults        int `json:"adults"`
	Children      int `json:"children"`
	AdultNights   int `json:"adult_nights"`
	ChildNights   int `json:"child_nights"`
	TaxableNights int `json:"taxable_nights"`

	CityTax          decimal.Decimal `json:"city_tax"`
	CityTaxFormatted string          `json:"city_tax_formatted"`
}
