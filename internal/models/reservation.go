package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation is a Hostkit reservation normalised from the vendor payload.
// Vendor timestamps (Unix seconds) are converted to time.Time and nullable
// amounts to zero.
type Reservation struct {
	// RCode is the Hostkit reservation code.
	RCode string `json:"rcode"`

	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`

	GuestName string `json:"guest_name"`
	Status    string `json:"status,omitempty"`
	Channel   string `json:"channel,omitempty"`

	// Adults and Children are the headcounts declared on the booking.
	// They are only used when Guests is empty.
	Adults   int `json:"adults"`
	Children int `json:"children"`

	// Guests is the guest register, used for tourist-tax age checks.
	Guests []Guest `json:"guests,omitempty"`

	ReceivedAmount decimal.Decimal `json:"received_amount"`
	HostCommission decimal.Decimal `json:"host_commission"`
	CleaningFee    decimal.Decimal `json:"cleaning_fee"`
	ExtraFees      decimal.Decimal `json:"extra_fees"`
	CityTax        decimal.Decimal `json:"city_tax"`
}

// Guest is one entry of a reservation's guest register.
type Guest struct {
	Name string `json:"name"`

	// Birthday is nil when the vendor did not provide a valid date.
	Birthday *time.Time `json:"birthday,omitempty"`

	Country string `json:"country,omitempty"`
}

// Invoice is a Hostkit invoice.
type Invoice struct {
	ID string `json:"id"`

	// RCode links the invoice to a reservation when the vendor provides it.
	RCode string `json:"rcode,omitempty"`

	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
	URL   string          `json:"invoice_url"`
}

// HostawayListing mirrors a Hostaway listing.
type HostawayListing struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Bedrooms  int    `json:"bedroomsNumber"`
	Bathrooms int    `json:"bathroomsNumber"`
	TypeID    int    `json:"propertyTypeId"`
}

// HostawayReservation mirrors a Hostaway reservation.
type HostawayReservation struct {
	ID            int64           `json:"id"`
	ListingID     int64           `json:"listingMapId"`
	GuestName     string          `json:"guestName"`
	ArrivalDate   string          `json:"arrivalDate"`
	DepartureDate string          `json:"departureDate"`
	Nights        int             `json:"nights"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Channel       string          `json:"channelName"`
}
