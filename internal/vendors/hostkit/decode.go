package hostkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/ownerportal/internal/models"
)

// Hostkit fields arrive as numbers, quoted numbers, empty strings or null
// depending on the endpoint and the age of the record. The types below
// accept all of them.

// amount decodes a money field. null and "" decode to zero. Both
// comma and dot decimal separators are accepted.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	s, ok, err := scalar(b)
	if err != nil || !ok {
		a.Decimal = decimal.Zero
		return err
	}
	d, err := decimal.NewFromString(normalizeAmount(s))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	a.Decimal = d
	return nil
}

// normalizeAmount rewrites "1.234,50" and "1,234.50" to "1234.50". The
// separator that comes last is the decimal point.
func normalizeAmount(s string) string {
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma < 0:
		return s
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	default:
		return strings.ReplaceAll(s, ",", "")
	}
}

// unixTime decodes a Unix-seconds timestamp, falling back to ISO dates.
// null, "" and 0 decode to the zero time.
type unixTime struct {
	time.Time
}

func (u *unixTime) UnmarshalJSON(b []byte) error {
	s, ok, err := scalar(b)
	if err != nil || !ok {
		u.Time = time.Time{}
		return err
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs > 0 {
			u.Time = time.Unix(secs, 0)
		} else {
			u.Time = time.Time{}
		}
		return nil
	}
	t, err := parseISODate(s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	u.Time = t
	return nil
}

// flexInt decodes an integer sent as a number or a string.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s, ok, err := scalar(b)
	if err != nil || !ok {
		*n = 0
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", s)
	}
	*n = flexInt(f)
	return nil
}

// flexString decodes an identifier sent as a string or a number.
type flexString string

func (fs *flexString) UnmarshalJSON(b []byte) error {
	s, _, err := scalar(b)
	*fs = flexString(s)
	return err
}

// scalar unwraps a JSON number or string. ok is false for null and blank values.
func scalar(b []byte) (s string, ok bool, err error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", false, nil
	}
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return "", false, err
		}
	} else {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseISODate parses the date formats Hostkit uses. Values without a zone
// are read in loc.
func parseISODate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

type wireGuest struct {
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Birthday  string `json:"birthday"`
	Country   string `json:"country"`
}

// guestList accepts the register as an array, as an object keyed by
// position, or null.
type guestList []wireGuest

func (g *guestList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)):
		*g = nil
		return nil
	case b[0] == '[':
		var list []wireGuest
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*g = list
		return nil
	case b[0] == '{':
		var byKey map[string]wireGuest
		if err := json.Unmarshal(b, &byKey); err != nil {
			return err
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sortNumericKeys(keys)
		list := make([]wireGuest, 0, len(keys))
		for _, k := range keys {
			list = append(list, byKey[k])
		}
		*g = list
		return nil
	}
	return fmt.Errorf("unexpected guest_data %s", string(b))
}

type wireReservation struct {
	RCode          flexString `json:"rcode"`
	InDate         unixTime   `json:"in_date"`
	OutDate        unixTime   `json:"out_date"`
	ReceivedAmount amount     `json:"received_amount"`
	HostCommission amount     `json:"host_commission"`
	CleaningFee    amount     `json:"cleaning_fee"`
	ExtraFees      amount     `json:"extra_fees"`
	CityTax        amount     `json:"city_tax"`
	GuestName      string     `json:"guest_name"`
	FirstName      string     `json:"firstname"`
	LastName       string     `json:"lastname"`
	Adults         flexInt    `json:"adults"`
	Children       flexInt    `json:"children"`
	GuestData      guestList  `json:"guest_data"`
	Status         string     `json:"status"`
	Channel        string     `json:"channel"`
}

func (w wireReservation) toModel(loc *time.Location) models.Reservation {
	r := models.Reservation{
		RCode:          string(w.RCode),
		CheckIn:        w.InDate.Time,
		CheckOut:       w.OutDate.Time,
		GuestName:      strings.TrimSpace(w.GuestName),
		Status:         w.Status,
		Channel:        w.Channel,
		Adults:         int(w.Adults),
		Children:       int(w.Children),
		ReceivedAmount: w.ReceivedAmount.Decimal,
		HostCommission: w.HostCommission.Decimal,
		CleaningFee:    w.CleaningFee.Decimal,
		ExtraFees:      w.ExtraFees.Decimal,
		CityTax:        w.CityTax.Decimal,
	}
	if r.GuestName == "" {
		r.GuestName = strings.TrimSpace(w.FirstName + " " + w.LastName)
	}
	for _, g := range w.GuestData {
		guest := models.Guest{
			Name:    strings.TrimSpace(g.Name),
			Country: g.Country,
		}
		if guest.Name == "" {
			guest.Name = strings.TrimSpace(g.FirstName + " " + g.LastName)
		}
		if g.Birthday != "" {
			if b, err := parseISODate(g.Birthday, loc); err == nil {
				guest.Birthday = &b
			}
		}
		r.Guests = append(r.Guests, guest)
	}
	return r
}

type wireInvoice struct {
	ID         flexString `json:"id"`
	RCode      flexString `json:"rcode"`
	Date       string     `json:"date"`
	Value      amount     `json:"value"`
	InvoiceURL string     `json:"invoice_url"`
}

// toModel converts the invoice. An unparsable date leaves the zero time,
// which no date range contains.
func (w wireInvoice) toModel(loc *time.Location) models.Invoice {
	inv := models.Invoice{
		ID:    string(w.ID),
		RCode: string(w.RCode),
		Value: w.Value.Decimal,
		URL:   w.InvoiceURL,
	}
	if t, err := parseISODate(w.Date, loc); err == nil {
		inv.Date = t
	}
	return inv
}

// decodeList decodes a Hostkit list response. Endpoints return either a
// bare array or an object wrapping it; an object carrying "error" is a
// vendor-side failure.
func decodeList[T any](body []byte, keys ...string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if body[0] == '[' {
		var list []T
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if raw, ok := obj["error"]; ok {
		msg, _, _ := scalar(raw)
		if msg != "" && msg != "false" && msg != "0" {
			return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
		}
	}
	for _, k := range append(keys, "data", "result") {
		if raw, ok := obj[k]; ok {
			return decodeList[T](raw)
		}
	}
	return nil, nil
}

func sortNumericKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
}
