package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts as localized currency strings.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter creates a formatter for a BCP 47 locale (e.g., "pt-PT")
// and an ISO 4217 currency code (e.g., "EUR").
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid currency locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return &Formatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// Format renders d with the currency symbol, rounded to cents.
// A nil formatter falls back to a plain two-decimal string.
func (f *Formatter) Format(d decimal.Decimal) string {
	rounded := d.Round(2)
	if f == nil {
		return rounded.StringFixed(2)
	}
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(rounded.InexactFloat64())))
}
