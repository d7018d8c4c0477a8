package money

import (
	"errors"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidLocale   = errors.New("money: invalid locale")
	ErrInvalidCurrency = errors.New("money: invalid currency code")
)

// Formatter renders amounts for display in the operator's home locale.
// Price arithmetic stays in the pricing package; this only formats.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a Formatter for a BCP 47 locale and an ISO 4217
// currency code, e.g. ("en-IN", "INR").
func NewFormatter(locale, code string) (Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Formatter{}, ErrInvalidLocale
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Formatter{}, ErrInvalidCurrency
	}
	return Formatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// Must creates a Formatter and panics if validation fails; useful in
// tests and fixtures.
func Must(locale, code string) Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Formatter) Zero() bool {
	return f.printer == nil
}

// Amount renders v with the currency symbol, e.g. "₹ 50.00".
func (f Formatter) Amount(v float64) string {
	if f.Zero() {
		return ""
	}
	return f.printer.Sprintf("%v", currency.Symbol(f.unit.Amount(v)))
}

// PerHour renders an hourly rate, e.g. "₹ 50.00/hr".
func (f Formatter) PerHour(v float64) string {
	if f.Zero() {
		return ""
	}
	return f.Amount(v) + "/hr"
}

func (f Formatter) Code() string {
	return f.unit.String()
}
