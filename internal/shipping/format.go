package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const volumetricSuffix = " (volumétrico)"

// Formatter renders masses and amounts for display in a given locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a formatter for the BCP 47 locale and ISO 4217 currency code.
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("shipping: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("shipping: parse currency %q: %w", currencyCode, err)
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag), unit: unit}, nil
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() string { return f.tag.String() }

// Mass renders grams as kilograms with two decimals, e.g. "0,50 kg" in es-AR.
func (f *Formatter) Mass(grams int64) string {
	return f.printer.Sprintf("%.2f kg", float64(grams)/1000)
}

// Weight renders the chargeable mass, flagging volumetric charging.
func (f *Formatter) Weight(w WeightAssessment) string {
	label := f.Mass(w.ChargeableGrams)
	if w.ChargedByVolume {
		label += volumetricSuffix
	}
	return label
}

// Money renders an amount with the currency symbol.
func (f *Formatter) Money(amount decimal.Decimal) string {
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount.InexactFloat64())))
}
