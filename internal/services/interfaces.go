package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

// ShippingService exposes shipping quotes, free-shipping progress and the rate catalogue to
// transport layers. Implementations are safe for concurrent use.
type ShippingService interface {
	Calculate(ctx context.Context, cmd ShippingQuoteCommand) (ShippingQuote, error)
	Progress(ctx context.Context, subtotal decimal.Decimal) (shipping.FreeShippingProgress, error)
	Zones(ctx context.Context) ([]shipping.Zone, error)
	Settings(ctx context.Context) (ShippingSettings, error)
}

// ShippingQuoteCommand asks for a quote. An invalid (absent) Subtotal is derived from Lines;
// an empty Policy uses the engine default.
type ShippingQuoteCommand struct {
	Lines      []shipping.CartLine
	PostalCode string
	Subtotal   decimal.NullDecimal
	Policy     shipping.Policy
}

// ShippingQuote is a computed quote stamped with an identifier and the progress towards free
// shipping for the same subtotal.
type ShippingQuote struct {
	ID         string
	ComputedAt time.Time
	Subtotal   decimal.Decimal
	Quote      shipping.Quote
	Progress   shipping.FreeShippingProgress
}

// ShippingSettings summarises the active rate configuration.
type ShippingSettings struct {
	Currency              string
	Policy                shipping.Policy
	FreeShippingThreshold decimal.Decimal
	MaxChargeableGrams    int64
	Origin                shipping.Origin
	BracketBounds         []int64
}
